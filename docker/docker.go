// Package docker pulls images and resolves their content digest, either
// through the docker engine API or by running a docker compatible CLI.
package docker

import (
	"errors"
	"fmt"

	"github.com/distribution/reference"
	"github.com/genuinetools/scanbench/bench"
	"github.com/sirupsen/logrus"
)

// ErrNoDigest is returned when an image has neither a repo digest nor an id.
var ErrNoDigest = errors.New("image has no digest or id")

// LogfCallback is the callback for formatting logs.
type LogfCallback func(format string, args ...interface{})

// Quiet discards logs silently.
func Quiet(format string, args ...interface{}) {}

// Log passes log messages to the logging package.
func Log(format string, args ...interface{}) {
	logrus.Debugf(format, args...)
}

func logfor(debug bool) LogfCallback {
	if debug {
		return Log
	}
	return Quiet
}

// identity picks the content digest of ref out of the repo digests of the
// local image, falling back to the image id.
func identity(ref, id string, repoDigests []string) (bench.Identity, error) {
	want := ""
	if named, err := reference.ParseNormalizedNamed(ref); err == nil {
		want = named.Name()
	}

	var first string
	for _, rd := range repoDigests {
		named, err := reference.ParseNormalizedNamed(rd)
		if err != nil {
			continue
		}
		canonical, ok := named.(reference.Canonical)
		if !ok {
			continue
		}
		d := canonical.Digest()
		if err := d.Validate(); err != nil {
			continue
		}
		if named.Name() == want {
			return bench.Identity{Digest: d.String()}, nil
		}
		if first == "" {
			first = d.String()
		}
	}
	if first != "" {
		return bench.Identity{Digest: first}, nil
	}

	if id == "" {
		return bench.Identity{}, fmt.Errorf("%s: %w", ref, ErrNoDigest)
	}
	return bench.Identity{Digest: id, Fallback: true}, nil
}
