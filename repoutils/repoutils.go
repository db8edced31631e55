package repoutils

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultTag is used when an image reference carries no tag.
const DefaultTag = "latest"

// ErrEmptyRepository is returned when a reference has no repository part.
var ErrEmptyRepository = errors.New("repository name must not be empty")

// GetRepoAndTag parses the repo name and tag of an image reference.
// The reference is split on the first colon.
func GetRepoAndTag(ref string) (repo, tag string, err error) {
	ref = strings.TrimSpace(ref)

	parts := strings.SplitN(ref, ":", 2)
	repo = parts[0]
	if repo == "" {
		return "", "", ErrEmptyRepository
	}

	tag = DefaultTag
	if len(parts) > 1 && parts[1] != "" {
		tag = parts[1]
	}

	return repo, tag, nil
}

// ReadImageList reads a newline delimited list of image references.
// Blank lines are skipped, order and duplicates are kept.
func ReadImageList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image list failed: %w", err)
	}
	defer f.Close()

	images := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		images = append(images, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading image list %s failed: %w", path, err)
	}

	return images, nil
}
