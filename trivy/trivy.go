package trivy

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLocation is the scanner binary looked up on PATH.
const DefaultLocation = "trivy"

// Trivy defines the client for running image scans with the trivy binary.
type Trivy struct {
	Location string
	Timeout  time.Duration
	Args     []string
	Logf     LogfCallback
}

// LogfCallback is the callback for formatting logs.
type LogfCallback func(format string, args ...interface{})

// Quiet discards logs silently.
func Quiet(format string, args ...interface{}) {}

// Log passes log messages to the logging package.
func Log(format string, args ...interface{}) {
	logrus.Debugf(format, args...)
}

// Opt holds the options for a new trivy client.
type Opt struct {
	Debug   bool
	Timeout time.Duration
	// Args are appended to every scan invocation, e.g. --skip-db-update.
	Args []string
}

// New creates a new Trivy struct for the binary at location.
func New(location string, opt Opt) (*Trivy, error) {
	if location == "" {
		return nil, errors.New("trivy location cannot be empty")
	}
	if opt.Timeout < 0 {
		return nil, errors.New("trivy timeout cannot be negative")
	}

	// set the logging
	logf := Quiet
	if opt.Debug {
		logf = Log
	}

	client := &Trivy{
		Location: location,
		Timeout:  opt.Timeout,
		Args:     opt.Args,
		Logf:     logf,
	}

	return client, nil
}
