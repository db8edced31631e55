package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/genuinetools/scanbench/bench"
)

// DefaultBinary is the CLI used when none is configured.
const DefaultBinary = "docker"

// CLI pulls and inspects images by running a docker compatible binary,
// which picks up the credentials and daemon settings of that CLI.
type CLI struct {
	Binary  string
	Timeout time.Duration
	// Progress receives the output of the pull command. Nil discards it.
	Progress io.Writer
	Logf     LogfCallback
}

var _ bench.ImageSource = &CLI{}

// NewCLI creates a CLI image source for binary.
func NewCLI(binary string, opt Opt) (*CLI, error) {
	if binary == "" {
		return nil, errors.New("docker binary cannot be empty")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("finding %s failed: %w", binary, err)
	}

	return &CLI{
		Binary:   binary,
		Timeout:  opt.Timeout,
		Progress: opt.Progress,
		Logf:     logfor(opt.Debug),
	}, nil
}

// Fetch runs `<binary> pull ref`.
func (c *CLI) Fetch(ctx context.Context, ref string) error {
	_, err := c.run(ctx, c.Progress, "pull", ref)
	return err
}

type inspectOutput struct {
	ID          string   `json:"Id"`
	RepoDigests []string `json:"RepoDigests"`
}

// Inspect runs `<binary> image inspect` and reads the digest from its output.
func (c *CLI) Inspect(ctx context.Context, ref string) (bench.Identity, error) {
	out, err := c.run(ctx, nil, "image", "inspect", "--format", "{{json .}}", ref)
	if err != nil {
		return bench.Identity{}, err
	}

	var info inspectOutput
	if err := json.Unmarshal(bytes.TrimSpace(out), &info); err != nil {
		return bench.Identity{}, fmt.Errorf("parsing %s inspect output failed: %w", c.Binary, err)
	}

	return identity(ref, info.ID, info.RepoDigests)
}

func (c *CLI) run(ctx context.Context, progress io.Writer, args ...string) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Stdout = &stdout
	if progress != nil {
		cmd.Stdout = io.MultiWriter(&stdout, progress)
	}
	cmd.Stderr = &stderr

	c.Logf("docker.cli %s %s", c.Binary, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s timed out after %s", c.Binary, args[0], c.Timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s %s failed: %w: %s", c.Binary, args[0], err, msg)
		}
		return nil, fmt.Errorf("%s %s failed: %w", c.Binary, args[0], err)
	}

	return stdout.Bytes(), nil
}
