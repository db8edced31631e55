package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/genuinetools/scanbench/bench"
	"github.com/genuinetools/scanbench/utils"
	"golang.org/x/term"
)

// Engine talks to the docker daemon over its API.
type Engine struct {
	Client  *client.Client
	Timeout time.Duration
	// ConfigDir is the docker CLI config directory registry credentials are
	// read from. Empty means $DOCKER_CONFIG or ~/.docker.
	ConfigDir string
	// Progress receives the rendered pull progress. Nil discards it.
	Progress io.Writer
	Logf     LogfCallback
}

// Opt holds the options for a new Engine.
type Opt struct {
	Debug   bool
	Timeout time.Duration
	// Host overrides DOCKER_HOST.
	Host      string
	ConfigDir string
	Progress  io.Writer
}

var _ bench.ImageSource = &Engine{}

// NewEngine creates an Engine configured from the environment.
func NewEngine(opt Opt) (*Engine, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if opt.Host != "" {
		opts = append(opts, client.WithHost(opt.Host))
	}

	c, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client failed: %w", err)
	}

	return NewEngineWithClient(c, opt), nil
}

// NewEngineWithClient wraps an existing docker client.
func NewEngineWithClient(c *client.Client, opt Opt) *Engine {
	return &Engine{
		Client:    c,
		Timeout:   opt.Timeout,
		ConfigDir: opt.ConfigDir,
		Progress:  opt.Progress,
		Logf:      logfor(opt.Debug),
	}
}

// Close closes the connection to the daemon.
func (e *Engine) Close() error {
	return e.Client.Close()
}

// Fetch pulls ref. Errors reported inside the progress stream fail the pull.
func (e *Engine) Fetch(ctx context.Context, ref string) error {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return fmt.Errorf("invalid image reference %q: %w", ref, err)
	}
	named = reference.TagNameOnly(named)

	opts, err := e.pullOptions(reference.Domain(named))
	if err != nil {
		return err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	e.Logf("docker.pull ref=%s", named.String())
	resp, err := e.Client.ImagePull(ctx, named.String(), opts)
	if err != nil {
		return err
	}
	defer resp.Close()

	out := e.Progress
	if out == nil {
		out = io.Discard
	}
	fd, isTerm := termInfo(out)

	return jsonmessage.DisplayJSONMessagesStream(resp, out, fd, isTerm, nil)
}

// pullOptions carries the stored docker CLI credentials for domain, if any.
func (e *Engine) pullOptions(domain string) (image.PullOptions, error) {
	auth, err := utils.GetAuthConfig(e.ConfigDir, domain)
	if err != nil {
		return image.PullOptions{}, err
	}
	if !utils.HasCredentials(auth) {
		return image.PullOptions{}, nil
	}

	encoded, err := registry.EncodeAuthConfig(auth)
	if err != nil {
		return image.PullOptions{}, fmt.Errorf("encoding credentials for %s failed: %w", auth.ServerAddress, err)
	}
	e.Logf("docker.pull using credentials for %s", auth.ServerAddress)

	return image.PullOptions{RegistryAuth: encoded}, nil
}

// Inspect returns the content digest of the local copy of ref.
func (e *Engine) Inspect(ctx context.Context, ref string) (bench.Identity, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	e.Logf("docker.inspect ref=%s", ref)
	info, err := e.Client.ImageInspect(ctx, ref)
	if err != nil {
		return bench.Identity{}, err
	}

	return identity(ref, info.ID, info.RepoDigests)
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout > 0 {
		return context.WithTimeout(ctx, e.Timeout)
	}
	return context.WithCancel(ctx)
}

func termInfo(w io.Writer) (uintptr, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	fd := f.Fd()
	return fd, term.IsTerminal(int(fd))
}
