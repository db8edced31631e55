package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/genuinetools/scanbench/bench"
	"github.com/genuinetools/scanbench/docker"
	"github.com/genuinetools/scanbench/repoutils"
	"github.com/genuinetools/scanbench/summary"
	"github.com/genuinetools/scanbench/trivy"
	"github.com/genuinetools/scanbench/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func scanAction(c *cli.Context) error {
	cfg, err := utils.GetConfig(c)
	if err != nil {
		return err
	}
	if cfg.Debug {
		setDebug()
	}

	// Read the image list before anything is written to disk.
	images, err := repoutils.ReadImageList(cfg.ImageList)
	if err != nil {
		return err
	}

	tools, closeTools, err := createToolchain(cfg)
	if err != nil {
		return err
	}
	defer closeTools()

	sw, err := summary.Open(filepath.Join(cfg.OutputDir, summary.FileName))
	if err != nil {
		return err
	}
	defer sw.Close()

	log := progress.WithField("run", uuid.NewString())
	if cfg.LoadPath != "" {
		log.Debugf("loaded config from %s", cfg.LoadPath)
	}
	if len(images) == 0 {
		log.Warnf("no images listed in %s", cfg.ImageList)
	}
	log.Infof("benchmarking %d images over %d trials, results in %s", len(images), cfg.Trials, sw.Path())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &bench.Runner{
		Tools:     tools,
		Summary:   sw,
		OutputDir: cfg.OutputDir,
		Log:       log,
	}
	records, err := runner.Run(ctx, images, cfg.Trials)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warnf("interrupted after %d attempts", len(records))
		}
		return err
	}

	log.Infof("finished %d attempts, summary written to %s", len(records), sw.Path())
	if !cfg.QuietSummary {
		summary.RenderTable(os.Stdout, summary.Aggregate(records))
	}

	return nil
}

// createToolchain builds the image source and scanner picked by cfg. The
// returned func releases any daemon connection.
func createToolchain(cfg utils.Config) (bench.Toolchain, func(), error) {
	opt := docker.Opt{
		Debug:     cfg.Debug,
		Timeout:   cfg.TimeoutDuration,
		Host:      cfg.DockerHost,
		ConfigDir: cfg.DockerConfig,
		Progress:  os.Stdout,
	}

	var (
		src     bench.ImageSource
		cleanup = func() {}
	)
	switch cfg.Fetcher {
	case utils.FetcherCLI:
		c, err := docker.NewCLI(cfg.DockerBin, opt)
		if err != nil {
			return nil, nil, err
		}
		src = c
	default:
		e, err := docker.NewEngine(opt)
		if err != nil {
			return nil, nil, err
		}
		src = e
		cleanup = func() {
			if err := e.Close(); err != nil {
				logrus.Debugf("closing docker client failed: %v", err)
			}
		}
	}

	sc, err := trivy.New(cfg.Trivy, trivy.Opt{
		Debug:   cfg.Debug,
		Timeout: cfg.TimeoutDuration,
		Args:    cfg.TrivyArgs,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return bench.NewToolchain(src, sc), cleanup, nil
}
