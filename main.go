package main

import (
	"fmt"
	"os"

	"github.com/genuinetools/scanbench/utils"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const (
	// VERSION is the binary version.
	VERSION = "v0.1.0"

	timestampFormat = "2006-01-02 15:04:05"
)

// progress carries the per-phase run log to stdout. Startup failures go
// through the global logger on stderr.
var progress = logrus.New()

// preload initializes any global options and configuration
// before the main or sub commands are run.
func preload(c *cli.Context) error {
	progress.SetOutput(os.Stdout)
	progress.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	})

	if c.GlobalBool("debug") {
		setDebug()
	}

	return nil
}

func setDebug() {
	logrus.SetLevel(logrus.DebugLevel)
	progress.SetLevel(logrus.DebugLevel)
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "scanbench"
	app.Version = VERSION
	app.Author = "@genuinetools"
	app.Email = "no-reply@butts.com"
	app.Usage = "Benchmark trivy scan latency over a list of container images."
	app.ArgsUsage = "[IMAGE_LIST]"
	app.ErrWriter = os.Stderr
	app.Before = preload
	app.Flags = utils.Flags
	app.Commands = []cli.Command{
		summaryCommand,
	}
	app.Action = scanAction
	app.OnUsageError = func(c *cli.Context, err error, isSubcommand bool) error {
		fmt.Fprintf(c.App.ErrWriter, "Incorrect usage: %v\n", err)
		return err
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
