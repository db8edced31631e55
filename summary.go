package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/genuinetools/scanbench/repoutils"
	"github.com/genuinetools/scanbench/summary"
	"github.com/genuinetools/scanbench/utils"
	"github.com/urfave/cli"
)

var summaryCommand = cli.Command{
	Name:      "summary",
	Aliases:   []string{"stats"},
	Usage:     "print per-image scan latency statistics from an existing summary file",
	ArgsUsage: "[SUMMARY_CSV]",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "image",
			Usage: "only show statistics for this image, the tag defaults to latest",
		},
	},
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			dir := c.GlobalString("output-dir")
			if dir == "" {
				dir = utils.DefaultOutputDir
			}
			path = filepath.Join(dir, summary.FileName)
		}

		records, err := summary.ReadFile(path)
		if err != nil {
			return err
		}

		stats := summary.Aggregate(records)
		if c.String("image") != "" {
			repo, tag, err := repoutils.GetRepoAndTag(c.String("image"))
			if err != nil {
				return err
			}
			image := repo + ":" + tag

			filtered := stats[:0]
			for _, s := range stats {
				if s.Image == image {
					filtered = append(filtered, s)
				}
			}
			if len(filtered) == 0 {
				return fmt.Errorf("no attempts recorded for %s in %s", image, path)
			}
			stats = filtered
		}

		fmt.Printf("Scan latency for %s (%d attempts)\n", path, len(records))
		summary.RenderTable(os.Stdout, stats)

		return nil
	},
}
