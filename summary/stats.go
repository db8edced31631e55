package summary

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// ImageStats holds the latency figures for every attempt of one image.
type ImageStats struct {
	Image     string
	Attempts  int
	Successes int
	Failures  int

	// Durations only cover successful scans.
	MinMs  int64
	MaxMs  int64
	MeanMs float64

	// Counts of the most recent successful scan.
	Critical int
	High     int
	Medium   int
	Low      int
	Total    int
}

// Aggregate groups records by repo:tag, keeping the order in which images
// first appear.
func Aggregate(records []Record) []ImageStats {
	var (
		order = []string{}
		stats = map[string]*ImageStats{}
		sums  = map[string]int64{}
	)

	for _, r := range records {
		image := r.Image()
		s, ok := stats[image]
		if !ok {
			s = &ImageStats{Image: image}
			stats[image] = s
			order = append(order, image)
		}

		s.Attempts++
		if r.Status != StatusSuccess {
			s.Failures++
			continue
		}

		if s.Successes == 0 || r.DurationMs < s.MinMs {
			s.MinMs = r.DurationMs
		}
		if r.DurationMs > s.MaxMs {
			s.MaxMs = r.DurationMs
		}
		s.Successes++
		sums[image] += r.DurationMs

		s.Critical = r.Critical
		s.High = r.High
		s.Medium = r.Medium
		s.Low = r.Low
		s.Total = r.Total
	}

	result := make([]ImageStats, 0, len(order))
	for _, image := range order {
		s := stats[image]
		if s.Successes > 0 {
			s.MeanMs = float64(sums[image]) / float64(s.Successes)
		}
		result = append(result, *s)
	}
	return result
}

// RenderTable writes the statistics as a table to w.
func RenderTable(w io.Writer, stats []ImageStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{
		"Image", "Runs", "OK", "Failed",
		"Min ms", "Mean ms", "Max ms",
		"Critical", "High", "Medium", "Low", "Total",
	})

	for _, s := range stats {
		if s.Successes == 0 {
			t.AppendRow(table.Row{
				s.Image, s.Attempts, s.Successes, s.Failures,
				"-", "-", "-", "-", "-", "-", "-", "-",
			})
			continue
		}
		t.AppendRow(table.Row{
			s.Image, s.Attempts, s.Successes, s.Failures,
			s.MinMs, fmt.Sprintf("%.1f", s.MeanMs), s.MaxMs,
			s.Critical, s.High, s.Medium, s.Low, s.Total,
		})
	}

	t.Render()
}
