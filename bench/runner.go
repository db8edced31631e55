// Package bench runs repeated scan trials over a list of images and records
// one summary row per attempt.
package bench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/genuinetools/scanbench/repoutils"
	"github.com/genuinetools/scanbench/summary"
	"github.com/genuinetools/scanbench/trivy"
	"github.com/sirupsen/logrus"
)

// ReportsDir is the directory under the output directory holding reports.
const ReportsDir = "reports"

// ErrInvalidTrials is returned when the trial count is not positive.
var ErrInvalidTrials = errors.New("trials must be a positive integer")

// Runner executes trials sequentially. Only one external tool runs at a
// time so the scan duration measures an isolated invocation.
type Runner struct {
	Tools     Toolchain
	Summary   RecordWriter
	OutputDir string

	// Count extracts severity counts from a report. Defaults to trivy.CountFile.
	Count func(path string) (trivy.Counts, error)
	// Now stamps records. Defaults to time.Now.
	Now func() time.Time
	Log *logrus.Entry
}

// Run performs trials passes over images. Per-image failures are recorded
// and skipped; an error is only returned when the summary cannot be written
// or ctx is done. The records written so far are always returned.
func (r *Runner) Run(ctx context.Context, images []string, trials int) ([]summary.Record, error) {
	if trials < 1 {
		return nil, ErrInvalidTrials
	}
	if r.Tools == nil || r.Summary == nil {
		return nil, errors.New("runner needs a toolchain and a summary writer")
	}

	records := make([]summary.Record, 0, trials*len(images))
	for trial := 1; trial <= trials; trial++ {
		r.log().Infof("starting trial %d/%d over %d images", trial, trials, len(images))

		for _, ref := range images {
			if err := ctx.Err(); err != nil {
				return records, err
			}

			rec := r.scanImage(ctx, trial, ref)

			// An interrupted attempt is not a measurement.
			if err := ctx.Err(); err != nil {
				return records, err
			}

			if err := r.Summary.Write(rec); err != nil {
				return records, err
			}
			records = append(records, rec)
		}
	}

	r.log().Infof("finished %d trials, %d records written", trials, len(records))
	return records, nil
}

func (r *Runner) scanImage(ctx context.Context, trial int, ref string) summary.Record {
	log := r.log().WithFields(logrus.Fields{
		"trial": trial,
		"image": ref,
	})
	rec := summary.Record{
		Trial:  trial,
		Status: summary.StatusFailed,
	}

	repo, tag, err := repoutils.GetRepoAndTag(ref)
	if err != nil {
		log.Errorf("parsing image reference failed: %v", err)
		rec.Timestamp = r.now().Unix()
		return rec
	}
	rec.Repo = repo
	rec.Tag = tag

	log.Info("pulling image")
	if err := r.Tools.Fetch(ctx, ref); err != nil {
		log.Errorf("pulling image failed: %v", err)
		rec.Timestamp = r.now().Unix()
		return rec
	}

	id, err := r.Tools.Inspect(ctx, ref)
	switch {
	case err != nil:
		log.Warnf("resolving image digest failed: %v", err)
	case id.Fallback:
		log.Warnf("no repo digest available, using local image id %s", id.Digest)
	}
	rec.Digest = id.Digest

	dir, err := reportDir(r.OutputDir, repo, tag)
	if err == nil {
		err = os.MkdirAll(dir, 0755)
	}
	if err != nil {
		log.Errorf("preparing report directory failed: %v", err)
		rec.Timestamp = r.now().Unix()
		return rec
	}
	rec.ReportFile = filepath.Join(dir, fmt.Sprintf("trial_%d_report.json", trial))

	log.Infof("scanning image, report at %s", rec.ReportFile)
	rec.Timestamp = r.now().Unix()
	start := time.Now()
	err = r.Tools.Scan(ctx, ref, rec.ReportFile)
	elapsed := time.Since(start)
	if err != nil {
		log.Errorf("scanning image failed after %s: %v", elapsed, err)
		return rec
	}

	counts, err := r.count(rec.ReportFile)
	if err != nil {
		log.Errorf("reading report %s failed: %v", rec.ReportFile, err)
		return rec
	}

	rec.Status = summary.StatusSuccess
	rec.DurationMs = elapsed.Milliseconds()
	rec.Critical = counts.Critical
	rec.High = counts.High
	rec.Medium = counts.Medium
	rec.Low = counts.Low
	rec.Total = counts.Total

	log.WithFields(logrus.Fields{
		"duration_ms": rec.DurationMs,
		"critical":    rec.Critical,
		"high":        rec.High,
		"medium":      rec.Medium,
		"low":         rec.Low,
		"total":       rec.Total,
	}).Info("scan complete")

	return rec
}

// reportDir returns <out>/reports/<repo>/<tag>, refusing names that would
// resolve outside the reports directory.
func reportDir(out, repo, tag string) (string, error) {
	root := filepath.Join(out, ReportsDir)
	dir := filepath.Join(root, repo, tag)

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("image %s:%s resolves outside %s", repo, tag, root)
	}
	return dir, nil
}

func (r *Runner) count(path string) (trivy.Counts, error) {
	if r.Count != nil {
		return r.Count(path)
	}
	return trivy.CountFile(path)
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) log() *logrus.Entry {
	if r.Log != nil {
		return r.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
