// Package summary keeps the append-only CSV log of scan attempts and
// aggregates it into per-image latency statistics.
package summary

import (
	"fmt"
	"strconv"
	"strings"
)

// FileName is the name of the summary file inside the output directory.
const FileName = "summary_metrics.csv"

// Status is the outcome of a single scan attempt.
type Status string

const (
	// StatusSuccess marks a scan whose report was parsed.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed marks an attempt that failed at fetch, scan or parse time.
	StatusFailed Status = "FAILED"
)

// Header is the column list written once when the summary file is created.
var Header = []string{
	"trial",
	"scanTimestamp",
	"repoName",
	"imageTag",
	"imageDigest",
	"status",
	"scanDurationMs",
	"criticalCount",
	"highCount",
	"mediumCount",
	"lowCount",
	"totalVulns",
	"reportFile",
}

// Record is one row of the summary file: a single (trial, image) attempt.
type Record struct {
	Trial      int
	Timestamp  int64
	Repo       string
	Tag        string
	Digest     string
	Status     Status
	DurationMs int64
	Critical   int
	High       int
	Medium     int
	Low        int
	Total      int
	ReportFile string
}

// Image returns the repo:tag the record belongs to.
func (r Record) Image() string {
	return r.Repo + ":" + r.Tag
}

func (r Record) row() []string {
	return []string{
		strconv.Itoa(r.Trial),
		strconv.FormatInt(r.Timestamp, 10),
		r.Repo,
		r.Tag,
		r.Digest,
		string(r.Status),
		strconv.FormatInt(r.DurationMs, 10),
		strconv.Itoa(r.Critical),
		strconv.Itoa(r.High),
		strconv.Itoa(r.Medium),
		strconv.Itoa(r.Low),
		strconv.Itoa(r.Total),
		r.ReportFile,
	}
}

func parseRow(row []string) (Record, error) {
	if len(row) != len(Header) {
		return Record{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(row))
	}

	var (
		r   Record
		err error
	)
	ints := []struct {
		col int
		dst *int
	}{
		{0, &r.Trial},
		{7, &r.Critical},
		{8, &r.High},
		{9, &r.Medium},
		{10, &r.Low},
		{11, &r.Total},
	}
	for _, i := range ints {
		if *i.dst, err = strconv.Atoi(row[i.col]); err != nil {
			return Record{}, fmt.Errorf("parsing %s: %w", Header[i.col], err)
		}
	}
	if r.Timestamp, err = strconv.ParseInt(row[1], 10, 64); err != nil {
		return Record{}, fmt.Errorf("parsing %s: %w", Header[1], err)
	}
	if r.DurationMs, err = strconv.ParseInt(row[6], 10, 64); err != nil {
		return Record{}, fmt.Errorf("parsing %s: %w", Header[6], err)
	}

	r.Repo = row[2]
	r.Tag = row[3]
	r.Digest = row[4]
	r.ReportFile = row[12]

	switch Status(strings.ToUpper(row[5])) {
	case StatusSuccess:
		r.Status = StatusSuccess
	case StatusFailed:
		r.Status = StatusFailed
	default:
		return Record{}, fmt.Errorf("unknown status %q", row[5])
	}

	return r, nil
}
