package trivy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tidwall/gjson"
)

// Severity labels trivy assigns to findings.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
	SeverityUnknown  = "UNKNOWN"
)

// ErrInvalidReport is returned when a report is not a JSON list of results.
var ErrInvalidReport = errors.New("invalid trivy report")

// Scan runs trivy against ref and writes the JSON report to outPath.
func (c *Trivy) Scan(ctx context.Context, ref, outPath string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := append([]string{"image", "--quiet", "--format", "json", "--output", outPath}, c.Args...)
	args = append(args, ref)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Location, args...)
	cmd.Stderr = &stderr

	c.Logf("trivy.scan location=%s args=%s", c.Location, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("trivy scan of %s timed out after %s", ref, c.Timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("trivy scan of %s failed: %w: %s", ref, err, msg)
		}
		return fmt.Errorf("trivy scan of %s failed: %w", ref, err)
	}
	c.Logf("trivy.scan complete ref=%s output=%s", ref, outPath)

	return nil
}

// DecodeReport decodes either report layout into its list of results.
func DecodeReport(b []byte) (Report, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj reportObject
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
		return obj.Results, nil
	}

	var report Report
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	return report, nil
}

// CountFile reads the report at path and counts its findings.
func CountFile(path string) (Counts, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Counts{}, err
	}
	return CountSeverities(b)
}

// CountSeverities counts the findings of a report by severity. Missing
// buckets count zero; findings with any other label only add to Total.
func CountSeverities(report []byte) (Counts, error) {
	if !gjson.ValidBytes(report) {
		return Counts{}, ErrInvalidReport
	}

	results := gjson.ParseBytes(report)
	if results.IsObject() {
		results = results.Get("Results")
	}
	if results.Exists() && results.Type != gjson.Null && !results.IsArray() {
		return Counts{}, fmt.Errorf("%w: results are not a list", ErrInvalidReport)
	}

	var counts Counts
	results.ForEach(func(_, result gjson.Result) bool {
		vulns := result.Get("Vulnerabilities")
		if !vulns.IsArray() {
			return true
		}
		vulns.ForEach(func(_, vuln gjson.Result) bool {
			counts.add(vuln.Get("Severity").String())
			return true
		})
		return true
	})

	return counts, nil
}

func (c *Counts) add(sev string) {
	c.Total++
	switch severity(sev) {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	}
}

func severity(sev string) string {
	sev = strings.ToUpper(strings.TrimSpace(sev))
	switch sev {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return sev
	default:
		return SeverityUnknown
	}
}
