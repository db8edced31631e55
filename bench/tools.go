package bench

import (
	"context"

	"github.com/genuinetools/scanbench/summary"
)

// Identity is what an image source knows about a pulled image.
type Identity struct {
	// Digest is the content digest, or the local image id when Fallback is set.
	Digest   string
	Fallback bool
}

// ImageSource makes images available locally and reports their identity.
type ImageSource interface {
	Fetch(ctx context.Context, ref string) error
	Inspect(ctx context.Context, ref string) (Identity, error)
}

// Scanner writes a vulnerability report for ref to outPath.
type Scanner interface {
	Scan(ctx context.Context, ref, outPath string) error
}

// Toolchain is the full set of external tools a benchmark run needs.
type Toolchain interface {
	ImageSource
	Scanner
}

type toolchain struct {
	ImageSource
	Scanner
}

// NewToolchain combines an image source and a scanner.
func NewToolchain(src ImageSource, sc Scanner) Toolchain {
	return toolchain{ImageSource: src, Scanner: sc}
}

// RecordWriter is the append-only destination for scan records.
type RecordWriter interface {
	Write(summary.Record) error
}
