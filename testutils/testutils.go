// Package testutils holds test doubles for the external tools a benchmark
// run shells out to.
package testutils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/genuinetools/scanbench/bench"
)

// ErrFake is returned by the fake for every configured failure.
var ErrFake = errors.New("fake tool failure")

// EmptyReport is a report without findings.
const EmptyReport = `[{"Target":"fake","Vulnerabilities":[]}]`

// Call is a single invocation seen by the fake.
type Call struct {
	Op      string
	Ref     string
	OutPath string
}

// FakeTools is an in-memory bench.Toolchain.
type FakeTools struct {
	// FetchFail and ScanFail list references that fail at that stage.
	FetchFail map[string]bool
	ScanFail  map[string]bool
	// Digests maps a reference to its content digest. References without
	// one get a fallback local id.
	Digests map[string]string
	// InspectErr makes every Inspect call fail.
	InspectErr error
	// Reports maps a reference to the report written on scan, EmptyReport
	// otherwise.
	Reports map[string]string
	// ScanDelay is slept inside every scan.
	ScanDelay time.Duration
	// OnScan runs before each scan returns.
	OnScan func(ref string)

	mu    sync.Mutex
	calls []Call
}

var _ bench.Toolchain = &FakeTools{}

// Fetch implements bench.ImageSource.
func (f *FakeTools) Fetch(_ context.Context, ref string) error {
	f.record(Call{Op: "fetch", Ref: ref})
	if f.FetchFail[ref] {
		return fmt.Errorf("pull %s: %w", ref, ErrFake)
	}
	return nil
}

// Inspect implements bench.ImageSource.
func (f *FakeTools) Inspect(_ context.Context, ref string) (bench.Identity, error) {
	f.record(Call{Op: "inspect", Ref: ref})
	if f.InspectErr != nil {
		return bench.Identity{}, f.InspectErr
	}
	if d, ok := f.Digests[ref]; ok {
		return bench.Identity{Digest: d}, nil
	}
	return bench.Identity{Digest: "sha256:local-" + ref, Fallback: true}, nil
}

// Scan implements bench.Scanner.
func (f *FakeTools) Scan(_ context.Context, ref, outPath string) error {
	f.record(Call{Op: "scan", Ref: ref, OutPath: outPath})
	if f.ScanDelay > 0 {
		time.Sleep(f.ScanDelay)
	}
	if f.OnScan != nil {
		f.OnScan(ref)
	}
	if f.ScanFail[ref] {
		return fmt.Errorf("scan %s: %w", ref, ErrFake)
	}

	report, ok := f.Reports[ref]
	if !ok {
		report = EmptyReport
	}
	return os.WriteFile(outPath, []byte(report), 0644)
}

// Calls returns every invocation in order.
func (f *FakeTools) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeTools) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

// WriteScript writes an executable shell script named name into a
// temporary directory and returns its path. The test is skipped where
// shell scripts cannot run.
func WriteScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}
