package summary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Writer appends records to the summary file. A process holds one Writer
// for the whole run.
type Writer struct {
	path string
	f    *os.File
	csv  *csv.Writer
}

// Open opens the summary file at path for appending, creating it and its
// parent directories if needed. The header is written if and only if the
// file did not exist before or was empty.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating directory for %s failed: %w", path, err)
	}

	// An empty file counts as new so it still gets a header.
	fi, err := os.Stat(path)
	exists := err == nil && fi.Size() > 0
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking %s failed: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening %s failed: %w", path, err)
	}

	w := &Writer{
		path: path,
		f:    f,
		csv:  csv.NewWriter(f),
	}

	if !exists {
		if err := w.flush(Header); err != nil {
			f.Close()
			return nil, err
		}
	}

	return w, nil
}

// Path returns the location of the summary file.
func (w *Writer) Path() string {
	return w.path
}

// Write appends a single record and flushes it to disk.
func (w *Writer) Write(r Record) error {
	return w.flush(r.row())
}

func (w *Writer) flush(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("writing to %s failed: %w", w.path, err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("writing to %s failed: %w", w.path, err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
