// Package ingest copies inbound byte streams to temporary disk files under
// size limits, and decides which storage tier a completed file lands in.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// copyBufferSize is the internal buffer flushed to disk during streaming.
const copyBufferSize = 8 * 1024

var (
	// ErrFileTooLarge is returned when a single stream exceeds the per-file cap.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
	// ErrRequestTooLarge is returned when a request's aggregate size exceeds the cap.
	ErrRequestTooLarge = errors.New("request exceeds maximum total size")
	// ErrFileTooSmall is returned when a stream is below the configured minimum.
	ErrFileTooSmall = errors.New("file below minimum size")
)

// Budget tracks the aggregate bytes ingested across all files in one request.
// It is owned by a single request and not safe for concurrent use.
type Budget struct {
	max  int64
	used int64
}

// NewBudget creates a per-request aggregate budget of max bytes.
func NewBudget(max int64) *Budget {
	return &Budget{max: max}
}

// add charges n bytes against the budget, reporting whether it still fits.
func (b *Budget) add(n int64) bool {
	b.used += n
	return b.used <= b.max
}

// Used returns the bytes charged so far.
func (b *Budget) Used() int64 { return b.used }

// Engine streams uploads to uniquely named files under a temp directory.
type Engine struct {
	tempDir     string
	maxFileSize int64
	minFileSize int64
}

// NewEngine creates an ingestion engine. minFileSize of zero disables the
// minimum-size check.
func NewEngine(tempDir string, maxFileSize, minFileSize int64) *Engine {
	return &Engine{tempDir: tempDir, maxFileSize: maxFileSize, minFileSize: minFileSize}
}

// TempPath returns the on-disk location for the given file identifier.
func (e *Engine) TempPath(id string) string {
	return filepath.Join(e.tempDir, "file_"+id)
}

// SaveStream copies r to the temp file for id, enforcing the per-file cap and
// the request budget while reading. On any failure the partial file is removed
// and the budget is left charged with the bytes consumed before the abort.
// Returns the exact byte count written.
func (e *Engine) SaveStream(ctx context.Context, r io.Reader, id string, budget *Budget) (int64, error) {
	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return 0, fmt.Errorf("create temp directory: %w", err)
	}

	path := e.TempPath(id)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	total, err := e.copy(ctx, f, r, budget)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close temp file: %w", cerr)
	}
	if err == nil && e.minFileSize > 0 && total < e.minFileSize {
		err = ErrFileTooSmall
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Err(rmErr).Str("path", path).Msg("failed to remove partial temp file")
		}
		return 0, err
	}

	return total, nil
}

func (e *Engine) copy(ctx context.Context, w io.Writer, r io.Reader, budget *Budget) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var total int64

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > e.maxFileSize {
				return total, ErrFileTooLarge
			}
			if !budget.add(int64(n)) {
				return total, ErrRequestTooLarge
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("write temp file: %w", werr)
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, fmt.Errorf("read upload stream: %w", rerr)
		}
	}
}

// Remove deletes the temp file for id, ignoring files already gone.
func (e *Engine) Remove(id string) error {
	err := os.Remove(e.TempPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
