// Package download saves export artifacts to their destination.
//
// An Artifact is the in-memory result of one export. Savers take it to its
// final location in one step, so a failed save never leaves a partial file.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// BOM is the UTF-8 byte-order mark prepended to CSV payloads so spreadsheet
// tools detect the encoding.
const BOM = "\uFEFF"

// Media types for the supported formats.
const (
	MediaTypeCSV  = "text/csv;charset=utf-8"
	MediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// maxNameAttempts bounds the "name (n).ext" search when overwriting is disabled.
const maxNameAttempts = 1000

// Artifact is a named payload ready to be saved.
type Artifact struct {
	Name      string
	MediaType string
	Data      []byte
}

// CSV wraps CSV text as an artifact, prefixing the byte-order mark.
func CSV(filename, content string) Artifact {
	data := make([]byte, 0, len(BOM)+len(content))
	data = append(data, BOM...)
	data = append(data, content...)
	return Artifact{Name: filename, MediaType: MediaTypeCSV, Data: data}
}

// Result describes a completed save.
type Result struct {
	// Path is where the artifact landed ("-" for a stream).
	Path  string
	Bytes int64
}

// Saver delivers artifacts.
type Saver interface {
	Save(ctx context.Context, a Artifact) (Result, error)
}

// Download saves CSV content under filename.
func Download(ctx context.Context, s Saver, filename, content string) (Result, error) {
	return s.Save(ctx, CSV(filename, content))
}

// DirSaver writes artifacts as files into a directory.
type DirSaver struct {
	Dir string
	// Overwrite replaces existing files. When false, a free "name (n).ext"
	// variant is chosen instead.
	Overwrite bool
	Logger    *slog.Logger
}

// NewDirSaver creates a saver rooted at dir.
// If logger is nil, a discard logger is used.
func NewDirSaver(dir string, overwrite bool, logger *slog.Logger) *DirSaver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DirSaver{Dir: dir, Overwrite: overwrite, Logger: logger}
}

// Save writes the artifact to a temp file in the target directory and
// renames it into place. The temp file is removed on any failure.
func (s *DirSaver) Save(ctx context.Context, a Artifact) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := validateName(a.Name); err != nil {
		return Result{}, err
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return Result{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	target, err := s.targetPath(dir, a.Name)
	if err != nil {
		return Result{}, err
	}

	tmp, err := os.CreateTemp(dir, "."+a.Name+".*.tmp")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	n, werr := tmp.Write(a.Data)
	if werr == nil {
		werr = tmp.Sync()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return Result{}, fmt.Errorf("failed to write %s: %w", a.Name, werr)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return Result{}, fmt.Errorf("failed to move %s into place: %w", a.Name, err)
	}
	committed = true

	s.Logger.Debug("artifact saved",
		slog.String("path", target),
		slog.String("media_type", a.MediaType),
		slog.Int("bytes", n))

	return Result{Path: target, Bytes: int64(n)}, nil
}

// targetPath returns the destination for name, avoiding existing files
// unless overwriting is enabled.
func (s *DirSaver) targetPath(dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	if s.Overwrite {
		return target, nil
	}
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		return target, nil
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxNameAttempts; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid file name %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q: must not contain path separators", name)
	}
	return nil
}

// WriterSaver streams artifacts to a writer, e.g. stdout.
type WriterSaver struct {
	W io.Writer
}

// Save writes the artifact payload to the underlying writer.
func (s *WriterSaver) Save(ctx context.Context, a Artifact) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	n, err := s.W.Write(a.Data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to write %s: %w", a.Name, err)
	}
	return Result{Path: "-", Bytes: int64(n)}, nil
}

var (
	_ Saver = (*DirSaver)(nil)
	_ Saver = (*WriterSaver)(nil)
)
