// Package migration exposes the schema script operators run on a fresh
// backend project. The script is shown and copied, never executed.
package migration

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Name is the suggested filename for the script.
const Name = "schema.sql"

//go:embed schema.sql
var script string

// Script returns the migration script text.
func Script() string {
	return script
}

// Copier places text on a clipboard.
type Copier interface {
	Copy(text string) error
}

// ErrCopyFailed is returned when the script could not be copied.
var ErrCopyFailed = errors.New("failed to copy migration script")

// Copy puts the script on the clipboard. Failures are not retried.
func Copy(ctx context.Context, c Copier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Copy(script); err != nil {
		return fmt.Errorf("%w: %w", ErrCopyFailed, err)
	}
	return nil
}

// Write saves the script to path, creating parent directories.
func Write(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		return fmt.Errorf("failed to write migration script: %w", err)
	}
	return nil
}
