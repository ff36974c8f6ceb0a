package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/daybook/internal/apperr"
)

// FileExt is appended to created files that have no extension.
const FileExt = ".json"

// FS implements Gateway on the local file system, confined to a root
// directory (for example a mounted removable drive).
type FS struct {
	root   string // absolute path to the directory files are picked from
	picker Picker
	logger *slog.Logger
}

var (
	_ Gateway = (*FS)(nil)
	_ Watcher = (*FS)(nil)
)

// NewFS creates a gateway rooted at root. The directory does not have to
// exist yet; IsCapable reports false until it does. A nil logger uses
// slog.Default.
func NewFS(root string, picker Picker, logger *slog.Logger) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{root: abs, picker: picker, logger: logger}, nil
}

// IsCapable reports whether the root is a reachable directory and a picker
// is configured.
func (f *FS) IsCapable() bool {
	if f.picker == nil {
		return false
	}
	info, err := os.Stat(f.root)
	return err == nil && info.IsDir()
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(rel))
	if cleaned == "." || cleaned == "" {
		return "", fmt.Errorf("storage: empty file name")
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// PickAndOpen asks the picker for an existing file and reads it.
func (f *FS) PickAndOpen(ctx context.Context) (Opened, error) {
	if !f.IsCapable() {
		return Opened{}, apperr.ErrCapabilityUnavailable
	}
	name, err := f.picker.Pick(ctx, ModeOpen)
	if err != nil {
		return Opened{}, err
	}
	abs, err := f.safePath(name)
	if err != nil {
		return Opened{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Opened{}, fmt.Errorf("storage: open %s: %w", name, apperr.ErrNotFound)
		}
		return Opened{}, fmt.Errorf("storage: read %s: %w", name, err)
	}
	display := filepath.Base(abs)
	return Opened{Handle: NewHandle(display, abs), Data: data, DisplayName: display}, nil
}

// PickAndCreate asks the picker for a destination and writes data there.
func (f *FS) PickAndCreate(ctx context.Context, data []byte) (Created, error) {
	if !f.IsCapable() {
		return Created{}, apperr.ErrCapabilityUnavailable
	}
	name, err := f.picker.Pick(ctx, ModeCreate)
	if err != nil {
		return Created{}, err
	}
	if filepath.Ext(name) == "" {
		name += FileExt
	}
	abs, err := f.safePath(name)
	if err != nil {
		return Created{}, err
	}
	if err := atomicWrite(abs, data); err != nil {
		return Created{}, fmt.Errorf("%w: %w", apperr.ErrHandleWrite, err)
	}
	display := filepath.Base(abs)
	return Created{Handle: NewHandle(display, abs), DisplayName: display}, nil
}

// Write replaces the file behind h.
func (f *FS) Write(ctx context.Context, h *Handle, data []byte) error {
	if !f.IsCapable() {
		return apperr.ErrCapabilityUnavailable
	}
	if !h.Live() {
		return fmt.Errorf("%w: handle is not valid in this process", apperr.ErrHandleWrite)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(h.Locator(), f.root+string(os.PathSeparator)) {
		return fmt.Errorf("%w: handle outside root", apperr.ErrHandleWrite)
	}
	if err := atomicWrite(h.Locator(), data); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrHandleWrite, err)
	}
	return nil
}

// atomicWrite writes content via tmp file, fsync, rename so a reader never
// sees a half-written file.
func atomicWrite(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".daybook-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
