package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskBackend stores artifacts as files below a root directory.
type DiskBackend struct {
	root string
}

// NewDiskBackend creates the root directory if needed.
// Failure wraps ErrConfiguration.
func NewDiskBackend(dir string) (*DiskBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: cache directory is required", ErrConfiguration)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		root = dir
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache directory %s: %v", ErrConfiguration, dir, err)
	}
	return &DiskBackend{root: root}, nil
}

// Root returns the absolute storage root.
func (d *DiskBackend) Root() string {
	return d.root
}

// Name implements Backend.
func (d *DiskBackend) Name() string {
	return "disk"
}

// Paths returns the body and header artifact paths for key. Callers must
// check the key with ValidateKey first.
func (d *DiskBackend) Paths(key string) (bodyPath, headersPath string) {
	base := filepath.Join(d.root, filepath.FromSlash(key))
	return base + BodySuffix, base + HeadersSuffix
}

// Load implements Backend. Both files are read unconditionally; a missing
// file on either side is a miss.
func (d *DiskBackend) Load(ctx context.Context, key string) ([]byte, []byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, nil, false, err
	}
	bodyPath, headersPath := d.Paths(key)

	body, err := os.ReadFile(bodyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("read body: %w", err)
	}

	headers, err := os.ReadFile(headersPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("read headers: %w", err)
	}

	return body, headers, true, nil
}

// Save implements Backend. The body is written first; the header file
// completes the entry.
func (d *DiskBackend) Save(ctx context.Context, key string, body, headers []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	bodyPath, headersPath := d.Paths(key)

	if err := os.MkdirAll(filepath.Dir(bodyPath), 0o755); err != nil {
		return fmt.Errorf("create entry directory: %w", err)
	}
	if err := writeFileAtomic(bodyPath, body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := writeFileAtomic(headersPath, headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory, syncs
// it and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
