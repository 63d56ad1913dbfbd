package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DirArchiver copies uploads into a local directory. It backs the CLI and
// local runs where no bucket is configured.
type DirArchiver struct {
	dir string
}

func NewDirArchiver(dir string) (*DirArchiver, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("objectstore: directory must not be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("objectstore: resolve %q: %w", dir, err)
	}
	return &DirArchiver{dir: abs}, nil
}

// Upload writes body to <dir>/<uuid>-<filename> and returns a file:// URL.
func (a *DirArchiver) Upload(_ context.Context, filename string, body io.Reader) (string, error) {
	if body == nil {
		return "", errors.New("objectstore: body must not be nil")
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", errors.New("objectstore: filename is required")
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("objectstore: create %q: %w", a.dir, err)
	}

	dst := filepath.Join(a.dir, newUUID()+"-"+name)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("objectstore: create file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("objectstore: write %q: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("objectstore: close %q: %w", dst, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}).String(), nil
}
