// Package storage persists uploaded fax files on local disk. Each file
// gets a unique generated name, so concurrent uploads never collide and
// no cross-request locking is needed.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faxsign/faxsign/internal"
)

type LocalStore struct {
	dir string
}

func NewLocalStore(cfg internal.StorageConfig) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: cfg.UploadDir}, nil
}

// Save writes the stream to a uniquely named file and returns the name
// relative to the store. The original name is kept as a suffix for
// operator convenience, sanitized to its base name.
func (s *LocalStore) Save(src io.Reader, originalName string) (string, error) {
	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "fax"
	}

	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString(), base)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}

	return name, nil
}

// Open returns the stored file for serving. Names are generated by Save,
// but the base-name check keeps a corrupted record from escaping the
// upload dir.
func (s *LocalStore) Open(name string) (*os.File, error) {
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid stored file name %q", name)
	}
	return os.Open(filepath.Join(s.dir, name))
}

// Remove deletes a stored file. Used when a fax row insert fails after
// the bytes already hit disk.
func (s *LocalStore) Remove(name string) error {
	if filepath.Base(name) != name {
		return fmt.Errorf("invalid stored file name %q", name)
	}
	return os.Remove(filepath.Join(s.dir, name))
}
