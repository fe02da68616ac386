package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemStore keeps media under a local directory, for self-hosted
// deployments that serve avatars from disk behind a static file server.
type FileSystemStore struct {
	root       string
	publicBase string
}

var _ Store = (*FileSystemStore)(nil)

// NewFileSystemStore creates a filesystem-backed media store rooted at root.
func NewFileSystemStore(root, publicBase string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating media root: %w", err)
	}
	return &FileSystemStore{
		root:       root,
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}, nil
}

// path maps a key to a file path, rejecting traversal outside the root.
func (f *FileSystemStore) path(key string) (string, error) {
	p := filepath.Join(f.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid media key: %s", key)
	}
	return p, nil
}

func (f *FileSystemStore) Put(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating media directory: %w", err)
	}

	// Write to a temp file first so a failed upload never leaves a
	// truncated object at the final key.
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	if size >= 0 && n != size {
		os.Remove(tmpPath)
		return fmt.Errorf("size mismatch for %s: expected %d bytes, got %d", key, size, n)
	}

	if err := os.Rename(tmpPath, p); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storing object %s: %w", key, err)
	}
	return nil
}

func (f *FileSystemStore) Get(_ context.Context, key string, w io.Writer) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	file, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("opening object %s: %w", key, err)
	}
	defer file.Close()

	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("reading object %s: %w", key, err)
	}
	return nil
}

func (f *FileSystemStore) URL(key string) string {
	if f.publicBase == "" {
		return "file://" + filepath.Join(f.root, filepath.FromSlash(key))
	}
	return f.publicBase + "/" + key
}

func (f *FileSystemStore) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}
