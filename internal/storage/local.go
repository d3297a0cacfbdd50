package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps assets on disk under root. Locations are keys relative to
// root, e.g. "videos/12_ab12cd34_1_final.mp4".
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates root if needed. baseURL is where root is served over
// HTTP (the /assets route); it may be empty.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return &LocalStore{root: root, baseURL: baseURL}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write asset %s: %w", k, err)
	}
	if size >= 0 && written != size {
		return "", fmt.Errorf("asset %s: wrote %d bytes, expected %d", k, written, size)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to store asset %s: %w", k, err)
	}
	return k, nil
}

func (s *LocalStore) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	k, err := cleanKey(location)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(k)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open asset %s: %w", k, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat asset %s: %w", k, err)
	}
	return f, info.Size(), nil
}

func (s *LocalStore) PublicURL(ctx context.Context, location string) (string, error) {
	if s.baseURL == "" {
		return "", ErrNoPublicURL
	}
	k, err := cleanKey(location)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/assets/" + k, nil
}
