// Package fsrepo stores observation records as XML files under a root
// directory, one file per observation at <root>/<collection>/<obsid>.xml.
// It backs dry runs, tests, and offline inspection of what a batch would
// write.
package fsrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/repository"
)

// Repo is a filesystem-backed repository.Repository.
type Repo struct {
	root string
}

var _ repository.Repository = (*Repo)(nil)

// New creates the root directory if needed and returns the repository.
func New(root string) (*Repo, error) {
	if root == "" {
		return nil, fmt.Errorf("fsrepo: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("fsrepo: creating root: %w", err)
	}
	return &Repo{root: root}, nil
}

func (r *Repo) path(uri caom.ObservationURI) string {
	return filepath.Join(r.root, uri.Collection, uri.ObservationID+".xml")
}

func (r *Repo) Read(ctx context.Context, uri caom.ObservationURI) (*caom.Observation, error) {
	data, err := os.ReadFile(r.path(uri))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("fsrepo: reading %s: %w", uri, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fsrepo: reading %s: %w", uri, err)
	}
	obs, err := caom.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("fsrepo: decoding %s: %w", uri, err)
	}
	return obs, nil
}

// Write stores the record atomically: the XML is staged in the target
// directory and renamed into place so readers never see a partial file.
func (r *Repo) Write(ctx context.Context, obs *caom.Observation) error {
	uri := obs.URI()
	data, err := caom.Marshal(obs)
	if err != nil {
		return fmt.Errorf("fsrepo: encoding %s: %w", uri, err)
	}
	path := r.path(uri)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("fsrepo: creating collection directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+uri.ObservationID+".*")
	if err != nil {
		return fmt.Errorf("fsrepo: staging %s: %w", uri, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("fsrepo: writing %s: %w", uri, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("fsrepo: writing %s: %w", uri, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("fsrepo: writing %s: %w", uri, err)
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, uri caom.ObservationURI) error {
	err := os.Remove(r.path(uri))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fsrepo: removing %s: %w", uri, repository.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("fsrepo: removing %s: %w", uri, err)
	}
	return nil
}
