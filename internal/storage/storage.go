// Package storage publishes finished session files (statistics CSV,
// metrics textfile) to a local directory or a Google Cloud Storage bucket.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrBadTarget means a publish target string could not be parsed.
var ErrBadTarget = errors.New("invalid publish target")

// Store receives published files.
type Store interface {
	// Write stores the contents of r under name.
	Write(ctx context.Context, name string, r io.Reader) error
	// List returns the names of stored files, sorted.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Target is a parsed publish target.
type Target struct {
	Scheme string // "local" or "gs".
	Dir    string // local directory.
	Bucket string
	Prefix string
}

// ParseTarget accepts "local:<dir>", a bare directory, or
// "gs://<bucket>[/<prefix>]".
func ParseTarget(s string) (Target, error) {
	switch {
	case s == "":
		return Target{}, errors.Wrap(ErrBadTarget, "empty")
	case strings.HasPrefix(s, "gs://"):
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(s, "gs://"), "/")
		if bucket == "" {
			return Target{}, errors.Wrapf(ErrBadTarget, "%q has no bucket", s)
		}
		return Target{Scheme: "gs", Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
	case strings.HasPrefix(s, "local:"):
		s = strings.TrimPrefix(s, "local:")
		if s == "" {
			return Target{}, errors.Wrap(ErrBadTarget, "local target has no directory")
		}
	case strings.Contains(s, "://"):
		return Target{}, errors.Wrapf(ErrBadTarget, "unsupported scheme in %q", s)
	}
	return Target{Scheme: "local", Dir: s}, nil
}

// Open returns the Store for target. project is the GCP quota project and
// is ignored for local targets.
func Open(ctx context.Context, target, project string) (Store, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	if t.Scheme == "gs" {
		return NewGCSStore(ctx, project, t.Bucket, t.Prefix)
	}
	return NewLocalStore(t.Dir)
}

// Publish copies the file at path into store under its base name.
func Publish(ctx context.Context, store Store, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open file to publish")
	}
	defer f.Close()

	name := filepath.Base(path)
	if err := store.Write(ctx, name, f); err != nil {
		return "", errors.Wrapf(err, "publish %s", name)
	}
	return name, nil
}

// LocalStore implements Store on the local filesystem.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates baseDir if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create publish directory")
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Write copies r to baseDir/name through a temporary file.
func (s *LocalStore) Write(_ context.Context, name string, r io.Reader) error {
	tmp, err := os.CreateTemp(s.baseDir, "."+name+".*")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), filepath.Join(s.baseDir, name)), "rename file")
}

// List returns regular, non-hidden files in baseDir.
func (s *LocalStore) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errors.Wrap(err, "read publish directory")
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op.
func (s *LocalStore) Close() error { return nil }
