package storage

import (
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore implements Store using Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore connects with application default credentials and checks
// the bucket is reachable. A non-empty projectID is billed as the quota
// project.
func NewGCSStore(ctx context.Context, projectID, bucket, prefix string) (*GCSStore, error) {
	var opts []option.ClientOption
	if projectID != "" {
		opts = append(opts, option.WithQuotaProject(projectID))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create GCS client")
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "access bucket %s", bucket)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// Write uploads r as object prefix/name.
func (s *GCSStore) Write(ctx context.Context, name string, r io.Reader) error {
	w := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewWriter(ctx)
	w.ContentType = contentType(name)

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrap(err, "write to GCS")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "close GCS writer")
	}
	return nil
}

// List returns object names under the prefix, relative to it.
func (s *GCSStore) List(ctx context.Context) ([]string, error) {
	prefix := ""
	if s.prefix != "" {
		prefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "list GCS objects")
		}
		name := strings.TrimPrefix(attrs.Name, prefix)
		if name != "" && !strings.HasSuffix(name, "/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the client.
func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".prom", ".log":
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
