package roadnet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// FetchOptions configures a Fetcher against MinIO or any S3-compatible
// object store holding prepared road network extracts.
type FetchOptions struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Fetcher downloads road network documents from object storage so that
// deployments do not have to bake multi-hundred-megabyte extracts into
// their images.
type Fetcher struct {
	client *minio.Client
	bucket string
}

// NewFetcher creates a Fetcher for the given object store.
func NewFetcher(opts FetchOptions) (*Fetcher, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return &Fetcher{client: client, bucket: opts.Bucket}, nil
}

// Fetch downloads object into path unless path already exists. It returns
// true when a download actually happened.
func (f *Fetcher) Fetch(ctx context.Context, object, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking local road network file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating road network directory: %w", err)
	}
	if err := f.client.FGetObject(ctx, f.bucket, object, path, minio.GetObjectOptions{}); err != nil {
		return false, fmt.Errorf("fetching %s from bucket %s: %w", object, f.bucket, err)
	}
	return true, nil
}
