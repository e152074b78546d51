// Package archive keeps copies of generated reports in Google Cloud Storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// GCSArchiver uploads objects into one bucket. It assumes Application
// Default Credentials are configured.
type GCSArchiver struct {
	client    *storage.Client
	bucket    string
	newWriter func(ctx context.Context, name string) io.WriteCloser
}

func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	a := &GCSArchiver{client: client, bucket: bucket}
	a.newWriter = func(ctx context.Context, name string) io.WriteCloser {
		w := client.Bucket(bucket).Object(name).NewWriter(ctx)
		w.ContentType = "text/csv; charset=utf-8"
		return w
	}
	return a, nil
}

// Upload writes data to gs://<bucket>/<name>.
func (a *GCSArchiver) Upload(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.newWriter(ctx, name)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", a.bucket, name, err)
	}
	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", a.bucket, name, err)
	}
	return nil
}

func (a *GCSArchiver) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}
