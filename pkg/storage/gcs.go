package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const publicHost = "https://storage.googleapis.com"

// ErrForeignURL is returned by Delete for URLs that do not point into the bucket
var ErrForeignURL = errors.New("url does not belong to bucket")

// GCS stores objects in a single Google Cloud Storage bucket and addresses them by public URL
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a client for bucket. If credsPath is empty, ADC is used.
func NewGCS(ctx context.Context, bucket, credsPath string) (*GCS, error) {
	var opts []option.ClientOption
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCS{client: client, bucket: bucket}, nil
}

// Upload writes r to objectPath and returns the object's public URL
func (g *GCS) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	wc := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0 // avatars are small, upload in a single request

	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}

	return PublicURL(g.bucket, objectPath), nil
}

// Delete removes the object behind a URL returned by Upload. Deleting an
// object that no longer exists succeeds.
func (g *GCS) Delete(ctx context.Context, objectURL string) error {
	objectPath, err := ObjectPath(g.bucket, objectURL)
	if err != nil {
		return err
	}

	err = g.client.Bucket(g.bucket).Object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", objectPath, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// PublicURL builds a public URL for an object. Each path segment is escaped
// so ObjectPath can recover the exact object name.
func PublicURL(bucket, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s", publicHost, bucket, strings.Join(segments, "/"))
}

// ObjectPath is the inverse of PublicURL
func ObjectPath(bucket, objectURL string) (string, error) {
	u, err := url.Parse(objectURL)
	if err != nil {
		return "", fmt.Errorf("invalid object url: %w", err)
	}

	prefix := "/" + bucket + "/"
	if u.Scheme+"://"+u.Host != publicHost || !strings.HasPrefix(u.Path, prefix) {
		return "", fmt.Errorf("%s: %w", objectURL, ErrForeignURL)
	}

	objectPath := strings.TrimPrefix(u.Path, prefix)
	if objectPath == "" {
		return "", fmt.Errorf("%s: %w", objectURL, ErrForeignURL)
	}
	return objectPath, nil
}
