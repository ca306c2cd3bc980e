// Package storage uploads public objects to Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// PublicHost serves publicly readable GCS objects.
const PublicHost = "https://storage.googleapis.com"

// GCS writes objects into one bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS builds a client from credentialsJSON, or from application default
// credentials when it is empty.
func NewGCS(ctx context.Context, bucket, credentialsJSON string) (*GCS, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: new client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Put stores r under key, readable by anyone, and returns its public URL.
func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.PredefinedACL = "publicRead"
	w.CacheControl = "public, max-age=31536000"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", key, err)
	}
	return PublicURL(g.bucket, key), nil
}

// Delete removes key. A missing object is not an error.
func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Close releases the client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// PublicURL is the address of a publicly readable object.
func PublicURL(bucket, key string) string {
	return PublicHost + "/" + bucket + "/" + key
}
