package objstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type gcsClient struct {
	client *storage.Client
}

var _ Client = (*gcsClient)(nil)

// NewGcs builds a Google Cloud Storage client. Without an explicit
// credentials file it falls back to application default credentials.
func NewGcs(ctx context.Context, credentialsFile string) (Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &gcsClient{client: client}, nil
}

func (c *gcsClient) Upload(ctx context.Context, bucket string, path string, data []byte, contentType string) error {
	wc := c.client.Bucket(bucket).Object(path).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		return err
	}
	return wc.Close()
}

func (c *gcsClient) Remove(ctx context.Context, bucket string, path string) error {
	err := c.client.Bucket(bucket).Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (c *gcsClient) PublicURL(bucket string, path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, path)
}
