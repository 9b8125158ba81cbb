package objstore

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
)

type supabaseClient struct {
	storage *storage_go.Client
}

var _ Client = (*supabaseClient)(nil)

func NewSupabase(url string, key string) (Client, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, errors.Wrap(err, "initializing supabase client")
	}
	return &supabaseClient{storage: client.Storage}, nil
}

func (c *supabaseClient) Upload(ctx context.Context, bucket string, path string, data []byte, contentType string) error {
	upsert := true
	_, err := c.storage.UploadFile(bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return errors.Wrap(err, "uploading to supabase storage")
	}
	return nil
}

func (c *supabaseClient) Remove(ctx context.Context, bucket string, path string) error {
	if _, err := c.storage.RemoveFile(bucket, []string{path}); err != nil {
		return errors.Wrap(err, "removing from supabase storage")
	}
	return nil
}

func (c *supabaseClient) PublicURL(bucket string, path string) string {
	return c.storage.GetPublicUrl(bucket, path).SignedURL
}
