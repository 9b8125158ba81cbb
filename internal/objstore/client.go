package objstore

import (
	"context"

	"github.com/closetmatch/closet-sync/internal/config"
)

// Client stores image blobs in a remote bucket. Uploads overwrite any
// previous object under the same path so a retried job is always safe to
// re-run in full.
type Client interface {
	Upload(ctx context.Context, bucket string, path string, data []byte, contentType string) error
	Remove(ctx context.Context, bucket string, path string) error
	PublicURL(bucket string, path string) string
}

// New builds the object store client selected by configuration.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.Storage.Provider {
	case "supabase":
		return NewSupabase(cfg.Storage.Supabase.Url, cfg.Storage.Supabase.Key)
	case "gcs":
		return NewGcs(ctx, cfg.Storage.Gcs.CredentialsFile)
	default:
		return NewMinio(
			WithEndpoint(cfg.Storage.S3.Endpoint),
			WithAccessKey(cfg.Storage.S3.AccessKey),
			WithSecretKey(cfg.Storage.S3.SecretKey),
			WithSSL(cfg.Storage.S3.UseSSL),
		)
	}
}
