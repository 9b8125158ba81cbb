package objstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint  string
	accessKey string
	secretKey string
	useSSL    bool
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}

type minioClient struct {
	cfg    *minioConfig
	client *minio.Client
}

var _ Client = (*minioClient)(nil)

func NewMinio(opts ...MinioOpts) (Client, error) {
	cfg := &minioConfig{}
	for _, o := range opts {
		o(cfg)
	}

	// Initialize minio client object.
	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, err
	}

	return &minioClient{cfg: cfg, client: client}, nil
}

func (c *minioClient) Upload(ctx context.Context, bucket string, path string, data []byte, contentType string) error {
	_, err := c.client.PutObject(ctx, bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (c *minioClient) Remove(ctx context.Context, bucket string, path string) error {
	return c.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{})
}

func (c *minioClient) PublicURL(bucket string, path string) string {
	return fmt.Sprintf("%s/%s/%s", c.client.EndpointURL(), bucket, path)
}
