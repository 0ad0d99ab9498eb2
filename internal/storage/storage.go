package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config selects the S3 endpoint the writer talks to. Inside Lambda
// the credentials come from the execution-role env chain; locally they
// come from the same AWS_* variables.
type Config struct {
	Endpoint string
	Region   string
	Bucket   string
	UseSSL   bool
}

type Client struct {
	mc     *minio.Client
	config Config
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "s3.amazonaws.com"
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewEnvAWS(),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &Client{mc: mc, config: cfg}, nil
}

// Put writes one object. Objects are write-once: every invocation
// addresses a fresh key, nothing is ever updated in place.
func (c *Client) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := c.mc.PutObject(ctx, c.config.Bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", c.config.Bucket, key, err)
	}
	return nil
}

func (c *Client) BucketExists(ctx context.Context) (bool, error) {
	return c.mc.BucketExists(ctx, c.config.Bucket)
}

func (c *Client) Healthy(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.config.Bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", c.config.Bucket)
	}
	return nil
}

func (c *Client) Bucket() string {
	return c.config.Bucket
}
