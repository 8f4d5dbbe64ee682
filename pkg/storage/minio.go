package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore puts images into an S3-compatible bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewMinIOStore connects and verifies that the bucket exists.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// Put returns "{bucket}/{object}".
func (m *MinIOStore) Put(ctx context.Context, owner string, r io.Reader, size int64, contentType string) (string, error) {
	name := ObjectName(owner, m.now(), contentType)
	_, err := m.client.PutObject(ctx, m.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return m.bucket + "/" + name, nil
}

func (m *MinIOStore) Delete(ctx context.Context, ref string) error {
	return m.client.RemoveObject(ctx, m.bucket, m.objectName(ref), minio.RemoveObjectOptions{})
}

// PresignedURL returns a URL valid for ttl that serves the image.
func (m *MinIOStore) PresignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, m.objectName(ref), ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

func (m *MinIOStore) objectName(ref string) string {
	return strings.TrimPrefix(ref, m.bucket+"/")
}
