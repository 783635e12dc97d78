package services

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore reads dataset objects from S3-compatible storage.
type ObjectStore interface {
	// Version returns an identifier that changes whenever the object changes.
	Version(ctx context.Context, bucket, key string) (string, error)
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// MinioObjectStore is an ObjectStore backed by minio-go.
type MinioObjectStore struct {
	client *minio.Client
}

// NewMinioObjectStore connects to an S3-compatible endpoint with static credentials.
func NewMinioObjectStore(endpoint, accessKey, secretKey string, useSSL bool) (*MinioObjectStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return &MinioObjectStore{client: client}, nil
}

// Version returns the object's ETag.
func (m *MinioObjectStore) Version(ctx context.Context, bucket, key string) (string, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("stat s3://%s/%s: %w", bucket, key, err)
	}
	return info.ETag, nil
}

// Fetch downloads the whole object.
func (m *MinioObjectStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}
