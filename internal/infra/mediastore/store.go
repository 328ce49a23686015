package mediastore

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store keeps generated media in a MinIO (S3-compatible) bucket so that
// generation records can reference a stable URL instead of carrying bytes.
type Store struct {
	client *minio.Client
	bucket string
	secure bool

	mu      sync.Mutex
	ensured bool
}

func NewStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Store{client: client, bucket: bucket, secure: useSSL}, nil
}

// ensureBucket checks the bucket exists, creating it on first use. A failed
// check is not latched; the next Save tries again, so a transient outage at
// startup does not disable the store for the process lifetime.
func (s *Store) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket exists: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}

	s.ensured = true
	return nil
}

// Save uploads one media object and returns its public URL.
func (s *Store) Save(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectName, err)
	}

	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, objectName), nil
}
