package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore stores artifacts in an S3-compatible object store.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the object store and ensures the bucket exists.
func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, contentType string, data []byte) (*Artifact, error) {
	if len(data) == 0 {
		return nil, ErrEmptyArtifact
	}
	if len(data) > MaxArtifactSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrArtifactTooLarge, len(data))
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	sum := sha256.Sum256(data)
	return &Artifact{
		Ref:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Checksum:    hex.EncodeToString(sum[:]),
		StoredAt:    time.Now().UTC(),
	}, nil
}

// Presign issues a time-limited download URL signed against the object
// store, so artifact bytes never stream through the API server.
func (s *MinioStore) Presign(ctx context.Context, ref string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, ref, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", ref, err)
	}
	return u.String(), nil
}

func (s *MinioStore) Get(ctx context.Context, ref string) ([]byte, *Artifact, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object %s: %w", ref, err)
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(obj); err != nil {
		var respErr minio.ErrorResponse
		if errors.As(err, &respErr) && respErr.Code == "NoSuchKey" {
			return nil, nil, ErrArtifactNotFound
		}
		return nil, nil, fmt.Errorf("read object %s: %w", ref, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat object %s: %w", ref, err)
	}

	data := buf.Bytes()
	sum := sha256.Sum256(data)
	return data, &Artifact{
		Ref:         ref,
		ContentType: stat.ContentType,
		Size:        stat.Size,
		Checksum:    hex.EncodeToString(sum[:]),
		StoredAt:    stat.LastModified,
	}, nil
}
