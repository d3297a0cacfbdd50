package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

const presignExpiry = 72 * time.Hour

// MinIOStore keeps assets in an S3 compatible bucket. Locations have the form
// s3://<bucket>/<key>.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, log logrus.FieldLogger) (*MinIOStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		log.WithField("bucket", bucket).Info("Created asset bucket")
	}

	return &MinIOStore{client: client, bucket: bucket}, nil
}

func (s *MinIOStore) Save(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, s.bucket, k, r, size, minio.PutObjectOptions{
		ContentType: contentTypeFor(k),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to MinIO: %w", k, err)
	}
	return s.location(k), nil
}

func (s *MinIOStore) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	bucket, key, err := parseLocation(location)
	if err != nil {
		return nil, 0, err
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", location, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("failed to stat %s: %w", location, err)
	}
	return obj, info.Size, nil
}

func (s *MinIOStore) PublicURL(ctx context.Context, location string) (string, error) {
	bucket, key, err := parseLocation(location)
	if err != nil {
		return "", err
	}

	u, err := s.client.PresignedGetObject(ctx, bucket, key, presignExpiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", location, err)
	}
	return u.String(), nil
}

func (s *MinIOStore) location(key string) string {
	return "s3://" + s.bucket + "/" + key
}

func parseLocation(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %q", location)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 location: %q", location)
	}
	return bucket, key, nil
}
