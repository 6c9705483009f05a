package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioImageStore keeps images in an S3-compatible bucket. Object keys are
// the stored paths themselves.
type MinioImageStore struct {
	client *minio.Client
	bucket string
}

type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	return raw, false, nil
}

// NewMinioImageStore connects to the endpoint and checks the bucket exists.
func NewMinioImageStore(ctx context.Context, opts MinioOptions) (*MinioImageStore, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket does not exist: %s", opts.Bucket)
	}

	return &MinioImageStore{client: client, bucket: opts.Bucket}, nil
}

func (s *MinioImageStore) Save(ctx context.Context, r io.Reader, size int64, originalName string) (string, error) {
	key := storedPath(storedName(originalName))
	if size <= 0 {
		size = -1
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentTypeFor(key),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

func (s *MinioImageStore) Delete(ctx context.Context, p string) error {
	if _, ok := nameFromPath(p); !ok {
		return ErrImageNotFound
	}
	// RemoveObject succeeds on missing keys, so stat first.
	if _, err := s.client.StatObject(ctx, s.bucket, p, minio.StatObjectOptions{}); err != nil {
		return mapMinioErr(err)
	}
	return s.client.RemoveObject(ctx, s.bucket, p, minio.RemoveObjectOptions{})
}

func (s *MinioImageStore) Open(ctx context.Context, p string) (*Object, error) {
	if _, ok := nameFromPath(p); !ok {
		return nil, ErrImageNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, p, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapMinioErr(err)
	}

	ct := info.ContentType
	if ct == "" {
		ct = contentTypeFor(p)
	}
	return &Object{ReadCloser: obj, Size: info.Size, ContentType: ct}, nil
}

func mapMinioErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrImageNotFound
	}
	return fmt.Errorf("minio: %w", err)
}
