// Package media stores candidate images (photo, signature, thumb impression)
// in S3-compatible object storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MaxUploadBytes caps a single image upload.
const MaxUploadBytes int64 = 2 << 20

// Kinds of candidate images accepted by the portal.
const (
	KindPhoto      = "photo"
	KindSignature  = "signature"
	KindThumbprint = "thumbprint"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrUnknownKind     = errors.New("unknown image kind")
	ErrTooLarge        = errors.New("image exceeds size limit")
)

var contentTypeExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type Store struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	BaseURL   string
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Store{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

// ValidKind reports whether the path segment names a known image kind.
func ValidKind(kind string) bool {
	return kind == KindPhoto || kind == KindSignature || kind == KindThumbprint
}

// Upload stores one candidate image and returns its public URL. The object
// key is deterministic per user and kind, so a re-upload replaces the old
// image.
func (s *Store) Upload(ctx context.Context, userID, kind, contentType string, body io.Reader, size int64) (string, error) {
	if !ValidKind(kind) {
		return "", ErrUnknownKind
	}
	ext, ok := contentTypeExt[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	if size <= 0 || size > MaxUploadBytes {
		return "", ErrTooLarge
	}

	key := path.Join(userID, kind+ext)
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", kind, err)
	}

	return s.baseURL + "/" + key, nil
}

// Remove deletes the stored image for the kind, trying both extensions.
func (s *Store) Remove(ctx context.Context, userID, kind string) error {
	if !ValidKind(kind) {
		return ErrUnknownKind
	}
	for _, ext := range []string{".jpg", ".png"} {
		key := path.Join(userID, kind+ext)
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", kind, err)
		}
	}
	return nil
}
