package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/example/zinco/internal/config"
)

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// objectAPI is the part of *minio.Client the avatar store uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// AvatarStorage keeps profile pictures in an S3-compatible bucket.
type AvatarStorage struct {
	api     objectAPI
	bucket  string
	baseURL string
}

// NewAvatarStorage connects to the configured MinIO endpoint and makes
// sure the bucket exists.
func NewAvatarStorage(ctx context.Context, cfg config.Storage) (*AvatarStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return newAvatarStorage(ctx, client, cfg.Bucket, baseURL)
}

func newAvatarStorage(ctx context.Context, api objectAPI, bucket, baseURL string) (*AvatarStorage, error) {
	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &AvatarStorage{api: api, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload stores an avatar image for deviceID and returns its public URL.
func (s *AvatarStorage) Upload(ctx context.Context, deviceID uuid.UUID, contentType string, reader io.Reader, size int64) (string, error) {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported avatar type %q", contentType)
	}

	key := path.Join("avatars", deviceID.String(), uuid.NewString()+ext)
	_, err := s.api.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key), nil
}
