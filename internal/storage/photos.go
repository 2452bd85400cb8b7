// Package storage хранит фотографии заявок в MinIO.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Допустимые типы фотографий и их расширения.
var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL - адрес, по которому объекты доступны клиентам.
	// По умолчанию строится из Endpoint.
	PublicURL string
}

// PhotoStorage загружает фотографии в бакет MinIO.
type PhotoStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewPhotoStorage подключается к MinIO и создаёт бакет, если его нет.
func NewPhotoStorage(ctx context.Context, cfg Config) (*PhotoStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}
	return &PhotoStorage{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// UploadPhoto сохраняет фотографию пользователя и возвращает её публичный URL.
func (s *PhotoStorage) UploadPhoto(ctx context.Context, ownerID string, body io.Reader, size int64, contentType string) (string, error) {
	name, err := ObjectName(ownerID, contentType)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, name, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	return PhotoURL(s.publicURL, s.bucket, name), nil
}

// AllowedPhotoType сообщает, принимается ли тип файла.
func AllowedPhotoType(contentType string) bool {
	_, ok := photoExtensions[contentType]
	return ok
}

// ObjectName строит имя объекта для фотографии пользователя.
func ObjectName(ownerID, contentType string) (string, error) {
	ext, ok := photoExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported photo type %q", contentType)
	}
	return path.Join("requests", url.PathEscape(ownerID), uuid.NewString()+ext), nil
}

func PhotoURL(publicURL, bucket, object string) string {
	return publicURL + "/" + bucket + "/" + object
}
