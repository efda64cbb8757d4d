package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
}

type s3Archive struct {
	client *minio.Client
	bucket string
	host   string
}

func NewS3Archive(ctx context.Context, cfg S3Config) (Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}

	// проверим, что бакет существует
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}

	return &s3Archive{
		client: client,
		bucket: cfg.Bucket,
		host:   fmt.Sprintf("%s://%s", scheme, cfg.Endpoint),
	}, nil
}

// ObjectKey — audio/<дата>/<имя файла на диске>
func ObjectKey(asset *Asset) string {
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("audio/%s/%s", date, filepath.Base(asset.Path))
}

func (s *s3Archive) Archive(ctx context.Context, asset *Asset) (string, error) {
	f, err := os.Open(asset.Path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	contentType := asset.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectKey(asset)
	_, err = s.client.PutObject(ctx, s.bucket, key, f, asset.Size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: objectMetadata(asset, time.Now()),
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	return s.buildPublicURL(key), nil
}

// objectMetadata — заголовки x-amz-meta-* только ASCII, имя экранируем
func objectMetadata(asset *Asset, uploadedAt time.Time) map[string]string {
	return map[string]string{
		"uploaded-at":   uploadedAt.Format(time.RFC3339),
		"original-name": url.QueryEscape(asset.OriginalName),
	}
}

func (s *s3Archive) buildPublicURL(key string) string {
	escapedKey := (&url.URL{Path: filepath.ToSlash(key)}).EscapedPath()
	return fmt.Sprintf("%s/%s/%s", s.host, s.bucket, escapedKey)
}
