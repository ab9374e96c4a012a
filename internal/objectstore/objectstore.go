// Package objectstore uploads export files to an S3-compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Clark-Hu/movielens-api/internal/config"
	"github.com/Clark-Hu/movielens-api/internal/logging"
)

// Uploader writes objects into one bucket.
type Uploader struct {
	client *minio.Client
	bucket string
}

// New connects to the configured endpoint and creates the bucket if needed.
func New(ctx context.Context, cfg config.ExportConfig) (*Uploader, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	u := &Uploader{client: client, bucket: cfg.Bucket}
	if err := u.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logging.Info().
		Str("endpoint", endpoint).
		Str("bucket", cfg.Bucket).
		Bool("use_ssl", cfg.UseSSL).
		Msg("object store ready")
	return u, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	logging.Info().Str("bucket", u.bucket).Msg("bucket created")
	return nil
}

// ObjectName derives a unique, dated key for an export of filename.
func ObjectName(filename string, now time.Time) string {
	ext := path.Ext(filename)
	base := strings.TrimSuffix(path.Base(filename), ext)
	return fmt.Sprintf("exports/%s/%s_%s%s", now.UTC().Format("2006-01-02"), base, uuid.New().String()[:8], ext)
}

// Upload stores size bytes of r under name and returns the object key.
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	info, err := u.client.PutObject(ctx, u.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	logging.Info().
		Str("bucket", info.Bucket).
		Str("key", info.Key).
		Int64("size", info.Size).
		Msg("export uploaded")
	return info.Key, nil
}
