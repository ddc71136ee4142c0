// Package objstore mirrors the local record tree to an S3-compatible
// bucket. Objects are keyed by their path relative to the local root, so
// two items' images never collide on filename.
package objstore

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type Mirror struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

func New(cfg Config) (*Mirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &Mirror{
		client: client,
		bucket: cfg.Bucket,
		logger: slog.Default().With("component", "objstore"),
	}, nil
}

// Sync walks the local root and uploads every file under it, returning
// the number of objects written.
func (m *Mirror) Sync(ctx context.Context, root string) (int, error) {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return 0, fmt.Errorf("failed to check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return 0, fmt.Errorf("failed to create bucket %s: %w", m.bucket, err)
		}
	}

	uploaded := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		key, err := ObjectKey(root, path)
		if err != nil {
			return err
		}

		if _, err := m.client.FPutObject(ctx, m.bucket, key, path, minio.PutObjectOptions{}); err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}

		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("mirror of %s failed: %w", root, err)
	}

	m.logger.Info("mirror complete", "bucket", m.bucket, "objects", uploaded)
	return uploaded, nil
}

// ObjectKey converts a local file path into its bucket key: the path
// relative to the root, with forward slashes.
func ObjectKey(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("failed to compute key for %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}
