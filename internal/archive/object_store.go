package archive

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/emberware/ticketbot/internal/config"
)

// MinioStore writes objects to S3-compatible storage (R2, S3, MinIO). Public
// read access is configured on the bucket or CDN, not per object.
type MinioStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewMinioStore connects to the configured endpoint. Returns nil when storage
// is not configured, which disables archival without failing startup.
func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	if !cfg.Configured() {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinioStore{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinioStore) PublicURL(key string) string {
	return s.publicBaseURL + "/" + key
}
