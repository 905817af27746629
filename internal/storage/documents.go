package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"warehouse-system/config"
	"warehouse-system/internal/ledger"
	"warehouse-system/internal/logger"
)

// MaxDocumentSize caps a single upload.
const MaxDocumentSize = 20 << 20

var ErrStorageDisabled = errors.New("document storage is not configured")

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// objectStore is the part of *minio.Client the document store uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Document struct {
	Object      string `json:"object"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// DocumentStore keeps supporting documents such as invoice scans. A nil
// store reports ErrStorageDisabled.
type DocumentStore struct {
	client  objectStore
	bucket  string
	baseURL string
	now     func() time.Time
}

func NewDocumentStore(cfg config.StorageConfig) (*DocumentStore, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return newDocumentStore(client, cfg.Bucket, fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)), nil
}

func newDocumentStore(client objectStore, bucket, baseURL string) *DocumentStore {
	return &DocumentStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (s *DocumentStore) EnsureBucket(ctx context.Context) error {
	if s == nil {
		return ErrStorageDisabled
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	logger.Info(ctx).Str("bucket", s.bucket).Msg("created document bucket")
	return nil
}

// Upload stores the file under documents/YYYY/MM/DD/ with a random name that
// keeps the original extension.
func (s *DocumentStore) Upload(ctx context.Context, filename string, r io.Reader, size int64) (*Document, error) {
	if s == nil {
		return nil, ErrStorageDisabled
	}
	if size <= 0 {
		return nil, ledger.Invalid("file", "is empty")
	}
	if size > MaxDocumentSize {
		return nil, ledger.Invalid("file", fmt.Sprintf("exceeds %d MB", MaxDocumentSize>>20))
	}
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return nil, ledger.Invalid("file", "unsupported file type "+ext)
	}

	object := fmt.Sprintf("documents/%s/%s%s", s.now().Format("2006/01/02"), uuid.NewString()[:8], ext)
	info, err := s.client.PutObject(ctx, s.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	return &Document{
		Object:      object,
		URL:         fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, object),
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	if s == nil {
		return ErrStorageDisabled
	}
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
