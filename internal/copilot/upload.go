package copilot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"papeterie/internal"
	"papeterie/internal/config"
	"papeterie/internal/storage"
)

// ErrFileTooLarge is returned for uploads over the configured size cap. The
// cap is enforced here and surfaced to the caller, never silently dropped.
var ErrFileTooLarge = errors.New("fichier trop volumineux")

// ErrUnsupportedFile is returned for extensions the pipeline cannot extract.
var ErrUnsupportedFile = errors.New("format de fichier non supporté")

var allowedExtensions = map[string]struct{}{
	".pdf": {}, ".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
	".txt": {}, ".csv": {}, ".xlsx": {}, ".xls": {},
}

// ObjectStore is the slice of the MinIO client the uploader needs.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NewObjectStore builds the MinIO client and makes sure the bucket exists.
func NewObjectStore(ctx context.Context, cfg config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3Bucket, minio.MakeBucketOptions{Region: cfg.S3Region}); err != nil {
			return nil, fmt.Errorf("bucket create: %w", err)
		}
	}
	return client, nil
}

// Uploader stores accepted school-list files in object storage and records
// the upload. Uploads are immutable once created; downstream state lives in
// the match and cart tables.
type Uploader struct {
	db    *storage.DB
	store ObjectStore
	cfg   config.Config
}

func NewUploader(db *storage.DB, store ObjectStore, cfg config.Config) *Uploader {
	return &Uploader{db: db, store: store, cfg: cfg}
}

func (u *Uploader) Upload(ctx context.Context, filename string, content []byte, schoolName, classLevel *string) (internal.SchoolListUpload, error) {
	if int64(len(content)) > u.cfg.MaxUploadBytes {
		return internal.SchoolListUpload{}, fmt.Errorf("%w: %s (%d octets, limite %d)", ErrFileTooLarge, filename, len(content), u.cfg.MaxUploadBytes)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return internal.SchoolListUpload{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}

	id := uuid.NewString()
	key := id + "/" + filepath.Base(filename)

	_, err := u.store.PutObject(ctx, u.cfg.S3Bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentTypeFor(ext),
	})
	if err != nil {
		return internal.SchoolListUpload{}, fmt.Errorf("stockage upload: %w", err)
	}

	upload := internal.SchoolListUpload{
		ID:         id,
		FileName:   filepath.Base(filename),
		ObjectKey:  key,
		Size:       int64(len(content)),
		SchoolName: schoolName,
		ClassLevel: classLevel,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := u.db.InsertUpload(upload); err != nil {
		return internal.SchoolListUpload{}, err
	}
	return upload, nil
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".xlsx", ".xls":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "text/plain"
	}
}
