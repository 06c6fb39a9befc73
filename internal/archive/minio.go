package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/drawhub/drawhub/backend/go-services/internal/config"
)

// Store keeps superseded diagram payloads in MinIO, one object per committed
// version, so an overwritten payload can always be recovered. Callers treat
// a nil *Store as "archiving disabled".
type Store struct {
	client *minio.Client
	bucket string
}

// New creates the archive client and ensures the bucket exists.
func New(cfg *config.ArchiveConfig) (*Store, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("archive config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &Store{client: mc, bucket: cfg.Bucket}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// tolerate "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

func snapshotKey(diagramID string, version int64) string {
	return fmt.Sprintf("%s/v%d.json", diagramID, version)
}

// PutSnapshot stores the payload that held the given version.
func (s *Store) PutSnapshot(ctx context.Context, diagramID string, version int64, payload []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, snapshotKey(diagramID, version),
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

// GetSnapshot returns the archived payload for a version.
func (s *Store) GetSnapshot(ctx context.Context, diagramID string, version int64) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, snapshotKey(diagramID, version), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	if _, err := obj.Stat(); err != nil {
		return nil, err
	}
	return io.ReadAll(obj)
}

// PresignSnapshot returns a presigned GET URL valid for the given duration.
func (s *Store) PresignSnapshot(ctx context.Context, diagramID string, version int64, expires time.Duration) (string, error) {
	reqParams := make(url.Values)
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, snapshotKey(diagramID, version), expires, reqParams)
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}
