package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"linkrental/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveService keeps an append-only JSON history of rental records for audit.
type ArchiveService interface {
	EnsureBucketExists(ctx context.Context) error
	ArchiveSnapshot(ctx context.Context, rental *models.RentalRequest, at time.Time) error
	Ping(ctx context.Context) error
}

type minioArchive struct {
	client *minio.Client
	bucket string
}

func NewMinioArchiveService(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (ArchiveService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioArchive{client: client, bucket: bucket}, nil
}

// SnapshotObjectName orders snapshots of one rental by time within its prefix.
func SnapshotObjectName(rental *models.RentalRequest, at time.Time) string {
	return fmt.Sprintf("rentals/%s/%d-%s.json", rental.ID, at.UnixNano(), rental.Status)
}

func (m *minioArchive) ArchiveSnapshot(ctx context.Context, rental *models.RentalRequest, at time.Time) error {
	data, err := json.Marshal(rental)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = m.client.PutObject(ctx, m.bucket, SnapshotObjectName(rental, at), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

func (m *minioArchive) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioArchive) Ping(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}
