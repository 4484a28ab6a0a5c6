package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jwalitptl/practice-api/internal/config"
	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

// MinioBackend talks to any S3 compatible endpoint.
type MinioBackend struct {
	client *minio.Client
	region string
}

func NewMinioBackend(cfg config.StorageConfig) (*MinioBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &MinioBackend{client: client, region: cfg.Region}, nil
}

func (b *MinioBackend) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return b.client.BucketExists(ctx, bucket)
}

func (b *MinioBackend) MakeBucket(ctx context.Context, bucket string) error {
	return b.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: b.region})
}

func (b *MinioBackend) PutObject(ctx context.Context, bucket, objectPath string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, bucket, objectPath, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (b *MinioBackend) GetObject(ctx context.Context, bucket, objectPath string) (io.ReadCloser, *model.StorageObject, error) {
	obj, err := b.client.GetObject(ctx, bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, mapMinioError(err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, nil, mapMinioError(err)
	}
	return obj, toStorageObject(bucket, info), nil
}

func (b *MinioBackend) ListObjects(ctx context.Context, bucket, prefix string) ([]model.StorageObject, error) {
	objects := []model.StorageObject{}
	for info := range b.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, mapMinioError(info.Err)
		}
		objects = append(objects, *toStorageObject(bucket, info))
	}
	return objects, nil
}

func (b *MinioBackend) RemoveObject(ctx context.Context, bucket, objectPath string) error {
	return b.client.RemoveObject(ctx, bucket, objectPath, minio.RemoveObjectOptions{})
}

func toStorageObject(bucket string, info minio.ObjectInfo) *model.StorageObject {
	return &model.StorageObject{
		Bucket:       bucket,
		Path:         info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}
}

func mapMinioError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%s: %w", err.Error(), apperrors.ErrRecordNotFound)
	}
	return err
}
