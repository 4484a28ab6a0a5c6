package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type bucketRow struct {
	Name             string         `db:"name"`
	Public           bool           `db:"public"`
	AllowedMimeTypes pq.StringArray `db:"allowed_mime_types"`
	FileSizeLimit    int64          `db:"file_size_limit"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (r bucketRow) toModel() *model.Bucket {
	return &model.Bucket{
		BucketPolicy: model.BucketPolicy{
			Name:             r.Name,
			Public:           r.Public,
			AllowedMimeTypes: []string(r.AllowedMimeTypes),
			FileSizeLimit:    r.FileSizeLimit,
		},
		CreatedAt: r.CreatedAt,
	}
}

type bucketRepository struct {
	db *sqlx.DB
}

func NewBucketRepository(db *sqlx.DB) repository.BucketRepository {
	return &bucketRepository{db: db}
}

func (r *bucketRepository) Create(ctx context.Context, bucket *model.Bucket) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO storage_buckets (name, public, allowed_mime_types, file_size_limit, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING
		RETURNING created_at`,
		bucket.Name, bucket.Public, pq.StringArray(bucket.AllowedMimeTypes), bucket.FileSizeLimit, bucket.CreatedAt,
	).Scan(&bucket.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Conflict(fmt.Sprintf("bucket %s already exists", bucket.Name), nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upsert keeps the original created_at when the bucket already exists.
func (r *bucketRepository) Upsert(ctx context.Context, bucket *model.Bucket) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO storage_buckets (name, public, allowed_mime_types, file_size_limit, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			public = EXCLUDED.public,
			allowed_mime_types = EXCLUDED.allowed_mime_types,
			file_size_limit = EXCLUDED.file_size_limit
		RETURNING created_at`,
		bucket.Name, bucket.Public, pq.StringArray(bucket.AllowedMimeTypes), bucket.FileSizeLimit, bucket.CreatedAt,
	).Scan(&bucket.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert bucket: %w", err)
	}
	return nil
}

func (r *bucketRepository) Get(ctx context.Context, name string) (*model.Bucket, error) {
	var row bucketRow
	err := r.db.GetContext(ctx, &row, `
		SELECT name, public, allowed_mime_types, file_size_limit, created_at
		FROM storage_buckets WHERE name = $1`, name)
	if err != nil {
		return nil, notFound(err, "bucket")
	}
	return row.toModel(), nil
}

func (r *bucketRepository) List(ctx context.Context) ([]*model.Bucket, error) {
	var rows []bucketRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT name, public, allowed_mime_types, file_size_limit, created_at
		FROM storage_buckets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	buckets := make([]*model.Bucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, row.toModel())
	}
	return buckets, nil
}
