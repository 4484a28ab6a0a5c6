package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

// Backend is the object store the buckets live in.
type Backend interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, objectPath string, r io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, bucket, objectPath string) (io.ReadCloser, *model.StorageObject, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]model.StorageObject, error)
	RemoveObject(ctx context.Context, bucket, objectPath string) error
}

var bucketName = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// DefaultPolicies are the buckets the application relies on.
func DefaultPolicies(audioMax, reportMax int64) []model.BucketPolicy {
	return []model.BucketPolicy{
		{Name: model.BucketAudioFiles, AllowedMimeTypes: []string{"audio/*"}, FileSizeLimit: audioMax},
		{Name: model.BucketReports, AllowedMimeTypes: []string{"application/pdf"}, FileSizeLimit: reportMax},
		{Name: model.BucketTranscriptions, AllowedMimeTypes: []string{"text/plain", "application/json"}, FileSizeLimit: reportMax},
	}
}

type Service struct {
	backend Backend
	buckets repository.BucketRepository
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(backend Backend, buckets repository.BucketRepository, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{backend: backend, buckets: buckets, metrics: m, logger: log}
}

func (s *Service) observe(bucket, op string, err error) {
	s.metrics.StorageOperations.WithLabelValues(bucket, op, metrics.Status(err)).Inc()
}

func validatePolicy(policy model.BucketPolicy) error {
	if !bucketName.MatchString(policy.Name) {
		return apperrors.Validation("invalid bucket name")
	}
	for _, mt := range policy.AllowedMimeTypes {
		if !strings.Contains(mt, "/") {
			return apperrors.Validation(fmt.Sprintf("invalid mime type %q", mt))
		}
	}
	return nil
}

func (s *Service) makeBucket(ctx context.Context, name string) error {
	exists, err := s.backend.BucketExists(ctx, name)
	if err == nil && !exists {
		err = s.backend.MakeBucket(ctx, name)
	}
	s.observe(name, "create_bucket", err)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return nil
}

// CreateBucket registers a new bucket. Names already registered, the
// application's own buckets included, are a conflict; policies are never
// replaced through this path.
func (s *Service) CreateBucket(ctx context.Context, policy model.BucketPolicy) (*model.Bucket, error) {
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	_, err := s.buckets.Get(ctx, policy.Name)
	switch {
	case err == nil:
		return nil, apperrors.Conflict(fmt.Sprintf("bucket %s already exists", policy.Name), nil)
	case !apperrors.IsNotFound(err):
		return nil, err
	}

	if err := s.makeBucket(ctx, policy.Name); err != nil {
		return nil, err
	}
	bucket := &model.Bucket{BucketPolicy: policy, CreatedAt: time.Now()}
	if err := s.buckets.Create(ctx, bucket); err != nil {
		return nil, err
	}
	return bucket, nil
}

func (s *Service) ListBuckets(ctx context.Context) ([]*model.Bucket, error) {
	return s.buckets.List(ctx)
}

// EnsureBuckets creates each bucket with its policy; existing buckets get the policy refreshed.
func (s *Service) EnsureBuckets(ctx context.Context, policies []model.BucketPolicy) error {
	for _, p := range policies {
		if err := validatePolicy(p); err != nil {
			return err
		}
		if err := s.makeBucket(ctx, p.Name); err != nil {
			return err
		}
		if err := s.buckets.Upsert(ctx, &model.Bucket{BucketPolicy: p, CreatedAt: time.Now()}); err != nil {
			return err
		}
		s.logger.Debug("bucket ready", "bucket", p.Name)
	}
	return nil
}

// Upload stores content after checking the bucket's MIME allow-list and size limit.
// size must be known.
func (s *Service) Upload(ctx context.Context, bucket, objectPath string, content io.Reader, size int64, contentType string) (*model.StorageObject, error) {
	objectPath, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}

	policy, err := s.buckets.Get(ctx, bucket)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("bucket", err)
		}
		return nil, err
	}
	if err := checkPolicy(policy.BucketPolicy, size, contentType); err != nil {
		return nil, err
	}

	err = s.backend.PutObject(ctx, bucket, objectPath, content, size, contentType)
	s.observe(bucket, "upload", err)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s/%s: %w", bucket, objectPath, err)
	}

	return &model.StorageObject{
		Bucket:       bucket,
		Path:         objectPath,
		Size:         size,
		ContentType:  contentType,
		LastModified: time.Now(),
	}, nil
}

func (s *Service) Download(ctx context.Context, bucket, objectPath string) (io.ReadCloser, *model.StorageObject, error) {
	objectPath, err := cleanPath(objectPath)
	if err != nil {
		return nil, nil, err
	}
	rc, info, err := s.backend.GetObject(ctx, bucket, objectPath)
	s.observe(bucket, "download", err)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NotFound("object", err)
		}
		return nil, nil, fmt.Errorf("failed to download %s/%s: %w", bucket, objectPath, err)
	}
	return rc, info, nil
}

func (s *Service) List(ctx context.Context, bucket, prefix string) ([]model.StorageObject, error) {
	objects, err := s.backend.ListObjects(ctx, bucket, strings.TrimPrefix(prefix, "/"))
	s.observe(bucket, "list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", bucket, err)
	}
	return objects, nil
}

func (s *Service) Remove(ctx context.Context, bucket string, paths ...string) error {
	for _, p := range paths {
		objectPath, err := cleanPath(p)
		if err != nil {
			return err
		}
		err = s.backend.RemoveObject(ctx, bucket, objectPath)
		s.observe(bucket, "remove", err)
		if err != nil {
			return fmt.Errorf("failed to remove %s/%s: %w", bucket, objectPath, err)
		}
	}
	return nil
}

func cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" || p == "." {
		return "", apperrors.Validation("object path is required")
	}
	return p, nil
}

func checkPolicy(policy model.BucketPolicy, size int64, contentType string) error {
	if size < 0 {
		return apperrors.Validation("content length is required")
	}
	if policy.FileSizeLimit > 0 && size > policy.FileSizeLimit {
		return apperrors.Validation(fmt.Sprintf("file exceeds the %d byte limit of bucket %s", policy.FileSizeLimit, policy.Name))
	}
	if len(policy.AllowedMimeTypes) == 0 {
		return nil
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, allowed := range policy.AllowedMimeTypes {
		if matchMime(strings.ToLower(allowed), mediaType) {
			return nil
		}
	}
	return apperrors.Validation(fmt.Sprintf("content type %q is not allowed in bucket %s", contentType, policy.Name))
}

func matchMime(pattern, mediaType string) bool {
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(mediaType, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == mediaType
}
