package model

import "time"

// Bucket names
const (
	BucketAudioFiles     = "audio-files"
	BucketReports        = "reports"
	BucketTranscriptions = "transcriptions"
)

// BucketPolicy is fixed at bucket creation and enforced on upload.
type BucketPolicy struct {
	Name             string   `json:"name" binding:"required,min=3,max=63"`
	Public           bool     `json:"public"`
	AllowedMimeTypes []string `json:"allowed_mime_types"`
	FileSizeLimit    int64    `json:"file_size_limit" binding:"omitempty,min=1"`
}

type Bucket struct {
	BucketPolicy
	CreatedAt time.Time `json:"created_at"`
}

type StorageObject struct {
	Bucket       string    `json:"bucket"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}
