package pendingtx

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxUploadRetries is how many times a failed media upload may be retried
// before a FAILED status removes the record for good.
const MaxUploadRetries = 3

// PendingUpload is a media upload that has not completed yet. Progress is a
// percentage and is only ever clamped, never trusted as-is from callers.
type PendingUpload struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type,omitempty"`
	LocalURI   string         `json:"localUri"`
	Bucket     string         `json:"bucket,omitempty"`
	FileName   string         `json:"fileName,omitempty"`
	FileSize   int64          `json:"fileSize,omitempty"`
	MimeType   string         `json:"mimeType,omitempty"`
	Progress   int            `json:"progress"`
	Status     Status         `json:"status"`
	RetryCount int            `json:"retryCount"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// UploadParams describes an upload to record. Only LocalURI is required; the
// rest describes the destination and the file for resumption after restart.
type UploadParams struct {
	Type     string
	LocalURI string
	Bucket   string
	FileName string
	FileSize int64
	MimeType string
	Metadata map[string]any
}

func newPendingUpload(params UploadParams, now time.Time) (PendingUpload, error) {
	localURI := strings.TrimSpace(params.LocalURI)
	if localURI == "" {
		return PendingUpload{}, ErrURIRequired
	}

	return PendingUpload{
		ID:        uuid.New(),
		Type:      strings.TrimSpace(params.Type),
		LocalURI:  localURI,
		Bucket:    strings.TrimSpace(params.Bucket),
		FileName:  strings.TrimSpace(params.FileName),
		FileSize:  params.FileSize,
		MimeType:  strings.TrimSpace(params.MimeType),
		Status:    StatusInitiated,
		Metadata:  params.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}

	if progress > 100 {
		return 100
	}

	return progress
}
