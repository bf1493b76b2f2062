package storage

import (
	"context"
	"fmt"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores immutable objects such as archived bracket results.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	GetPublicURL(key string) string
}

// ResultsArchiveKey is the object key of a resolved bracket's results.
func ResultsArchiveKey(eventID, bracketID int) string {
	return fmt.Sprintf("results/event_%d/bracket_%d.json", eventID, bracketID)
}
