// Package fetch defines the content-acquisition contract: the transport that
// downloads media is an external collaborator; this package carries only the
// interface it must satisfy and the size policy applied before a payload is
// accepted for analysis.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/aqljon/aqljon/internal/queue"
)

// Per-kind size caps. Zero means uncapped at this layer.
const (
	// MaxDocumentSize caps document downloads.
	MaxDocumentSize = 20 * 1024 * 1024

	// MaxVideoSize caps video downloads.
	MaxVideoSize = 25 * 1024 * 1024
)

var (
	// ErrDownload indicates the transport failed to fetch the content.
	ErrDownload = errors.New("content download failed")

	// ErrSizeExceeded indicates the payload is over the per-kind cap.
	ErrSizeExceeded = errors.New("content size exceeded")
)

// SizeExceededError carries the cap and actual size of an oversize payload.
type SizeExceededError struct {
	Kind  queue.Kind
	Size  int64
	Limit int64
}

// Error implements the error interface.
func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("%s payload is %d bytes, limit %d", e.Kind, e.Size, e.Limit)
}

// Unwrap makes the error match ErrSizeExceeded via errors.Is.
func (e *SizeExceededError) Unwrap() error {
	return ErrSizeExceeded
}

// Payload is a downloaded piece of content ready for analysis.
type Payload struct {
	Ref  string // opaque handle passed through to the analyzer
	Size int64
}

// Fetcher downloads message content to a local payload handle.
// Implementations fail with errors matching ErrDownload or ErrSizeExceeded.
type Fetcher interface {
	Fetch(ctx context.Context, kind queue.Kind, messageRef string) (Payload, error)
}

// SizeLimit returns the byte cap for a kind, 0 when uncapped.
func SizeLimit(kind queue.Kind) int64 {
	switch kind {
	case queue.KindDocument:
		return MaxDocumentSize
	case queue.KindVideo:
		return MaxVideoSize
	default:
		return 0
	}
}

// CheckSize validates a payload size against the per-kind cap. Fetcher
// implementations call this before handing a payload to the queue.
func CheckSize(kind queue.Kind, size int64) error {
	limit := SizeLimit(kind)
	if limit > 0 && size > limit {
		return &SizeExceededError{Kind: kind, Size: size, Limit: limit}
	}
	return nil
}
