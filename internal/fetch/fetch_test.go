package fetch

import (
	"errors"
	"testing"

	"github.com/aqljon/aqljon/internal/queue"
)

func TestSizeLimit(t *testing.T) {
	tests := []struct {
		kind queue.Kind
		want int64
	}{
		{queue.KindDocument, MaxDocumentSize},
		{queue.KindVideo, MaxVideoSize},
		{queue.KindPhoto, 0},
		{queue.KindVoice, 0},
		{queue.KindAudio, 0},
		{queue.KindText, 0},
	}

	for _, tt := range tests {
		if got := SizeLimit(tt.kind); got != tt.want {
			t.Errorf("SizeLimit(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestCheckSize(t *testing.T) {
	if err := CheckSize(queue.KindDocument, MaxDocumentSize); err != nil {
		t.Errorf("Expected size at the cap to pass: %v", err)
	}
	if err := CheckSize(queue.KindPhoto, 500*1024*1024); err != nil {
		t.Errorf("Expected uncapped kind to pass any size: %v", err)
	}

	err := CheckSize(queue.KindVideo, MaxVideoSize+1)
	if !errors.Is(err, ErrSizeExceeded) {
		t.Fatalf("Expected ErrSizeExceeded, got %v", err)
	}

	var sizeErr *SizeExceededError
	if !errors.As(err, &sizeErr) {
		t.Fatal("Expected errors.As to extract SizeExceededError")
	}
	if sizeErr.Kind != queue.KindVideo || sizeErr.Limit != MaxVideoSize || sizeErr.Size != MaxVideoSize+1 {
		t.Errorf("Unexpected fields: %+v", sizeErr)
	}
}
