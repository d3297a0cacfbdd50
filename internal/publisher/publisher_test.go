package publisher

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/youtube/v3"

	"shortforge-backend/internal/storage"
)

type stubStore struct {
	publicURL string
	urlErr    error
}

func (s *stubStore) Save(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	return key, nil
}

func (s *stubStore) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader("video")), 5, nil
}

func (s *stubStore) PublicURL(ctx context.Context, location string) (string, error) {
	if s.urlErr != nil {
		return "", s.urlErr
	}
	return s.publicURL + "/" + location, nil
}

var _ storage.AssetStore = (*stubStore)(nil)

func TestPollUntilReady(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		results   []error
		attempts  int
		wantErr   error
		wantCalls int
	}{
		{"ready first time", []error{nil}, 3, nil, 1},
		{"ready after waiting", []error{ErrNotReady, ErrNotReady, nil}, 5, nil, 3},
		{"never ready", []error{ErrNotReady, ErrNotReady, ErrNotReady}, 3, ErrPublishTimeout, 3},
		{"hard failure stops", []error{ErrNotReady, boom}, 5, boom, 2},
		{"zero attempts still checks once", []error{nil}, 0, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := pollUntilReady(context.Background(), time.Millisecond, tt.attempts, func(ctx context.Context) error {
				res := tt.results[calls]
				calls++
				return res
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
			if calls != tt.wantCalls {
				t.Errorf("Expected %d checks, got %d", tt.wantCalls, calls)
			}
		})
	}
}

func TestPollUntilReady_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pollUntilReady(ctx, time.Hour, 3, func(ctx context.Context) error {
		return ErrNotReady
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestParseInterval(t *testing.T) {
	if d := parseInterval("3s", time.Minute); d != 3*time.Second {
		t.Errorf("Expected 3s, got %v", d)
	}
	if d := parseInterval("soon", time.Minute); d != time.Minute {
		t.Errorf("Expected fallback, got %v", d)
	}
	if d := parseInterval("-1s", time.Minute); d != time.Minute {
		t.Errorf("Expected fallback for negative, got %v", d)
	}
}

func TestProcessingOutcome(t *testing.T) {
	tests := []struct {
		name      string
		details   *youtube.VideoProcessingDetails
		wantReady bool
		wantWait  bool
	}{
		{"no details yet", nil, false, true},
		{"processing", &youtube.VideoProcessingDetails{ProcessingStatus: "processing"}, false, true},
		{"succeeded", &youtube.VideoProcessingDetails{ProcessingStatus: "succeeded"}, true, false},
		{"failed", &youtube.VideoProcessingDetails{ProcessingStatus: "failed", ProcessingFailureReason: "transcodeFailed"}, false, false},
		{"terminated", &youtube.VideoProcessingDetails{ProcessingStatus: "terminated"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := processingOutcome(tt.details)
			if tt.wantReady && err != nil {
				t.Errorf("Expected ready, got %v", err)
			}
			if tt.wantWait != errors.Is(err, ErrNotReady) {
				t.Errorf("Expected wait=%v, got %v", tt.wantWait, err)
			}
			if !tt.wantReady && !tt.wantWait && err == nil {
				t.Error("Expected a failure")
			}
		})
	}
}

func TestNewYouTubePublisher_RequiresCredentials(t *testing.T) {
	_, err := NewYouTubePublisher(context.Background(), "id", "", "token", &stubStore{}, youtubeSettings(), nil)
	if err == nil {
		t.Error("Expected error for missing client secret")
	}
}
