package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key      string
		expected string
		wantErr  bool
	}{
		{"images/1_ab_scene_1.png", "images/1_ab_scene_1.png", false},
		{"/videos/a.mp4", "videos/a.mp4", false},
		{"../../etc/passwd", "etc/passwd", false},
		{"images/../videos/a.mp4", "videos/a.mp4", false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got, err := cleanKey(tc.key)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tc.key)
				}
				return
			}
			if err != nil || got != tc.expected {
				t.Errorf("cleanKey(%q) = %q, %v; want %q", tc.key, got, err, tc.expected)
			}
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.PNG":    "image/png",
		"a.jpeg":   "image/jpeg",
		"a.mp4":    "video/mp4",
		"a.bin":    "application/octet-stream",
		"noext":    "application/octet-stream",
		"song.mp3": "audio/mpeg",
	}
	for key, want := range tests {
		if got := contentTypeFor(key); got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestLocalStore_SaveOpenPublicURL(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "https://cdn.example.com")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	loc, err := store.Save(ctx, "videos/7_ab12cd34_1_final.mp4", strings.NewReader("mp4data"), 7)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if loc != "videos/7_ab12cd34_1_final.mp4" {
		t.Errorf("Unexpected location %q", loc)
	}
	if _, err := os.Stat(filepath.Join(root, "videos", "7_ab12cd34_1_final.mp4")); err != nil {
		t.Errorf("Expected file on disk: %v", err)
	}

	rc, size, err := store.Open(ctx, loc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "mp4data" || size != 7 {
		t.Errorf("Unexpected content %q size %d", data, size)
	}

	u, err := store.PublicURL(ctx, loc)
	if err != nil {
		t.Fatalf("PublicURL: %v", err)
	}
	if u != "https://cdn.example.com/assets/videos/7_ab12cd34_1_final.mp4" {
		t.Errorf("Unexpected url %q", u)
	}
}

func TestLocalStore_SizeMismatchLeavesNothing(t *testing.T) {
	root := t.TempDir()
	store, _ := NewLocalStore(root, "")

	_, err := store.Save(context.Background(), "images/a.png", strings.NewReader("abc"), 10)
	if err == nil {
		t.Fatal("Expected size mismatch error")
	}
	if _, statErr := os.Stat(filepath.Join(root, "images", "a.png")); !os.IsNotExist(statErr) {
		t.Error("Partial asset should not be left behind")
	}
}

func TestLocalStore_NoBaseURL(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir(), "")

	_, err := store.PublicURL(context.Background(), "videos/a.mp4")
	if !errors.Is(err, ErrNoPublicURL) {
		t.Errorf("Expected ErrNoPublicURL, got %v", err)
	}
}

func TestParseLocation(t *testing.T) {
	bucket, key, err := parseLocation("s3://shortforge-assets/videos/a.mp4")
	if err != nil || bucket != "shortforge-assets" || key != "videos/a.mp4" {
		t.Errorf("Unexpected parse: %q %q %v", bucket, key, err)
	}

	for _, bad := range []string{"videos/a.mp4", "s3://bucket", "s3:///key"} {
		if _, _, err := parseLocation(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
