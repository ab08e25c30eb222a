package storage

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestKeyConvention(t *testing.T) {
	if got := UploadKey("u1", "j1", "photo.jpg"); got != "uploads/u1/j1/photo.jpg" {
		t.Fatalf("UploadKey = %q", got)
	}
	if got := FinalKey("u1", "j1", "photo.jpg"); got != "final/u1/j1/photo.jpg" {
		t.Fatalf("FinalKey = %q", got)
	}
	if got := UploadKey("u1", "j1", "../../etc/passwd"); got != "uploads/u1/j1/passwd" {
		t.Fatalf("UploadKey traversal = %q", got)
	}
	if got := UploadKey("u1", "j1", ""); got != "uploads/u1/j1/photo.jpg" {
		t.Fatalf("UploadKey empty filename = %q", got)
	}
}

func TestJobIDFromKey(t *testing.T) {
	if got := JobIDFromKey("uploads/u1/j1/photo.jpg"); got != "j1" {
		t.Fatalf("JobIDFromKey = %q", got)
	}
	if got := JobIDFromKey("final/u1/j1/photo.jpg"); got != "" {
		t.Fatalf("JobIDFromKey on final key = %q", got)
	}
	if got := JobIDFromKey("garbage"); got != "" {
		t.Fatalf("JobIDFromKey on garbage = %q", got)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	data := []byte{0x01, 0x02, 0x03}
	if err := store.Put(ctx, "photos", "uploads/u1/j1/a.jpg", data, "image/jpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "photos", "uploads/u1/j1/a.jpg")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Get = %v, want %v", got, data)
	}

	if err := store.Copy(ctx, "photos", "uploads/u1/j1/a.jpg", "photos", "final/u1/j1/a.jpg"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	copied, err := store.Get(ctx, "photos", "final/u1/j1/a.jpg")
	if err != nil {
		t.Fatalf("Get copy: %v", err)
	}
	if !bytes.Equal(copied, data) {
		t.Fatalf("copy mismatch")
	}

	if err := store.Delete(ctx, "photos", "uploads/u1/j1/a.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "photos", "uploads/u1/j1/a.jpg"); err == nil {
		t.Fatalf("expected error reading deleted object")
	}
	// Deleting again is a no-op.
	if err := store.Delete(ctx, "photos", "uploads/u1/j1/a.jpg"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestFileStorePresign(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	url, err := store.Presign(context.Background(), "photos", "final/u1/j1/a.jpg", time.Minute)
	if err != nil {
		t.Fatalf("Presign: %v", err)
	}
	if url != "http://localhost:8080/static/photos/final/u1/j1/a.jpg" {
		t.Fatalf("url = %q", url)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Put(context.Background(), "photos", "../escape.jpg", []byte("x"), ""); err == nil {
		t.Fatalf("expected traversal rejection")
	}
}
