package blobstore

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_PutGetRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	data := []byte("license scan bytes")

	meta, err := s.Put(context.Background(), "proc-1/doc-1/license.pdf", "application/pdf", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Ref != "proc-1/doc-1/license.pdf" {
		t.Errorf("expected ref to be the key, got %s", meta.Ref)
	}
	if meta.Size != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), meta.Size)
	}
	if meta.Checksum == "" {
		t.Error("expected checksum to be computed")
	}

	got, gotMeta, err := s.Get(context.Background(), meta.Ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("expected stored bytes back")
	}
	if gotMeta.ContentType != "application/pdf" {
		t.Errorf("expected content type preserved, got %s", gotMeta.ContentType)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestMemoryStore_RejectsEmpty(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Put(context.Background(), "k", "text/plain", nil)
	if !errors.Is(err, ErrEmptyArtifact) {
		t.Errorf("expected ErrEmptyArtifact, got %v", err)
	}
}

func TestMemoryStore_RejectsOversized(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Put(context.Background(), "k", "application/octet-stream", make([]byte, MaxArtifactSize+1))
	if !errors.Is(err, ErrArtifactTooLarge) {
		t.Errorf("expected ErrArtifactTooLarge, got %v", err)
	}
}

func TestMemoryStore_Presign(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Put(context.Background(), "proc-1/doc-1/license.pdf", "application/pdf", []byte("bytes")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := s.Presign(context.Background(), "proc-1/doc-1/license.pdf", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "memory://proc-1/doc-1/license.pdf" {
		t.Errorf("unexpected url %s", url)
	}
}

func TestMemoryStore_PresignMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Presign(context.Background(), "nope", time.Minute); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	s := NewMemoryStore()
	data := []byte("original")
	if _, err := s.Put(context.Background(), "k", "text/plain", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data[0] = 'X'

	got, _, err := s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("expected store to hold a copy, got %s", got)
	}
}
