package domain

import (
	"errors"
	"testing"
	"time"
)

func TestIdempotencyStatusValid(t *testing.T) {
	tests := []struct {
		name   string
		status IdempotencyStatus
		want   bool
	}{
		{name: "processing", status: IdempotencyStatusProcessing, want: true},
		{name: "done", status: IdempotencyStatusDone, want: true},
		{name: "failed", status: IdempotencyStatusFailed, want: true},
		{name: "invalid", status: IdempotencyStatus("broken"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.status.Valid(); got != tc.want {
				t.Fatalf("status %q valid=%v, want %v", tc.status, got, tc.want)
			}
		})
	}
}

func TestNewIdempotencyRecord(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	record, err := NewIdempotencyRecord(" user-1:key ", " hash ", time.Time{}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Key != "user-1:key" || record.RequestHash != "hash" {
		t.Fatalf("expected trimmed key and hash, got %+v", record)
	}
	if record.Status != IdempotencyStatusProcessing {
		t.Fatalf("expected processing status, got %q", record.Status)
	}
	if !record.TTLAt.Equal(now.Add(DefaultIdempotencyTTL)) {
		t.Fatalf("expected default ttl, got %s", record.TTLAt)
	}

	if _, err := NewIdempotencyRecord(" ", "hash", now, now); !errors.Is(err, ErrIdempotencyKeyRequired) {
		t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
	}
	if _, err := NewIdempotencyRecord("key", "", now, now); !errors.Is(err, ErrIdempotencyRequestHashRequired) {
		t.Fatalf("expected ErrIdempotencyRequestHashRequired, got %v", err)
	}
}

func TestIdempotencyRecordExpiredAndConflict(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	record := IdempotencyRecord{Key: "k", RequestHash: "h", TTLAt: now}

	if !record.Expired(now) {
		t.Fatal("record with ttl equal to now must be expired")
	}
	if record.Expired(now.Add(-time.Second)) {
		t.Fatal("record must be alive before ttl")
	}
	if err := record.ConflictWith("h"); !errors.Is(err, ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}
	if err := record.ConflictWith("other"); !errors.Is(err, ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}
}
