package domain

import (
	"context"
	"errors"
	"time"
)

var ErrExportDisabled = errors.New("summary export is not configured")

// ExportStore keeps exported summary snapshots and hands out temporary links
type ExportStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// SummaryExport describes a stored snapshot
type SummaryExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Encrypted bool      `json:"encrypted"`
	ExpiresAt time.Time `json:"expiresAt"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
}
