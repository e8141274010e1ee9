package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"filippo.io/age"
	"github.com/dafibh/fortuna/fortuna-planner/internal/domain"
	"github.com/dafibh/fortuna/fortuna-planner/internal/websocket"
	"github.com/google/uuid"
)

const (
	exportContentTypeJSON = "application/json"
	exportContentTypeAge  = "application/age"
)

// ExportService writes monthly summary snapshots to object storage.
// With a passphrase configured, snapshots are age-encrypted first.
type ExportService struct {
	summaries      *SummaryService
	store          domain.ExportStore
	passphrase     string
	urlTTL         time.Duration
	workFactor     int
	now            func() time.Time
	eventPublisher websocket.EventPublisher
}

// NewExportService creates a new ExportService. A nil store disables export.
func NewExportService(summaries *SummaryService, store domain.ExportStore, passphrase string, urlTTL time.Duration) *ExportService {
	return &ExportService{
		summaries:  summaries,
		store:      store,
		passphrase: passphrase,
		urlTTL:     urlTTL,
		now:        time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ExportService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// exportDocument is the stored snapshot format
type exportDocument struct {
	WorkspaceID int32                  `json:"workspaceId"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Summary     *domain.MonthlySummary `json:"summary"`
}

// ExportSummary computes the month summary, stores it and returns a
// temporary download link
func (s *ExportService) ExportSummary(ctx context.Context, workspaceID int32, year, month int) (*domain.SummaryExport, error) {
	if s.store == nil {
		return nil, domain.ErrExportDisabled
	}

	summary, err := s.summaries.GetMonthlySummary(ctx, workspaceID, year, month)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	data, err := json.Marshal(exportDocument{WorkspaceID: workspaceID, GeneratedAt: now, Summary: summary})
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	key := fmt.Sprintf("exports/%d/%04d-%02d/%s.json", workspaceID, year, month, uuid.New().String())
	contentType := exportContentTypeJSON
	encrypted := false
	if s.passphrase != "" {
		if data, err = s.encrypt(data); err != nil {
			return nil, err
		}
		key += ".age"
		contentType = exportContentTypeAge
		encrypted = true
	}

	if err := s.store.Put(ctx, key, data, contentType); err != nil {
		return nil, err
	}
	url, err := s.store.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		return nil, err
	}

	export := &domain.SummaryExport{
		Key:       key,
		URL:       url,
		Encrypted: encrypted,
		ExpiresAt: now.Add(s.urlTTL),
		Year:      year,
		Month:     month,
	}
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, websocket.SummaryExported(export))
	}
	return export, nil
}

func (s *ExportService) encrypt(data []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(s.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create age recipient: %w", err)
	}
	if s.workFactor > 0 {
		recipient.SetWorkFactor(s.workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to encrypt export: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish encryption: %w", err)
	}
	return buf.Bytes(), nil
}
