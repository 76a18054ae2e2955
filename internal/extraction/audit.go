package extraction

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// AuditLogger records one row per provider attempt, success or not.
// Implementations must never fail the extraction because of logging.
type AuditLogger interface {
	LogAttempt(ctx context.Context, entry *models.ExtractionLog) string
}

// StoreAuditLogger persists attempts through the store.
type StoreAuditLogger struct {
	store store.Store
}

func NewStoreAuditLogger(s store.Store) *StoreAuditLogger {
	return &StoreAuditLogger{store: s}
}

func (l *StoreAuditLogger) LogAttempt(ctx context.Context, entry *models.ExtractionLog) string {
	if err := l.store.CreateExtractionLog(ctx, entry); err != nil {
		log.Warn().
			Err(err).
			Str("signal_id", entry.SignalID).
			Str("provider", entry.Provider).
			Msg("failed to persist extraction log")
		return ""
	}
	return entry.ID
}

// NopAuditLogger discards attempts. Used in tests that do not assert on logs.
type NopAuditLogger struct{}

func (NopAuditLogger) LogAttempt(ctx context.Context, entry *models.ExtractionLog) string {
	return ""
}
