// Package quota tracks per-user monthly AI fallback usage. Reading the
// status is a gate check only; the authoritative counter moves through a
// single atomic storage increment.
package quota

import (
	"context"
	"time"

	"ledgerpipe/internal/models"
)

// Store is the storage slice the service needs.
type Store interface {
	GetQuotaRecord(ctx context.Context, userID, month string, defaultLimit int) (models.QuotaRecord, error)
	IncrementQuota(ctx context.Context, userID, month string, limit int) (int, error)
}

// Service answers quota queries and records usage.
type Service struct {
	store Store
	limit int
	now   func() time.Time
}

// NewService creates a quota service with the given monthly limit.
func NewService(store Store, limit int) *Service {
	return &Service{store: store, limit: limit, now: time.Now}
}

// Status returns the current month's usage for a user.
func (s *Service) Status(ctx context.Context, userID string) (models.QuotaStatus, error) {
	now := s.now().UTC()
	month := monthID(now)

	record, err := s.store.GetQuotaRecord(ctx, userID, month, s.limit)
	if err != nil {
		return models.QuotaStatus{}, err
	}

	remaining := record.Limit - record.Used
	if remaining < 0 {
		remaining = 0
	}

	return models.QuotaStatus{
		UserID:    userID,
		Month:     month,
		Used:      record.Used,
		Limit:     record.Limit,
		Remaining: remaining,
		ResetDate: nextMonthStart(now),
	}, nil
}

// Record counts one successful fallback invocation and returns the usage
// after the increment.
func (s *Service) Record(ctx context.Context, userID string) (int, error) {
	return s.store.IncrementQuota(ctx, userID, monthID(s.now().UTC()), s.limit)
}

func monthID(t time.Time) string {
	return t.Format("2006-01")
}

// nextMonthStart is the first instant of the following calendar month in
// UTC; the quota resets there.
func nextMonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
