package storage

import (
	"context"
	"database/sql"
	"errors"

	"ledgerpipe/internal/models"
)

// GetQuotaRecord returns the quota row for (user, month). When the month
// has no row yet the record comes back with used=0 and the given default
// limit.
func (s *Store) GetQuotaRecord(ctx context.Context, userID, month string, defaultLimit int) (models.QuotaRecord, error) {
	record := models.QuotaRecord{UserID: userID, Month: month, Limit: defaultLimit}

	err := s.db.QueryRowContext(ctx, `SELECT used, monthly_limit FROM ai_quota
		WHERE user_id = ? AND month = ?`, userID, month).Scan(&record.Used, &record.Limit)
	if errors.Is(err, sql.ErrNoRows) {
		return record, nil
	}
	if err != nil {
		return models.QuotaRecord{}, err
	}
	return record, nil
}

// IncrementQuota atomically increments the usage counter for (user,
// month) and returns the counter after the increment. The row is created
// lazily with the given limit. This is a single statement on purpose: a
// read-then-write sequence loses updates under concurrent uploads.
func (s *Store) IncrementQuota(ctx context.Context, userID, month string, limit int) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx, `INSERT INTO ai_quota (user_id, month, used, monthly_limit)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(user_id, month) DO UPDATE SET used = used + 1
		RETURNING used`, userID, month, limit).Scan(&used)
	if err != nil {
		return 0, err
	}
	return used, nil
}
