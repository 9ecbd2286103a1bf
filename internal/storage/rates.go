package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledgerpipe/internal/models"
)

const rateDateLayout = "2006-01-02"

// GetRate returns the cached rate for (date, base, quote), or nil when
// no entry exists.
func (s *Store) GetRate(ctx context.Context, date time.Time, base, quote string) (*models.ExchangeRate, error) {
	var (
		rateStr string
		source  string
	)
	err := s.db.QueryRowContext(ctx, `SELECT rate, source FROM exchange_rates
		WHERE date = ? AND base = ? AND quote = ?`,
		date.Format(rateDateLayout), base, quote).Scan(&rateStr, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt cached rate for %s/%s on %s: %w",
			base, quote, date.Format(rateDateLayout), err)
	}

	return &models.ExchangeRate{
		Date:   date,
		Base:   base,
		Quote:  quote,
		Rate:   rate,
		Source: source,
	}, nil
}

// PutRate caches a rate. First write wins: an existing entry for the
// same (date, pair) is never overwritten.
func (s *Store) PutRate(ctx context.Context, rate models.ExchangeRate) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO exchange_rates
		(date, base, quote, rate, source) VALUES (?, ?, ?, ?, ?)`,
		rate.Date.Format(rateDateLayout), rate.Base, rate.Quote, rate.Rate.String(), rate.Source)
	return err
}
