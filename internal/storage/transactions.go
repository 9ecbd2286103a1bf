package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerpipe/internal/dedup"
	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
)

const dateLayout = time.RFC3339

// formatDate normalizes to UTC before formatting. Dates compare as TEXT
// in sqlite (MAX, dedup equality), which only orders correctly when
// every stored value carries the same zone offset.
func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// BatchResult reports what the persistence gate actually did with a
// batch: how many rows were inserted and how many were duplicates.
type BatchResult struct {
	Inserted int
	Skipped  int
}

// SaveBatch persists a transaction batch behind the dedup gate, in
// order. Duplicates are counted and skipped; a single failing insert is
// logged and does not abort the rest of the batch.
func (s *Store) SaveBatch(ctx context.Context, txs []models.Transaction) (BatchResult, error) {
	var result BatchResult

	for i := range txs {
		tx := &txs[i]
		if tx.ID == "" {
			tx.ID = uuid.New().String()
		}

		exists, err := s.exists(ctx, dedup.KeyFor(tx))
		if err != nil {
			s.logger.WithError(err).Error("dedup check failed, skipping row",
				logging.Field{Key: "description", Value: tx.Description})
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		if err := s.insert(ctx, tx); err != nil {
			s.logger.WithError(err).Error("failed to insert transaction",
				logging.Field{Key: "transaction_id", Value: tx.ID})
			continue
		}
		result.Inserted++
	}

	return result, nil
}

func (s *Store) exists(ctx context.Context, key dedup.Key) (bool, error) {
	var (
		query string
		args  []interface{}
	)

	switch k := key.(type) {
	case dedup.ProviderKey:
		query = `SELECT COUNT(1) FROM transactions
			WHERE user_id = ? AND provider = ? AND provider_tx_id = ?`
		args = []interface{}{k.UserID, k.Provider, k.ProviderTxID}
	case dedup.ContentKey:
		query = `SELECT COUNT(1) FROM transactions
			WHERE user_id = ? AND date = ? AND description = ? AND amount = ? AND source_file = ?`
		args = []interface{}{k.UserID, formatDate(k.Date), k.Description, k.Amount.String(), k.SourceFile}
	default:
		return false, fmt.Errorf("unknown dedup key type %T", key)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) insert(ctx context.Context, tx *models.Transaction) error {
	var categoryID sql.NullString
	if tx.CategoryID != nil {
		categoryID = sql.NullString{String: *tx.CategoryID, Valid: true}
	}

	var convertedAmount sql.NullString
	if tx.ConvertedAmount != nil {
		convertedAmount = sql.NullString{String: tx.ConvertedAmount.String(), Valid: true}
	}

	groupID, number, total := "", 0, 0
	if tx.Installment != nil {
		groupID = tx.Installment.GroupID
		number = tx.Installment.Number
		total = tx.Installment.Total
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO transactions (
			id, user_id, date, description, reference, amount, type, currency,
			category_id, confidence, source, provider, provider_tx_id, source_file,
			needs_review, ai_processed, converted_amount, converted_currency,
			installment_group_id, installment_number, installment_total
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, formatDate(tx.Date), tx.Description, tx.Reference,
		tx.Amount.String(), string(tx.Type), tx.Currency,
		categoryID, tx.Confidence, string(tx.Source), tx.Provider, tx.ProviderTxID, tx.SourceFile,
		boolToInt(tx.NeedsReview), boolToInt(tx.AIProcessed), convertedAmount, tx.ConvertedCurrency,
		groupID, number, total)
	return err
}

// LatestProviderTimestamp returns the newest synced transaction date for
// a (user, provider), or the zero time when nothing was synced yet.
func (s *Store) LatestProviderTimestamp(ctx context.Context, userID, provider string) (time.Time, error) {
	var dateStr sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM transactions
		WHERE user_id = ? AND provider = ? AND provider_tx_id != ''`,
		userID, provider).Scan(&dateStr)
	if err != nil {
		return time.Time{}, err
	}
	if !dateStr.Valid || dateStr.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, dateStr.String)
}

// ListUnconverted returns up to limit transactions lacking a converted
// amount, oldest first.
func (s *Store) ListUnconverted(ctx context.Context, limit int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE converted_amount IS NULL ORDER BY date ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// SetConvertedAmount backfills the reference-currency valuation of one
// transaction. This is the only post-persistence mutation besides review
// confirmation.
func (s *Store) SetConvertedAmount(ctx context.Context, txID string, amount decimal.Decimal, currency string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE transactions
		SET converted_amount = ?, converted_currency = ? WHERE id = ?`,
		amount.String(), currency, txID)
	return err
}

// ConfirmTransaction applies a user's review edits and clears the
// needs-review flag.
func (s *Store) ConfirmTransaction(ctx context.Context, tx models.Transaction) error {
	var categoryID sql.NullString
	if tx.CategoryID != nil {
		categoryID = sql.NullString{String: *tx.CategoryID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `UPDATE transactions
		SET description = ?, amount = ?, type = ?, category_id = ?, needs_review = 0
		WHERE id = ? AND user_id = ?`,
		tx.Description, tx.Amount.String(), string(tx.Type), categoryID, tx.ID, tx.UserID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s not found for user %s", tx.ID, tx.UserID)
	}
	return nil
}

// ListTransactions returns all transactions of a user, oldest first.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE user_id = ? ORDER BY date ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const selectColumns = `SELECT id, user_id, date, description, reference, amount, type,
	currency, category_id, confidence, source, provider, provider_tx_id, source_file,
	needs_review, ai_processed, converted_amount, converted_currency,
	installment_group_id, installment_number, installment_total
	FROM transactions`

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var txs []models.Transaction
	for rows.Next() {
		var (
			tx              models.Transaction
			dateStr         string
			amountStr       string
			txType          string
			source          string
			categoryID      sql.NullString
			needsReview     int
			aiProcessed     int
			convertedAmount sql.NullString
			groupID         string
			number, total   int
		)

		if err := rows.Scan(&tx.ID, &tx.UserID, &dateStr, &tx.Description, &tx.Reference,
			&amountStr, &txType, &tx.Currency, &categoryID, &tx.Confidence,
			&source, &tx.Provider, &tx.ProviderTxID, &tx.SourceFile,
			&needsReview, &aiProcessed, &convertedAmount, &tx.ConvertedCurrency,
			&groupID, &number, &total); err != nil {
			return nil, err
		}

		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt date on transaction %s: %w", tx.ID, err)
		}
		tx.Date = date

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount on transaction %s: %w", tx.ID, err)
		}
		tx.Amount = amount

		tx.Type = models.TransactionType(txType)
		tx.Source = models.Source(source)
		tx.NeedsReview = needsReview != 0
		tx.AIProcessed = aiProcessed != 0

		if categoryID.Valid {
			tx.CategoryID = &categoryID.String
		}
		if convertedAmount.Valid {
			v, err := decimal.NewFromString(convertedAmount.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt converted amount on transaction %s: %w", tx.ID, err)
			}
			tx.ConvertedAmount = &v
		}
		if groupID != "" || total > 0 {
			tx.Installment = &models.Installment{GroupID: groupID, Number: number, Total: total}
		}

		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
