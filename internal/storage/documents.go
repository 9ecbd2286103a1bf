package storage

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"ledgerpipe/internal/models"
)

// DocumentRecord persists what a processed statement looked like:
// detected metadata plus the processing descriptor.
type DocumentRecord struct {
	ID       string
	UserID   string
	Filename string
	Metadata *models.DocumentMetadata
	Method   models.Method
	// Confidence is the final extraction score.
	Confidence int
}

// SaveDocument records a processed document and returns its id.
func (s *Store) SaveDocument(ctx context.Context, doc DocumentRecord) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	var (
		institution, accountID, accountType string
		periodStart, periodEnd              sql.NullString
		openingBalance, closingBalance      sql.NullString
	)
	if doc.Metadata != nil {
		institution = doc.Metadata.Institution
		accountID = doc.Metadata.AccountID
		accountType = doc.Metadata.AccountType
		if doc.Metadata.PeriodStart != nil {
			periodStart = sql.NullString{String: doc.Metadata.PeriodStart.Format(rateDateLayout), Valid: true}
		}
		if doc.Metadata.PeriodEnd != nil {
			periodEnd = sql.NullString{String: doc.Metadata.PeriodEnd.Format(rateDateLayout), Valid: true}
		}
		if doc.Metadata.OpeningBalance != nil {
			openingBalance = sql.NullString{String: doc.Metadata.OpeningBalance.String(), Valid: true}
		}
		if doc.Metadata.ClosingBalance != nil {
			closingBalance = sql.NullString{String: doc.Metadata.ClosingBalance.String(), Valid: true}
		}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO documents
		(id, user_id, filename, institution, account_id, account_type,
		 period_start, period_end, opening_balance, closing_balance, method, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.UserID, doc.Filename, institution, accountID, accountType,
		periodStart, periodEnd, openingBalance, closingBalance, string(doc.Method), doc.Confidence)
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}
