// Package dedup defines the natural keys used to detect already-persisted
// transactions. Pull-sourced records carry a provider transaction id;
// document-sourced records have no stable id and fall back to a content
// key. The two are distinct types, not optional fields on one struct, so
// the persistence gate can switch on what it was actually given.
package dedup

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerpipe/internal/models"
)

// Key is the tagged union of dedup strategies.
type Key interface {
	isKey()
}

// ProviderKey identifies a pull-sourced transaction by its provider id.
type ProviderKey struct {
	UserID       string
	Provider     string
	ProviderTxID string
}

func (ProviderKey) isKey() {}

// ContentKey identifies a document-sourced transaction by its content.
type ContentKey struct {
	UserID      string
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	SourceFile  string
}

func (ContentKey) isKey() {}

// KeyFor selects the dedup key for a transaction by its source. Sync
// transactions missing a provider id degrade to the content key rather
// than colliding on an empty provider id.
func KeyFor(tx *models.Transaction) Key {
	if tx.Source == models.SourceSync && tx.ProviderTxID != "" {
		return ProviderKey{
			UserID:       tx.UserID,
			Provider:     tx.Provider,
			ProviderTxID: tx.ProviderTxID,
		}
	}
	return ContentKey{
		UserID:      tx.UserID,
		Date:        tx.Date,
		Description: tx.Description,
		Amount:      tx.Amount,
		SourceFile:  tx.SourceFile,
	}
}
