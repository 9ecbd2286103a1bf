package currency

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
)

// UnconvertedStore is the slice of the persistence layer the reconciler
// needs: listing transactions without a converted amount and writing the
// backfilled value. This is the only path that mutates converted-amount
// fields after initial persistence.
type UnconvertedStore interface {
	ListUnconverted(ctx context.Context, limit int) ([]models.Transaction, error)
	SetConvertedAmount(ctx context.Context, txID string, amount decimal.Decimal, currency string) error
}

// Reconciler retries conversion for persisted transactions that missed a
// rate at ingestion time.
type Reconciler struct {
	store     UnconvertedStore
	converter *Converter
	batchSize int
	logger    logging.Logger
}

// NewReconciler creates a reconciliation job over the given store.
func NewReconciler(store UnconvertedStore, converter *Converter, batchSize int, logger logging.Logger) *Reconciler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{store: store, converter: converter, batchSize: batchSize, logger: logger}
}

// Run processes one batch of unconverted transactions and reports how
// many were backfilled and how many still lack a rate. Transactions that
// fail again stay unconverted for the next run.
func (r *Reconciler) Run(ctx context.Context) (converted, remaining int, err error) {
	txs, err := r.store.ListUnconverted(ctx, r.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for i := range txs {
		conv := r.converter.Convert(ctx, txs[i].Amount, txs[i].Currency, txs[i].Date)
		if !conv.Converted {
			remaining++
			continue
		}

		if err := r.store.SetConvertedAmount(ctx, txs[i].ID, conv.Amount, conv.Currency); err != nil {
			r.logger.WithError(err).Error("failed to persist backfilled conversion",
				logging.Field{Key: "transaction_id", Value: txs[i].ID})
			remaining++
			continue
		}
		converted++
	}

	r.logger.Info("currency reconciliation finished",
		logging.Field{Key: "converted", Value: converted},
		logging.Field{Key: "remaining", Value: remaining})

	return converted, remaining, nil
}
