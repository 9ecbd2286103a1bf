package sync

import (
	"context"
	"errors"
	"time"

	"ledgerpipe/internal/categorizer"
	"ledgerpipe/internal/currency"
	"ledgerpipe/internal/installments"
	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/metrics"
	"ledgerpipe/internal/models"
	"ledgerpipe/internal/pipelineerror"
	"ledgerpipe/internal/storage"
)

// sinceOffset avoids re-fetching the boundary record itself.
const sinceOffset = time.Second

// Store is the persistence slice the syncer needs.
type Store interface {
	LatestProviderTimestamp(ctx context.Context, userID, provider string) (time.Time, error)
	SaveBatch(ctx context.Context, txs []models.Transaction) (storage.BatchResult, error)
	ListRules(ctx context.Context, userID string) ([]models.CategoryRule, error)
}

// Syncer runs incremental pulls against a provider and pushes the result
// through the shared normalization stages.
type Syncer struct {
	registry  *Registry
	store     Store
	engine    *categorizer.Engine
	detector  *installments.Detector
	converter *currency.Converter
	metrics   *metrics.Metrics
	pageDelay time.Duration
	lookback  int // months
	logger    logging.Logger
}

// NewSyncer wires a syncer over the given provider registry.
func NewSyncer(registry *Registry, store Store, engine *categorizer.Engine,
	detector *installments.Detector, converter *currency.Converter,
	m *metrics.Metrics, pageDelay time.Duration, lookbackMonths int,
	logger logging.Logger) *Syncer {
	return &Syncer{
		registry:  registry,
		store:     store,
		engine:    engine,
		detector:  detector,
		converter: converter,
		metrics:   m,
		pageDelay: pageDelay,
		lookback:  lookbackMonths,
		logger:    logger,
	}
}

// Run executes one sync against a provider and returns the standard
// result envelope. Auth failures surface as a reconnect-required error
// result; already-persisted pages stay persisted on abort.
func (s *Syncer) Run(ctx context.Context, userID, providerName string, creds Credentials) models.ProcessResult {
	provider, ok := s.registry.Get(providerName)
	if !ok {
		return models.ErrorResult("unknown_provider", "unknown sync provider", providerName)
	}

	since, err := s.sinceBoundary(ctx, userID, providerName)
	if err != nil {
		return models.ErrorResult("storage", "failed to determine sync boundary", err.Error())
	}

	log := s.logger.WithFields(
		logging.Field{Key: "provider", Value: providerName},
		logging.Field{Key: "user_id", Value: userID})
	log.Info("starting sync", logging.Field{Key: "since", Value: since.Format(time.RFC3339)})

	var batch []models.Transaction
	offset := 0
	for {
		page, err := provider.FetchPage(ctx, creds, since, offset)
		if err != nil {
			var authErr *pipelineerror.ProviderAuthError
			if errors.As(err, &authErr) {
				log.WithError(err).Error("provider rejected credentials")
				return models.ErrorResult("provider_auth", "reconnect required", authErr.Error())
			}
			log.WithError(err).Error("page fetch failed")
			return models.ErrorResult("provider", "sync failed", err.Error())
		}

		s.metrics.SyncPagesFetched.WithLabelValues(providerName).Inc()
		batch = append(batch, page.Transactions...)
		offset += page.Fetched

		if !page.HasMore {
			break
		}
		select {
		case <-time.After(s.pageDelay):
		case <-ctx.Done():
			return models.ErrorResult("canceled", "sync canceled", ctx.Err().Error())
		}
	}

	for i := range batch {
		batch[i].UserID = userID
	}

	rules, err := s.store.ListRules(ctx, userID)
	if err != nil {
		return models.ErrorResult("storage", "failed to load category rules", err.Error())
	}

	s.engine.CategorizeBatch(batch, rules)
	s.detector.DetectBatch(batch)
	if failed := s.converter.ConvertBatch(ctx, batch); failed > 0 {
		s.metrics.RateLookupFailures.Add(float64(failed))
	}

	saved, err := s.store.SaveBatch(ctx, batch)
	if err != nil {
		return models.ErrorResult("storage", "failed to persist sync batch", err.Error())
	}

	s.metrics.TransactionsPersisted.Add(float64(saved.Inserted))
	s.metrics.DuplicatesSkipped.Add(float64(saved.Skipped))

	log.Info("sync finished",
		logging.Field{Key: "fetched", Value: len(batch)},
		logging.Field{Key: "inserted", Value: saved.Inserted},
		logging.Field{Key: "skipped", Value: saved.Skipped})

	return models.ProcessResult{
		Success:      true,
		Descriptor:   models.Descriptor{Method: models.MethodSync, Confidence: 100},
		Transactions: batch,
		Summary:      models.Summarize(batch),
		Inserted:     saved.Inserted,
		Skipped:      saved.Skipped,
	}
}

// sinceBoundary is the newest synced provider timestamp plus one second,
// or a fixed lookback window when nothing was synced yet.
func (s *Syncer) sinceBoundary(ctx context.Context, userID, providerName string) (time.Time, error) {
	latest, err := s.store.LatestProviderTimestamp(ctx, userID, providerName)
	if err != nil {
		return time.Time{}, err
	}
	if latest.IsZero() {
		return time.Now().UTC().AddDate(0, -s.lookback, 0), nil
	}
	return latest.Add(sinceOffset), nil
}
