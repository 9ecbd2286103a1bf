// Package ingest sequences document ingestion: text extraction, template
// extraction, the confidence-gated AI fallback, and the shared
// normalization and persistence stages. The decision tree is an explicit
// state machine so each terminal outcome is a first-class transition.
package ingest

import (
	"context"
	"errors"

	"ledgerpipe/internal/aiextract"
	"ledgerpipe/internal/categorizer"
	"ledgerpipe/internal/currency"
	"ledgerpipe/internal/installments"
	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/metrics"
	"ledgerpipe/internal/models"
	"ledgerpipe/internal/pipelineerror"
	"ledgerpipe/internal/storage"
	"ledgerpipe/internal/template"
	"ledgerpipe/internal/textextract"
)

// State is a node of the ingestion decision tree.
type State string

const (
	StateParsed          State = "PARSED"
	StateTemplateMatched State = "TEMPLATE_MATCHED"
	StateAccepted        State = "ACCEPTED"
	StateLowConfidence   State = "LOW_CONFIDENCE"
	StateQuotaCheck      State = "QUOTA_CHECK"
	StateAIExtracted     State = "AI_EXTRACTED"
	StateAIFailed        State = "AI_FAILED"
	StateFinalized       State = "FINALIZED"
)

// Store is the persistence slice the orchestrator needs.
type Store interface {
	SaveBatch(ctx context.Context, txs []models.Transaction) (storage.BatchResult, error)
	ListRules(ctx context.Context, userID string) ([]models.CategoryRule, error)
	ListCategoryNames(ctx context.Context, userID string) ([]string, error)
	SaveDocument(ctx context.Context, doc storage.DocumentRecord) (string, error)
}

// QuotaService gates and records AI fallback usage.
type QuotaService interface {
	Status(ctx context.Context, userID string) (models.QuotaStatus, error)
	Record(ctx context.Context, userID string) (int, error)
}

// Orchestrator runs the document ingestion pipeline end to end.
type Orchestrator struct {
	texts      *textextract.Registry
	extractor  *template.Extractor
	ai         aiextract.Client // nil when the fallback is disabled
	quota      QuotaService
	engine     *categorizer.Engine
	detector   *installments.Detector
	converter  *currency.Converter
	store      Store
	metrics    *metrics.Metrics
	textBudget int
	logger     logging.Logger
}

// NewOrchestrator wires the pipeline. Pass a nil AI client to disable
// the fallback entirely; low-confidence documents then finalize as
// degraded template results.
func NewOrchestrator(texts *textextract.Registry, extractor *template.Extractor,
	ai aiextract.Client, quota QuotaService, engine *categorizer.Engine,
	detector *installments.Detector, converter *currency.Converter,
	store Store, m *metrics.Metrics, textBudget int, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		texts:      texts,
		extractor:  extractor,
		ai:         ai,
		quota:      quota,
		engine:     engine,
		detector:   detector,
		converter:  converter,
		store:      store,
		metrics:    m,
		textBudget: textBudget,
		logger:     logger,
	}
}

// ProcessDocument ingests one uploaded document and always returns the
// standard result envelope, success or failure.
func (o *Orchestrator) ProcessDocument(ctx context.Context, userID string, data []byte, mimeType, filename, currencyOverride string) models.ProcessResult {
	log := o.logger.WithFields(
		logging.Field{Key: "user_id", Value: userID},
		logging.Field{Key: "filename", Value: filename})

	text, err := o.texts.ExtractText(data, mimeType, filename)
	if err != nil {
		var unsupported *pipelineerror.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			log.WithError(err).Warn("unsupported document format")
			return models.ErrorResult("unsupported_format", "unsupported document format", unsupported.MIMEType)
		}
		log.WithError(err).Warn("unreadable document")
		return models.ErrorResult("unreadable_document", "document could not be read", firstLine(err.Error()))
	}

	state := StateParsed
	log.Debug("state transition", logging.Field{Key: "state", Value: string(state)})

	docCurrency := currencyOverride
	if docCurrency == "" {
		docCurrency = o.converter.Reference()
	}

	templateResult := o.extractor.Extract(text, userID, docCurrency)
	state = StateTemplateMatched
	log.Debug("state transition",
		logging.Field{Key: "state", Value: string(state)},
		logging.Field{Key: "confidence", Value: templateResult.Confidence})

	if templateResult.Confidence >= template.ConfidenceThreshold {
		state = StateAccepted
		return o.finalize(ctx, log, state, userID, filename, docCurrency, templateResult, models.MethodTemplate, false)
	}

	state = StateLowConfidence
	log.Debug("state transition", logging.Field{Key: "state", Value: string(state)})

	if o.ai == nil {
		log.Info("AI fallback disabled, keeping template result")
		return o.finalize(ctx, log, state, userID, filename, docCurrency, templateResult, models.MethodTemplate, true)
	}

	state = StateQuotaCheck
	status, err := o.quota.Status(ctx, userID)
	if err != nil {
		log.WithError(err).Error("quota check failed, keeping template result")
		return o.finalize(ctx, log, state, userID, filename, docCurrency, templateResult, models.MethodTemplate, true)
	}
	if status.Exhausted() {
		log.Info("AI quota exhausted, keeping template result",
			logging.Field{Key: "month", Value: status.Month},
			logging.Field{Key: "limit", Value: status.Limit})
		return o.finalize(ctx, log, state, userID, filename, docCurrency, templateResult, models.MethodTemplate, true)
	}

	categories, err := o.store.ListCategoryNames(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("failed to load category hints")
		categories = nil
	}

	aiText := aiextract.Truncate(text, o.textBudget)
	if len(aiText) < len(text) {
		log.Warn("document text truncated for AI fallback, trailing rows may be lost",
			logging.Field{Key: "budget_chars", Value: o.textBudget},
			logging.Field{Key: "dropped_chars", Value: len(text) - len(aiText)})
	}

	o.metrics.FallbackCalls.Inc()
	aiResult, err := o.ai.ExtractStatement(ctx, aiextract.Request{
		Text:       aiText,
		Categories: categories,
		Filename:   filename,
	})
	if err != nil {
		state = StateAIFailed
		o.metrics.FallbackFailures.Inc()
		log.WithError(err).Error("AI fallback failed, keeping template result")
		return o.finalize(ctx, log, state, userID, filename, docCurrency, templateResult, models.MethodTemplate, true)
	}

	state = StateAIExtracted
	if _, err := o.quota.Record(ctx, userID); err != nil {
		// The extraction already succeeded; a broken counter must not
		// cost the user the result.
		log.WithError(err).Error("failed to record quota usage")
	}

	method := models.MethodHybrid
	if len(templateResult.Transactions) == 0 {
		method = models.MethodAI
	}

	mergeMetadata(aiResult, templateResult)
	for i := range aiResult.Transactions {
		if aiResult.Transactions[i].Currency == "" {
			aiResult.Transactions[i].Currency = docCurrency
		}
	}

	return o.finalize(ctx, log, state, userID, filename, docCurrency, aiResult, method, true)
}

// finalize runs the shared normalization stages, persists the batch and
// document metadata, and builds the envelope. Every decision-tree path
// ends here; no document is silently dropped.
func (o *Orchestrator) finalize(ctx context.Context, log logging.Logger, from State,
	userID, filename, docCurrency string, result *models.ExtractionResult,
	method models.Method, needsReview bool) models.ProcessResult {

	txs := result.Transactions
	for i := range txs {
		txs[i].UserID = userID
		txs[i].SourceFile = filename
		txs[i].Source = models.SourceDocument
		if txs[i].Currency == "" {
			txs[i].Currency = docCurrency
		}
		if needsReview {
			txs[i].NeedsReview = true
		}
	}

	rules, err := o.store.ListRules(ctx, userID)
	if err != nil {
		log.WithError(err).Error("failed to load category rules")
		return models.ErrorResult("storage", "failed to load category rules", firstLine(err.Error()))
	}

	o.engine.CategorizeBatch(txs, rules)
	o.detector.DetectBatch(txs)
	if failed := o.converter.ConvertBatch(ctx, txs); failed > 0 {
		o.metrics.RateLookupFailures.Add(float64(failed))
	}

	saved, err := o.store.SaveBatch(ctx, txs)
	if err != nil {
		log.WithError(err).Error("failed to persist batch")
		return models.ErrorResult("storage", "failed to persist transactions", firstLine(err.Error()))
	}

	if _, err := o.store.SaveDocument(ctx, storage.DocumentRecord{
		UserID:     userID,
		Filename:   filename,
		Metadata:   result.Metadata,
		Method:     method,
		Confidence: result.Confidence,
	}); err != nil {
		log.WithError(err).Error("failed to record document metadata")
	}

	o.metrics.DocumentsProcessed.WithLabelValues(string(method)).Inc()
	o.metrics.TransactionsPersisted.Add(float64(saved.Inserted))
	o.metrics.DuplicatesSkipped.Add(float64(saved.Skipped))

	log.Info("document finalized",
		logging.Field{Key: "from_state", Value: string(from)},
		logging.Field{Key: "state", Value: string(StateFinalized)},
		logging.Field{Key: "method", Value: string(method)},
		logging.Field{Key: "confidence", Value: result.Confidence},
		logging.Field{Key: "inserted", Value: saved.Inserted},
		logging.Field{Key: "skipped", Value: saved.Skipped})

	return models.ProcessResult{
		Success:      true,
		Descriptor:   models.Descriptor{Method: method, Confidence: result.Confidence},
		Metadata:     result.Metadata,
		Transactions: txs,
		Summary:      models.Summarize(txs),
		Inserted:     saved.Inserted,
		Skipped:      saved.Skipped,
	}
}

// mergeMetadata fills gaps in the AI result's metadata from the template
// pass, which may have caught fields the model missed.
func mergeMetadata(primary, secondary *models.ExtractionResult) {
	if primary.Metadata == nil {
		primary.Metadata = secondary.Metadata
		return
	}
	if secondary.Metadata == nil {
		return
	}
	if primary.Metadata.Institution == "" {
		primary.Metadata.Institution = secondary.Metadata.Institution
	}
	if primary.Metadata.AccountID == "" {
		primary.Metadata.AccountID = secondary.Metadata.AccountID
	}
	if primary.Metadata.OpeningBalance == nil {
		primary.Metadata.OpeningBalance = secondary.Metadata.OpeningBalance
	}
	if primary.Metadata.ClosingBalance == nil {
		primary.Metadata.ClosingBalance = secondary.Metadata.ClosingBalance
	}
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
