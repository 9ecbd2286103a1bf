// Package container wires the application graph. Components are created
// lazily and shared; commands ask the container for what they need
// instead of constructing dependencies themselves.
package container

import (
	"context"
	"fmt"
	"time"

	"ledgerpipe/internal/aiextract"
	"ledgerpipe/internal/categorizer"
	"ledgerpipe/internal/config"
	"ledgerpipe/internal/currency"
	"ledgerpipe/internal/ingest"
	"ledgerpipe/internal/installments"
	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/metrics"
	"ledgerpipe/internal/quota"
	"ledgerpipe/internal/storage"
	"ledgerpipe/internal/sync"
	"ledgerpipe/internal/template"
	"ledgerpipe/internal/textextract"
)

// Container holds the wired application components.
type Container struct {
	config  *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics

	store        *storage.Store
	texts        *textextract.Registry
	extractor    *template.Extractor
	aiClient     aiextract.Client
	quotaService *quota.Service
	engine       *categorizer.Engine
	detector     *installments.Detector
	converter    *currency.Converter
	orchestrator *ingest.Orchestrator
	providers    *sync.Registry
	syncer       *sync.Syncer
	reconciler   *currency.Reconciler
}

// New builds the container. The AI client is only created when the
// fallback is enabled in configuration.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Container, error) {
	c := &Container{
		config:  cfg,
		logger:  logger,
		metrics: metrics.NewDefault(),
	}

	store, err := storage.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	c.store = store

	c.texts = textextract.NewRegistry(logger)
	c.extractor = template.NewExtractor(logger)
	c.engine = categorizer.NewEngine(logger)
	c.detector = installments.NewDetector(logger)
	c.quotaService = quota.NewService(store, cfg.AI.MonthlyQuota)

	if cfg.AI.Enabled {
		aiTimeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
		client, err := aiextract.NewGeminiClient(ctx, cfg.AI.APIKey, cfg.AI.Model, aiTimeout, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create AI client: %w", err)
		}
		c.aiClient = client
	}

	rateTimeout := time.Duration(cfg.Currency.TimeoutSeconds) * time.Second
	source := currency.NewBreakerSource(
		currency.NewHTTPRateSource(cfg.Currency.RateAPIURL, rateTimeout), logger)
	c.converter = currency.NewConverter(cfg.Currency.Reference, source, store, logger)
	c.reconciler = currency.NewReconciler(store, c.converter, 100, logger)

	c.orchestrator = ingest.NewOrchestrator(c.texts, c.extractor, c.aiClient,
		c.quotaService, c.engine, c.detector, c.converter, store, c.metrics,
		cfg.AI.TextBudgetChars, logger)

	providerTimeout := 30 * time.Second
	c.providers = sync.NewRegistry()
	c.providers.Register(sync.NewMercadoPagoProvider(
		"https://api.mercadopago.com", cfg.Sync.PageSize, providerTimeout, logger))
	c.providers.Register(sync.NewWiseProvider(
		"https://api.transferwise.com", cfg.Sync.PageSize, providerTimeout, logger))

	c.syncer = sync.NewSyncer(c.providers, store, c.engine, c.detector,
		c.converter, c.metrics,
		time.Duration(cfg.Sync.PageDelayMillis)*time.Millisecond,
		cfg.Sync.LookbackMonths, logger)

	return c, nil
}

// Close releases held resources.
func (c *Container) Close() error {
	if closer, ok := c.aiClient.(*aiextract.GeminiClient); ok && closer != nil {
		if err := closer.Close(); err != nil {
			c.logger.WithError(err).Warn("failed to close AI client")
		}
	}
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// Config returns the loaded configuration.
func (c *Container) Config() *config.Config { return c.config }

// Logger returns the application logger.
func (c *Container) Logger() logging.Logger { return c.logger }

// Store returns the persistence layer.
func (c *Container) Store() *storage.Store { return c.store }

// Orchestrator returns the document ingestion pipeline.
func (c *Container) Orchestrator() *ingest.Orchestrator { return c.orchestrator }

// Syncer returns the provider sync runner.
func (c *Container) Syncer() *sync.Syncer { return c.syncer }

// Reconciler returns the currency backfill job.
func (c *Container) Reconciler() *currency.Reconciler { return c.reconciler }

// QuotaService returns the AI quota service.
func (c *Container) QuotaService() *quota.Service { return c.quotaService }
