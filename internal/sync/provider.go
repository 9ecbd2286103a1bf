// Package sync pulls transactions from external account providers and
// feeds them through the same normalization stages as document
// ingestion. Providers are selected from a flat registry keyed by name.
package sync

import (
	"context"
	"time"

	"ledgerpipe/internal/models"
)

// Credentials are the already-valid access credentials for one connected
// account. Obtaining them (OAuth handshakes, refresh) happens elsewhere.
type Credentials struct {
	AccessToken string
	// AccountID is the provider-side identifier of the authenticated
	// account, used for direction inference where the provider reports
	// counterparties.
	AccountID string
}

// Page is one page of provider results. Fetched counts the records the
// provider API returned before filtering; the cursor must advance by it,
// not by len(Transactions), or a fully filtered page loops forever.
type Page struct {
	Transactions []models.Transaction
	Fetched      int
	HasMore      bool
}

// Provider pulls transactions from one external account API.
type Provider interface {
	Name() string
	// FetchPage returns transactions created after since, starting at
	// the given record offset.
	FetchPage(ctx context.Context, creds Credentials, since time.Time, offset int) (*Page, error)
}

// Registry holds the available providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its name.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider with the given name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names lists the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
