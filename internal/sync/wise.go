package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
	"ledgerpipe/internal/pipelineerror"
)

const wiseName = "wise"

// WiseProvider pulls account transactions from the Wise API. Wise
// reports signed amounts; direction comes from the sign.
type WiseProvider struct {
	baseURL  string
	pageSize int
	client   *http.Client
	logger   logging.Logger
}

// NewWiseProvider creates the provider against the given API base URL.
func NewWiseProvider(baseURL string, pageSize int, timeout time.Duration, logger logging.Logger) *WiseProvider {
	return &WiseProvider{
		baseURL:  baseURL,
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Name implements Provider.
func (p *WiseProvider) Name() string {
	return wiseName
}

type wiseResponse struct {
	Transactions []wiseTransaction `json:"transactions"`
	HasMore      bool              `json:"has_more"`
}

type wiseTransaction struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Details   string `json:"details"`
	Reference string `json:"reference"`
	Amount    struct {
		Value    decimal.Decimal `json:"value"`
		Currency string          `json:"currency"`
	} `json:"amount"`
}

// FetchPage implements Provider.
func (p *WiseProvider) FetchPage(ctx context.Context, creds Credentials, since time.Time, offset int) (*Page, error) {
	query := url.Values{}
	query.Set("profileId", creds.AccountID)
	query.Set("since", since.UTC().Format(time.RFC3339))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(p.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v1/transactions?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wise request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, pipelineerror.NewProviderAuthError(wiseName, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wise returned status %d", resp.StatusCode)
	}

	var body wiseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode wise response: %w", err)
	}

	txs := make([]models.Transaction, 0, len(body.Transactions))
	for _, raw := range body.Transactions {
		date, err := time.Parse(time.RFC3339, raw.Date)
		if err != nil {
			p.logger.WithError(err).Warn("skipping wise transaction with bad date",
				logging.Field{Key: "transaction_id", Value: raw.ID})
			continue
		}

		txType := models.TypeIncome
		if raw.Amount.Value.IsNegative() {
			txType = models.TypeExpense
		}

		txs = append(txs, models.Transaction{
			Date:         date,
			Description:  raw.Details,
			Reference:    raw.Reference,
			Amount:       raw.Amount.Value.Abs(),
			Type:         txType,
			Currency:     raw.Amount.Currency,
			Confidence:   100,
			Source:       models.SourceSync,
			Provider:     wiseName,
			ProviderTxID: raw.ID,
		})
	}

	return &Page{Transactions: txs, Fetched: len(body.Transactions), HasMore: body.HasMore}, nil
}
