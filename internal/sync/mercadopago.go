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

const mercadoPagoName = "mercadopago"

// MercadoPagoProvider pulls approved payments from the Mercado Pago
// payments search API.
type MercadoPagoProvider struct {
	baseURL  string
	pageSize int
	client   *http.Client
	logger   logging.Logger
}

// NewMercadoPagoProvider creates the provider against the given API base
// URL ("https://api.mercadopago.com" in production).
func NewMercadoPagoProvider(baseURL string, pageSize int, timeout time.Duration, logger logging.Logger) *MercadoPagoProvider {
	return &MercadoPagoProvider{
		baseURL:  baseURL,
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Name implements Provider.
func (p *MercadoPagoProvider) Name() string {
	return mercadoPagoName
}

type mpSearchResponse struct {
	Paging struct {
		Total  int `json:"total"`
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
	} `json:"paging"`
	Results []mpPayment `json:"results"`
}

type mpPayment struct {
	ID                int64           `json:"id"`
	DateApproved      string          `json:"date_approved"`
	DateCreated       string          `json:"date_created"`
	Description       string          `json:"description"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	Status            string          `json:"status"`
	CollectorID       int64           `json:"collector_id"`
}

// FetchPage implements Provider.
func (p *MercadoPagoProvider) FetchPage(ctx context.Context, creds Credentials, since time.Time, offset int) (*Page, error) {
	query := url.Values{}
	query.Set("sort", "date_created")
	query.Set("criteria", "asc")
	query.Set("range", "date_created")
	query.Set("begin_date", since.UTC().Format(time.RFC3339))
	query.Set("end_date", "NOW")
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(p.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v1/payments/search?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, pipelineerror.NewProviderAuthError(mercadoPagoName, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mercadopago returned status %d", resp.StatusCode)
	}

	var body mpSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode mercadopago response: %w", err)
	}

	txs := make([]models.Transaction, 0, len(body.Results))
	for _, payment := range body.Results {
		if payment.Status != "approved" {
			continue
		}

		tx, err := p.toTransaction(payment, creds)
		if err != nil {
			p.logger.WithError(err).Warn("skipping unparsable mercadopago payment",
				logging.Field{Key: "payment_id", Value: payment.ID})
			continue
		}
		txs = append(txs, tx)
	}

	hasMore := body.Paging.Offset+len(body.Results) < body.Paging.Total
	return &Page{Transactions: txs, Fetched: len(body.Results), HasMore: hasMore}, nil
}

func (p *MercadoPagoProvider) toTransaction(payment mpPayment, creds Credentials) (models.Transaction, error) {
	dateStr := payment.DateApproved
	if dateStr == "" {
		dateStr = payment.DateCreated
	}
	date, err := time.Parse(time.RFC3339, dateStr)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("bad payment date %q: %w", dateStr, err)
	}

	// Money flows toward the collector: if the authenticated account is
	// the collector this is income, otherwise it paid someone.
	txType := models.TypeExpense
	if strconv.FormatInt(payment.CollectorID, 10) == creds.AccountID {
		txType = models.TypeIncome
	}

	return models.Transaction{
		Date:         date,
		Description:  payment.Description,
		Amount:       payment.TransactionAmount.Abs(),
		Type:         txType,
		Currency:     payment.CurrencyID,
		Confidence:   100,
		Source:       models.SourceSync,
		Provider:     mercadoPagoName,
		ProviderTxID: strconv.FormatInt(payment.ID, 10),
	}, nil
}
