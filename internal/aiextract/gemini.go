package aiextract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
	"ledgerpipe/internal/pipelineerror"
)

// aiConfidence is the score stamped on model-extracted results. The model
// reads documents the heuristics could not, but its output still goes
// through user review, so it never scores a perfect 100.
const aiConfidence = 85

// statementDTO is the JSON shape the model is instructed to return.
type statementDTO struct {
	Institution    string           `json:"institution"`
	AccountID      string           `json:"account_id"`
	AccountType    string           `json:"account_type"`
	PeriodStart    string           `json:"period_start"`
	PeriodEnd      string           `json:"period_end"`
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
	ClosingBalance *decimal.Decimal `json:"closing_balance"`
	Transactions   []transactionDTO `json:"transactions"`
}

type transactionDTO struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Installment *installmentDTO `json:"installment"`
}

type installmentDTO struct {
	Number int `json:"number"`
	Total  int `json:"total"`
}

// GeminiClient implements Client using the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  logging.Logger
}

// NewGeminiClient creates a Gemini-backed extraction client.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, logger logging.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for Gemini client")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model, timeout: timeout, logger: logger}, nil
}

// Close releases the underlying API client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// ExtractStatement implements Client.
func (g *GeminiClient) ExtractStatement(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := buildPrompt(req)

	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, pipelineerror.NewExtractionError("generate", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, pipelineerror.NewExtractionError("generate", fmt.Errorf("empty response from model"))
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, pipelineerror.NewExtractionError("generate", fmt.Errorf("unexpected response part type %T", resp.Candidates[0].Content.Parts[0]))
	}

	result, err := ParseResponse(string(text), req.Categories)
	if err != nil {
		return nil, err
	}

	g.logger.Info("AI extraction succeeded",
		logging.Field{Key: "filename", Value: req.Filename},
		logging.Field{Key: "transactions", Value: len(result.Transactions)})

	return result, nil
}

func buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("You are a bank statement parser. Extract every transaction from the statement text below.\n\n")
	sb.WriteString("Respond with ONLY a JSON object, no prose and no markdown fences, in exactly this shape:\n")
	sb.WriteString(`{
  "institution": "bank name or empty string",
  "account_id": "account number/IBAN or empty string",
  "account_type": "checking|savings|credit_card or empty string",
  "period_start": "YYYY-MM-DD or empty string",
  "period_end": "YYYY-MM-DD or empty string",
  "opening_balance": number or null,
  "closing_balance": number or null,
  "transactions": [
    {
      "date": "YYYY-MM-DD",
      "description": "string",
      "reference": "string or empty",
      "amount": positive number,
      "currency": "ISO 4217 code",
      "type": "income" or "expense",
      "category": "one of the provided categories or empty string",
      "installment": {"number": N, "total": M} or null
    }
  ]
}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- amount is always the positive magnitude; direction goes in type.\n")
	sb.WriteString("- Detect installment markers like \"3/12\", \"Cuota 3 de 12\", \"Parcela 3 de 12\" and fill the installment block.\n")
	sb.WriteString("- Do not invent transactions; omit rows you cannot read.\n")

	if len(req.Categories) > 0 {
		sb.WriteString("\nKnown categories: ")
		sb.WriteString(strings.Join(req.Categories, ", "))
		sb.WriteString("\n")
	}

	sb.WriteString("\nStatement text:\n")
	sb.WriteString(req.Text)
	return sb.String()
}

// ParseResponse decodes the model's reply into an extraction result. The
// reply is cleaned first: models wrap JSON in markdown fences despite
// instructions. Per-row categories are kept only when they name one of
// the known categories; invented labels are dropped and the row falls
// back to keyword rules.
func ParseResponse(raw string, categories []string) (*models.ExtractionResult, error) {
	cleaned := cleanModelJSON(raw)

	known := make(map[string]string, len(categories))
	for _, name := range categories {
		known[strings.ToLower(strings.TrimSpace(name))] = name
	}

	var dto statementDTO
	if err := json.Unmarshal([]byte(cleaned), &dto); err != nil {
		return nil, pipelineerror.NewExtractionError("decode", err)
	}

	if len(dto.Transactions) == 0 {
		return nil, pipelineerror.NewExtractionError("decode", fmt.Errorf("model returned no transactions"))
	}

	metadata := &models.DocumentMetadata{
		Institution:    dto.Institution,
		AccountID:      dto.AccountID,
		AccountType:    dto.AccountType,
		OpeningBalance: dto.OpeningBalance,
		ClosingBalance: dto.ClosingBalance,
	}
	if t, err := models.ParseDate(dto.PeriodStart); err == nil {
		metadata.PeriodStart = &t
	}
	if t, err := models.ParseDate(dto.PeriodEnd); err == nil {
		metadata.PeriodEnd = &t
	}

	transactions := make([]models.Transaction, 0, len(dto.Transactions))
	for _, row := range dto.Transactions {
		date, err := models.ParseDate(row.Date)
		if err != nil {
			continue
		}

		txType := models.TypeExpense
		if strings.EqualFold(row.Type, "income") {
			txType = models.TypeIncome
		}

		tx := models.Transaction{
			Date:        date,
			Description: strings.TrimSpace(row.Description),
			Reference:   strings.TrimSpace(row.Reference),
			Amount:      row.Amount.Abs(),
			Type:        txType,
			Currency:    strings.ToUpper(strings.TrimSpace(row.Currency)),
			Confidence:  aiConfidence,
			Source:      models.SourceDocument,
			AIProcessed: true,
		}

		if canonical, ok := known[strings.ToLower(strings.TrimSpace(row.Category))]; ok && canonical != "" {
			category := canonical
			tx.CategoryID = &category
		}

		if row.Installment != nil && row.Installment.Number > 0 &&
			row.Installment.Number <= row.Installment.Total {
			tx.Installment = &models.Installment{
				Number: row.Installment.Number,
				Total:  row.Installment.Total,
			}
		}

		transactions = append(transactions, tx)
	}

	if len(transactions) == 0 {
		return nil, pipelineerror.NewExtractionError("decode", fmt.Errorf("no usable transactions in model output"))
	}

	return &models.ExtractionResult{
		Transactions: transactions,
		Confidence:   aiConfidence,
		Metadata:     metadata,
	}, nil
}

// cleanModelJSON strips markdown fences and any prose around the JSON
// object, keeping everything from the first '{' to the last '}'.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
