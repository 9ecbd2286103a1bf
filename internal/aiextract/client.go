// Package aiextract is the LLM fallback: when heuristic extraction scores
// below the acceptance threshold, the document text is re-extracted by a
// generative model with the user's category list as semantic context.
package aiextract

import (
	"context"

	"ledgerpipe/internal/models"
)

// Request carries everything the fallback needs for one document.
type Request struct {
	// Text is the extracted plain text, already truncated to the
	// configured character budget by the caller.
	Text string
	// Categories are the user's existing category names, passed as
	// hints so the model reuses them instead of inventing labels.
	Categories []string
	Filename   string
}

// Client re-extracts a statement with an LLM.
type Client interface {
	ExtractStatement(ctx context.Context, req Request) (*models.ExtractionResult, error)
}

// Truncate bounds text to at most budget characters, keeping the leading
// portion. Statement headers and the bulk of the rows sit at the top;
// what a long tail loses is the trade-off for bounded cost.
func Truncate(text string, budget int) string {
	if budget <= 0 || len(text) <= budget {
		return text
	}
	return text[:budget]
}
