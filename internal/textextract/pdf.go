package textextract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/pipelineerror"
)

// PDFExtractor extracts plain text from PDF statements page by page.
// Scanned image-only PDFs yield empty text; that is reported as an
// unreadable document rather than silently producing zero transactions.
type PDFExtractor struct {
	logger logging.Logger
}

// NewPDFExtractor creates a new PDFExtractor.
func NewPDFExtractor(logger logging.Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger}
}

// Extract implements Extractor.
func (e *PDFExtractor) Extract(data []byte, filename string) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", pipelineerror.NewUnreadableDocumentError(filename, "failed to open PDF", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single broken page should not lose the rest of the
			// statement.
			e.logger.Warn("failed to extract PDF page",
				logging.Field{Key: "filename", Value: filename},
				logging.Field{Key: "page", Value: i},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}

		sb.WriteString(text)
		sb.WriteString("\n")
	}

	result := sb.String()
	if strings.TrimSpace(result) == "" {
		return "", pipelineerror.NewUnreadableDocumentError(filename,
			"no extractable text (scanned or image-only PDF)", nil)
	}

	e.logger.Debug("PDF text extracted",
		logging.Field{Key: "filename", Value: filename},
		logging.Field{Key: "pages", Value: numPages},
		logging.Field{Key: "chars", Value: len(result)})

	return result, nil
}
