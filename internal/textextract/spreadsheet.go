package textextract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/pipelineerror"
)

// SpreadsheetExtractor handles XLSX workbooks. Every sheet is flattened
// to tab-delimited rows under a sheet marker line, so multi-sheet exports
// keep their structure visible to downstream parsing.
type SpreadsheetExtractor struct {
	logger logging.Logger
}

// NewSpreadsheetExtractor creates a new SpreadsheetExtractor.
func NewSpreadsheetExtractor(logger logging.Logger) *SpreadsheetExtractor {
	return &SpreadsheetExtractor{logger: logger}
}

// Extract implements Extractor.
func (e *SpreadsheetExtractor) Extract(data []byte, filename string) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", pipelineerror.NewUnreadableDocumentError(filename, "failed to open workbook", err)
	}
	defer func() {
		if closeErr := workbook.Close(); closeErr != nil {
			e.logger.Warn("failed to close workbook",
				logging.Field{Key: "filename", Value: filename},
				logging.Field{Key: "error", Value: closeErr.Error()})
		}
	}()

	var sb strings.Builder
	sheets := workbook.GetSheetList()
	for _, sheet := range sheets {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", pipelineerror.NewUnreadableDocumentError(filename,
				fmt.Sprintf("failed to read sheet %s", sheet), err)
		}

		if len(sheets) > 1 {
			sb.WriteString(fmt.Sprintf("=== sheet: %s ===\n", sheet))
		}
		for _, row := range rows {
			for i := range row {
				row[i] = strings.ReplaceAll(row[i], "\t", " ")
			}
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}

	result := sb.String()
	if strings.TrimSpace(result) == "" {
		return "", pipelineerror.NewUnreadableDocumentError(filename, "workbook contains no data", nil)
	}

	e.logger.Debug("spreadsheet text extracted",
		logging.Field{Key: "filename", Value: filename},
		logging.Field{Key: "sheets", Value: len(sheets)})

	return result, nil
}
