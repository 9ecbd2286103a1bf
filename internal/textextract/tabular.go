package textextract

import (
	"encoding/csv"
	"strings"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/pipelineerror"
)

// candidateDelimiters in detection order. The delimiter splitting the
// first non-empty line into the most columns wins; ties go to the earlier
// candidate.
var candidateDelimiters = []rune{',', ';', '\t'}

// TabularExtractor handles CSV and delimited text exports. It sniffs the
// cell delimiter and re-serializes every row tab-delimited, so downstream
// parsing never needs to know what the bank exported.
type TabularExtractor struct {
	logger logging.Logger
}

// NewTabularExtractor creates a new TabularExtractor.
func NewTabularExtractor(logger logging.Logger) *TabularExtractor {
	return &TabularExtractor{logger: logger}
}

// Extract implements Extractor.
func (e *TabularExtractor) Extract(data []byte, filename string) (string, error) {
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return "", pipelineerror.NewUnreadableDocumentError(filename, "empty file", nil)
	}

	delimiter := DetectDelimiter(content)

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1 // banks pad rows inconsistently
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return "", pipelineerror.NewUnreadableDocumentError(filename, "failed to parse delimited data", err)
	}

	var sb strings.Builder
	for _, record := range records {
		for i := range record {
			record[i] = strings.ReplaceAll(record[i], "\t", " ")
		}
		sb.WriteString(strings.Join(record, "\t"))
		sb.WriteString("\n")
	}

	e.logger.Debug("tabular text extracted",
		logging.Field{Key: "filename", Value: filename},
		logging.Field{Key: "delimiter", Value: string(delimiter)},
		logging.Field{Key: "rows", Value: len(records)})

	return sb.String(), nil
}

// DetectDelimiter picks the delimiter that splits the first non-empty
// line into the most columns.
func DetectDelimiter(content string) rune {
	var header string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			header = line
			break
		}
	}

	best := candidateDelimiters[0]
	bestCount := 0
	for _, d := range candidateDelimiters {
		count := strings.Count(header, string(d))
		if count > bestCount {
			best = d
			bestCount = count
		}
	}
	return best
}
