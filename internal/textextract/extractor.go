// Package textextract turns uploaded documents into plain text for the
// extraction stages downstream. Each supported MIME type has its own
// Extractor; tabular inputs are re-serialized with tab delimiters so the
// downstream parsers only ever deal with one cell separator.
package textextract

import (
	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/pipelineerror"
)

// Extractor converts one document format into plain text.
type Extractor interface {
	// Extract returns the document's textual content. The filename is
	// used for error reporting only.
	Extract(data []byte, filename string) (string, error)
}

// MIME types of the supported document formats.
const (
	MIMEPDF     = "application/pdf"
	MIMECSV     = "text/csv"
	MIMEPlain   = "text/plain"
	MIMEXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMECAMTXML = "application/xml"
)

// Registry maps MIME types to the extractor handling them.
type Registry struct {
	extractors map[string]Extractor
	logger     logging.Logger
}

// NewRegistry builds a registry with the default extractor set.
func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		extractors: map[string]Extractor{
			MIMEPDF:     NewPDFExtractor(logger),
			MIMECSV:     NewTabularExtractor(logger),
			MIMEPlain:   NewTabularExtractor(logger),
			MIMEXLSX:    NewSpreadsheetExtractor(logger),
			MIMECAMTXML: NewCAMTExtractor(logger),
		},
		logger: logger,
	}
}

// Register installs an extractor for a MIME type, replacing any default.
func (r *Registry) Register(mimeType string, e Extractor) {
	r.extractors[mimeType] = e
}

// ExtractText extracts plain text from a document, dispatching on MIME
// type. An unknown MIME type returns UnsupportedFormatError before any
// content is touched.
func (r *Registry) ExtractText(data []byte, mimeType, filename string) (string, error) {
	extractor, ok := r.extractors[mimeType]
	if !ok {
		return "", pipelineerror.NewUnsupportedFormatError(mimeType)
	}

	r.logger.Debug("extracting text",
		logging.Field{Key: "mime_type", Value: mimeType},
		logging.Field{Key: "filename", Value: filename},
		logging.Field{Key: "size", Value: len(data)})

	return extractor.Extract(data, filename)
}
