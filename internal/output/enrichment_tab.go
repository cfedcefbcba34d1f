package output

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// NoSignificantTerms is reported when an enrichment table is empty.
const NoSignificantTerms = "No significant terms found"

// EnrichmentTabWriter writes enrichment rows in tab-delimited format.
type EnrichmentTabWriter struct {
	w *bufio.Writer
}

// NewEnrichmentTabWriter creates a new tab-delimited writer.
func NewEnrichmentTabWriter(w io.Writer) *EnrichmentTabWriter {
	return &EnrichmentTabWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (tw *EnrichmentTabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(EnrichmentColumns, "\t") + "\n")
	return err
}

// Write writes a single row.
func (tw *EnrichmentTabWriter) Write(r EnrichmentRow) error {
	values := []string{
		r.TermID,
		r.Namespace,
		r.Enrichment,
		r.Name,
		formatP(r.PFDR),
		formatP(r.PUncorrected),
		strconv.Itoa(r.StudyCount),
		strconv.Itoa(r.PopCount),
		strconv.Itoa(r.StudyN),
		strconv.Itoa(r.PopN),
		r.RatioInStudy,
		r.RatioInPop,
		strconv.FormatFloat(r.CoverageFrac, 'f', -1, 64),
		r.StudyItems,
		r.MissingItems,
		r.PopItems,
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *EnrichmentTabWriter) Flush() error {
	return tw.w.Flush()
}

// WriteEnrichmentTab writes a header and all rows.
func WriteEnrichmentTab(w io.Writer, rows []EnrichmentRow) error {
	tw := NewEnrichmentTabWriter(w)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tw.Write(r); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatP(p float64) string {
	return strconv.FormatFloat(p, 'g', 6, 64)
}
