package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dithap/dithap-explorer/internal/enrich"
)

var idToName = map[string]string{
	"SPAC1002.09c": "dld1",
	"SPAC3G9.12":   "peg1",
	"SPAC1F8.02c":  "SPAC1F8.02c",
}

func testRecords() []enrich.Record {
	return []enrich.Record{
		{
			TermID: "GO:0007049", Namespace: "BP", Direction: enrich.Enriched, Name: "cell cycle",
			PFDR: 0.01, PUncorrected: 0.001,
			StudyCount: 2, PopCount: 3, StudyN: 2, PopN: 40,
			StudyItems: []string{"SPAC1002.09c", "SPAC3G9.12"},
			PopItems:   []string{"SPAC1002.09c", "SPAC1F8.02c", "SPAC3G9.12"},
		},
		{
			TermID: "GO:0005634", Namespace: "CC", Direction: enrich.Enriched, Name: "nucleus",
			PFDR: 0.001, PUncorrected: 0.0001,
			StudyCount: 1, PopCount: 3, StudyN: 2, PopN: 40,
			StudyItems: []string{"SPAC1002.09c"},
			PopItems:   []string{"SPAC1002.09c", "SPBC1.01", "SPAC3G9.12"},
		},
		{
			TermID: "GO:0003674", Namespace: "MF", Direction: enrich.Enriched, Name: "molecular_function",
			PFDR: 0.01, PUncorrected: 0.002,
			StudyCount: 1, PopCount: 1, StudyN: 2, PopN: 40,
			StudyItems: []string{"SPAC3G9.12"},
			PopItems:   []string{"SPAC3G9.12"},
		},
	}
}

func TestFormatEnrichment(t *testing.T) {
	rows := FormatEnrichment(testRecords(), idToName)
	require.Len(t, rows, 3)

	// Sorted by corrected p; ties keep record order.
	assert.Equal(t, "GO:0005634", rows[0].TermID)
	assert.Equal(t, "GO:0007049", rows[1].TermID)
	assert.Equal(t, "GO:0003674", rows[2].TermID)

	nucleus := rows[0]
	assert.Equal(t, "CC", nucleus.Namespace)
	assert.Equal(t, "e", nucleus.Enrichment)
	assert.Equal(t, "1/2", nucleus.RatioInStudy)
	assert.Equal(t, "3/40", nucleus.RatioInPop)
	assert.Equal(t, 0.333, nucleus.CoverageFrac)
	assert.Equal(t, "dld1", nucleus.StudyItems)
	assert.Equal(t, "SPBC1.01, peg1", nucleus.MissingItems, "unknown IDs fall back to the ID")
	assert.Equal(t, "dld1, SPBC1.01, peg1", nucleus.PopItems)

	cycle := rows[1]
	assert.Equal(t, 0.667, cycle.CoverageFrac)
	assert.Equal(t, "SPAC1F8.02c", cycle.MissingItems)

	assert.Equal(t, 1.0, rows[2].CoverageFrac)
	assert.Equal(t, "", rows[2].MissingItems)
}

func TestFormatEnrichment_CoverageRange(t *testing.T) {
	for _, r := range FormatEnrichment(testRecords(), nil) {
		assert.GreaterOrEqual(t, r.CoverageFrac, 0.0)
		assert.LessOrEqual(t, r.CoverageFrac, 1.0)
	}
	assert.Empty(t, FormatEnrichment(nil, idToName))
}

func TestWriteEnrichmentTab(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnrichmentTab(&buf, FormatEnrichment(testRecords(), idToName)))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(EnrichmentColumns, "\t"), lines[0])

	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, len(EnrichmentColumns))
	assert.Equal(t, "GO:0005634", fields[0])
	assert.Equal(t, "0.001", fields[4])
	assert.Equal(t, "0.0001", fields[5])
	assert.Equal(t, "0.333", fields[12])
	assert.Equal(t, "SPBC1.01, peg1", fields[14])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, FormatEnrichment(testRecords()[:1], idToName)))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "GO:0007049", decoded[0]["term_id"])
	assert.Equal(t, 0.667, decoded[0]["coverage_frac"])
}
