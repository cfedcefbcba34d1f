package ontology

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dithap/dithap-explorer/internal/genes"
)

const testPHAF = "#Database name\tGene systematic ID\tFYPO ID\tGene symbol\tAllele type\tCondition\tReference\n" +
	"PomBase\tG1\tFYPO:2\tg1\tdeletion\tFYECO:0000005,FYECO:0000137\tPMID:1\n" +
	"PomBase\tG1\tFYPO:2\tg1\tdeletion\tFYECO:0000005\tPMID:2\n" +
	"PomBase\tG2\tFYPO:3\tg2\tdisruption\tFYECO:0000005\tPMID:1\n" +
	"PomBase\tG3\tFYPO:2\tg3\tamino_acid_mismatch\tFYECO:0000005\tPMID:1\n" +
	"PomBase\tG4\tFYPO:2\tg4\tdeletion\tFYECO:0000004\tPMID:1\n" +
	"PomBase\tG5\tFYPO:9\tg5\tdeletion\tFYECO:0000005\tPMID:1\n"

func testFYPO(t *testing.T) *DAG {
	t.Helper()
	hdr, terms, err := ParseOBO(strings.NewReader(`default-namespace: fission_yeast_phenotype

[Term]
id: FYPO:1
name: phenotype

[Term]
id: FYPO:2
name: inviable cell
is_a: FYPO:1

[Term]
id: FYPO:3
name: elongated cell
is_a: FYPO:1
`))
	require.NoError(t, err)
	dag, err := NewDAG(hdr, terms)
	require.NoError(t, err)
	return dag
}

func TestReadPHAF(t *testing.T) {
	assoc, stats, err := ReadPHAF(strings.NewReader(testPHAF), testFYPO(t))
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Rows)
	assert.Equal(t, 3, stats.Kept)
	assert.Equal(t, 2, stats.Excluded)
	assert.Equal(t, 1, stats.UnknownTerm)

	assert.Equal(t, []string{NSPhenotype}, assoc.Namespaces())
	assert.Equal(t, []string{"FYPO:2"}, assoc.Terms(NSPhenotype, "G1"), "duplicate rows collapse")
	assert.Equal(t, []string{"FYPO:3"}, assoc.Terms(NSPhenotype, "G2"))
	assert.Empty(t, assoc.Terms(NSPhenotype, "G3"), "allele type is not a loss of function")
	assert.Empty(t, assoc.Terms(NSPhenotype, "G4"), "condition lacks standard rich medium")
}

func TestReadPHAF_TermWithoutNamespace(t *testing.T) {
	dag, err := NewDAG(Header{}, []*Term{{ID: "FYPO:2", Name: "inviable cell"}})
	require.NoError(t, err)

	assoc, _, err := ReadPHAF(strings.NewReader(testPHAF), dag)
	require.NoError(t, err)
	assert.Equal(t, []string{"FYPO:2"}, assoc.Terms(NSPhenotype, "G1"))
}

func TestReadPHAF_MissingColumn(t *testing.T) {
	doc := "#Database name\tGene systematic ID\tFYPO ID\tCondition\nPomBase\tG1\tFYPO:2\tFYECO:0000005\n"
	_, _, err := ReadPHAF(strings.NewReader(doc), testFYPO(t))

	var dle *genes.DataLoadError
	require.True(t, errors.As(err, &dle))
	assert.Equal(t, PHAFAlleleType, dle.Column)

	_, _, err = ReadPHAF(strings.NewReader(""), testFYPO(t))
	assert.True(t, errors.As(err, &dle))
}

func TestLoaderPHAF(t *testing.T) {
	dir := t.TempDir()
	obo := filepath.Join(dir, "fypo-simple.obo")
	phaf := filepath.Join(dir, "pombase.phaf")
	require.NoError(t, os.WriteFile(obo, []byte("default-namespace: fission_yeast_phenotype\n\n[Term]\nid: FYPO:2\nname: inviable cell\n"), 0644))
	require.NoError(t, os.WriteFile(phaf, []byte(testPHAF), 0644))

	s, err := NewLoader().LoadFormat(obo, phaf, FormatPHAF)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Associations.Count())
	assert.Equal(t, []string{"FYPO:2"}, s.Associations.Terms(NSPhenotype, "G1"))
}
