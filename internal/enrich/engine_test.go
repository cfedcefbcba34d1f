package enrich

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dithap/dithap-explorer/internal/ontology"
)

func genes(prefix string, from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

func testDAG(t *testing.T, ids ...string) *ontology.DAG {
	t.Helper()
	terms := make([]*ontology.Term, len(ids))
	for i, id := range ids {
		terms[i] = &ontology.Term{ID: id, Name: "name of " + id, Namespace: "biological_process"}
	}
	dag, err := ontology.NewDAG(ontology.Header{}, terms)
	require.NoError(t, err)
	return dag
}

func TestStudy_ScenarioA(t *testing.T) {
	dag := testDAG(t, "T")
	assoc := ontology.NewAssociations(map[string]map[string][]string{
		"BP": {"G1": {"T"}, "G2": {"T"}},
	})

	recs, err := NewEngine().Study([]string{"G1", "G2"}, []string{"G1", "G2", "G3", "G4"}, dag, assoc)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, "T", r.TermID)
	assert.Equal(t, "BP", r.Namespace)
	assert.Equal(t, "name of T", r.Name)
	assert.Equal(t, Enriched, r.Direction)
	assert.Equal(t, 2, r.StudyCount)
	assert.Equal(t, 2, r.PopCount)
	assert.Equal(t, 2, r.StudyN)
	assert.Equal(t, 4, r.PopN)
	assert.Equal(t, "2/2", r.RatioInStudy())
	assert.Equal(t, "2/4", r.RatioInPop())
	assert.InDelta(t, 1.0/6, r.PUncorrected, 1e-12)
	assert.Equal(t, []string{"G1", "G2"}, r.StudyItems)
	assert.Equal(t, []string{"G1", "G2"}, r.PopItems)

	// p = 1/6 is not significant, so Run drops it.
	sig, err := NewEngine().Run([]string{"G1", "G2"}, []string{"G1", "G2", "G3", "G4"}, dag, assoc)
	require.NoError(t, err)
	assert.Empty(t, sig)
}

func significantFixture(t *testing.T) ([]string, []string, *ontology.DAG, *ontology.Associations) {
	t.Helper()
	background := genes("G", 1, 20)
	query := genes("G", 1, 5)

	byGene := map[string][]string{}
	// T:hit is carried by exactly the query genes.
	for _, g := range query {
		byGene[g] = append(byGene[g], "T:hit")
	}
	// T:broad is carried by everyone: not enriched.
	for _, g := range background {
		byGene[g] = append(byGene[g], "T:broad")
	}
	// T:miss is carried only outside the query: depleted.
	for _, g := range genes("G", 10, 20) {
		byGene[g] = append(byGene[g], "T:miss")
	}
	// A gene outside the background must not count.
	byGene["X1"] = []string{"T:hit", "T:other"}

	assoc := ontology.NewAssociations(map[string]map[string][]string{"BP": byGene})
	dag := testDAG(t, "T:hit", "T:broad", "T:miss", "T:other")
	return query, background, dag, assoc
}

func TestRun_FiltersToSignificantEnriched(t *testing.T) {
	query, background, dag, assoc := significantFixture(t)
	e := NewEngine()

	all, err := e.Study(query, background, dag, assoc)
	require.NoError(t, err)
	require.Len(t, all, 3, "T:other has no background genes and is not tested")
	assert.Equal(t, []string{"T:broad", "T:hit", "T:miss"}, termIDs(all))

	byID := map[string]Record{}
	for _, r := range all {
		byID[r.TermID] = r
	}
	assert.Equal(t, Depleted, byID["T:broad"].Direction)
	assert.Equal(t, Depleted, byID["T:miss"].Direction)
	assert.Equal(t, Enriched, byID["T:hit"].Direction)
	assert.Equal(t, 5, byID["T:hit"].PopCount, "X1 is outside the background")
	assert.InDelta(t, 1.0/15504, byID["T:hit"].PUncorrected, 1e-12)

	sig, err := e.Run(query, background, dag, assoc)
	require.NoError(t, err)
	require.Len(t, sig, 1)
	assert.Equal(t, "T:hit", sig[0].TermID)
	for _, r := range sig {
		assert.Less(t, r.PFDR, Alpha)
		assert.Equal(t, Enriched, r.Direction)
	}
}

func TestRun_Deterministic(t *testing.T) {
	query, background, dag, assoc := significantFixture(t)
	e := NewEngine()

	first, err := e.Study(query, background, dag, assoc)
	require.NoError(t, err)
	second, err := e.Study(query, background, dag, assoc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRun_EmptyInputs(t *testing.T) {
	query, background, dag, assoc := significantFixture(t)
	e := NewEngine()

	recs, err := e.Run(nil, background, dag, assoc)
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = e.Run(query, nil, dag, assoc)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestStudy_PooledCorrection(t *testing.T) {
	dag, err := ontology.NewDAG(ontology.Header{}, []*ontology.Term{
		{ID: "B:1", Namespace: "biological_process"},
		{ID: "C:1", Namespace: "cellular_component"},
	})
	require.NoError(t, err)

	background := genes("G", 1, 20)
	query := genes("G", 1, 5)
	byBP := map[string][]string{}
	byCC := map[string][]string{}
	for _, g := range query {
		byBP[g] = []string{"B:1"}
		byCC[g] = []string{"C:1"}
	}
	assoc := ontology.NewAssociations(map[string]map[string][]string{"BP": byBP, "CC": byCC})

	recs, err := NewEngine().Study(query, background, dag, assoc)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "BP", recs[0].Namespace)
	assert.Equal(t, "CC", recs[1].Namespace)
	// Two identical p-values pooled: BH leaves them unchanged (p*2/2).
	for _, r := range recs {
		assert.InDelta(t, r.PUncorrected, r.PFDR, 1e-15)
	}
}

func TestStudy_QueryOutsideBackground(t *testing.T) {
	dag := testDAG(t, "T")
	assoc := ontology.NewAssociations(map[string]map[string][]string{
		"BP": {"G1": {"T"}, "X": {"T"}},
	})

	recs, err := NewEngine().Study([]string{"G1", "X"}, []string{"G1", "G2", "G3"}, dag, assoc)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].StudyN, "absent genes still count toward the query size")
	assert.Equal(t, 1, recs[0].StudyCount)
	assert.Equal(t, []string{"G1"}, recs[0].StudyItems)
}

func termIDs(recs []Record) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.TermID
	}
	return ids
}
