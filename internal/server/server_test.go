package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dithap/dithap-explorer/internal/curves"
	"github.com/dithap/dithap-explorer/internal/dataset"
	"github.com/dithap/dithap-explorer/internal/stringdb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testdata(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func testDataset() *dataset.Dataset {
	return dataset.New(dataset.Sources{
		GeneInfo:    testdata("genes.tsv"),
		ClusterFile: testdata("clusters.csv"),
		Ontologies: []dataset.OntologySource{
			{Name: "GO", OBO: testdata("go.obo"), GAF: testdata("go.gaf")},
		},
	})
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	return New(testDataset(), opts)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthcheck(t *testing.T) {
	w := do(t, newTestServer(t, Options{}), http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGeneSets(t *testing.T) {
	w := do(t, newTestServer(t, Options{}), http.MethodGet, "/genesets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	sets := decode[[]geneSetInfo](t, w)
	require.Len(t, sets, 5)
	assert.Equal(t, geneSetInfo{Key: "All coding genes (20)", Label: "All coding genes", Size: 20}, sets[0])
	assert.Equal(t, "10 (2)", sets[4].Key)
}

func TestResolve(t *testing.T) {
	s := newTestServer(t, Options{})
	w := do(t, s, http.MethodPost, "/resolve", gin.H{"genes": "gn01, SPAC02\n nope \n\n"})
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[resolution](t, w)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []string{"SPAC01", "SPAC02"}, res.Resolved)
	assert.Equal(t, []string{"nope"}, res.Unresolved)
	assert.Contains(t, res.Summary, "There are 3 genes in the list.")

	w = do(t, s, http.MethodPost, "/resolve", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrichBySet(t *testing.T) {
	w := do(t, newTestServer(t, Options{}), http.MethodPost, "/enrich", gin.H{
		"query": gin.H{"set": "1 (5)"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[enrichResponse](t, w)
	assert.Equal(t, 5, resp.QueryN)
	assert.Equal(t, 20, resp.BackgroundN)
	require.Len(t, resp.Analyses, 1)

	ga := resp.Analyses[0]
	assert.Equal(t, "GO", ga.Name)
	require.Len(t, ga.Rows, 1)
	row := ga.Rows[0]
	assert.Equal(t, "GO:0006412", row.TermID)
	assert.Equal(t, "translation", row.Name)
	assert.Equal(t, "BP", row.Namespace)
	assert.Equal(t, "5/5", row.RatioInStudy)
	assert.Equal(t, "5/20", row.RatioInPop)
	assert.Equal(t, 1.0, row.CoverageFrac)
	assert.Equal(t, "gn01, gn02, gn03, gn04, gn05", row.StudyItems)
	assert.InDelta(t, 1.0/15504, row.PUncorrected, 1e-12)
}

func TestEnrichByTextNoSignificantTerms(t *testing.T) {
	w := do(t, newTestServer(t, Options{}), http.MethodPost, "/enrich", gin.H{
		"query": gin.H{"genes": "gn01\ngn06\nunknown"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[enrichResponse](t, w)
	require.NotNil(t, resp.Query)
	assert.Equal(t, []string{"unknown"}, resp.Query.Unresolved)
	require.Len(t, resp.Analyses, 1)
	assert.Empty(t, resp.Analyses[0].Rows)
	assert.Equal(t, "No significant terms found", resp.Analyses[0].Message)
}

func TestEnrichErrors(t *testing.T) {
	s := newTestServer(t, Options{})

	w := do(t, s, http.MethodPost, "/enrich", gin.H{"query": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/enrich", gin.H{"query": gin.H{"set": "no such set"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/enrich", gin.H{
		"query":      gin.H{"set": "1"},
		"background": gin.H{"genes": "nothing here"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	empty := New(dataset.New(dataset.Sources{}), Options{})
	w = do(t, empty, http.MethodPost, "/enrich", gin.H{"query": gin.H{"genes": "gn01"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGeneLookup(t *testing.T) {
	s := newTestServer(t, Options{})

	w := do(t, s, http.MethodGet, "/genes/old01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	g := decode[geneResponse](t, w)
	assert.Equal(t, "SPAC01", g.ID)
	assert.Equal(t, "gn01", g.Name)
	assert.True(t, g.Updated)
	assert.Equal(t, "https://www.pombase.org/gene/SPAC01", g.PomBase)
	assert.Nil(t, g.Essentiality)

	w = do(t, s, http.MethodGet, "/genes/SPAC20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SPAC20", decode[geneResponse](t, w).Name)

	w = do(t, s, http.MethodGet, "/genes/zzz", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCurves(t *testing.T) {
	store, err := curves.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	_, err = store.Load(testdata("gene_lfc.csv"), testdata("timepoints.csv"))
	require.NoError(t, err)

	s := newTestServer(t, Options{Curves: store})
	w := do(t, s, http.MethodGet, "/curves?genes=gn02,SPAC01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[curvesResponse](t, w)
	require.Len(t, resp.Points, 6)
	assert.Equal(t, "gn02", resp.Points[0].Name)
	assert.Equal(t, "SPAC02", resp.Points[0].Gene)
	assert.Equal(t, "gn01", resp.Points[3].Name)
	require.Len(t, resp.Profile, 3)
	assert.Equal(t, 3.2, resp.Profile[1].Generations)
	assert.InDelta(t, -0.75, resp.Profile[1].MeanLFC, 1e-9)

	w = do(t, s, http.MethodGet, "/curves?set=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[curvesResponse](t, w).Points, 15)
}

func copyTestdata(t *testing.T, dir, name string) string {
	t.Helper()
	raw, err := os.ReadFile(testdata(name))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func TestCurvesReloadChangedFiles(t *testing.T) {
	dir := t.TempDir()
	files := curves.Files{
		GeneLFC:    copyTestdata(t, dir, "gene_lfc.csv"),
		Timepoints: copyTestdata(t, dir, "timepoints.csv"),
	}
	store, err := curves.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	_, err = store.Sync(files)
	require.NoError(t, err)

	s := newTestServer(t, Options{Curves: store, CurveFiles: files})
	w := do(t, s, http.MethodGet, "/curves?genes=SPAC01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pts := decode[curvesResponse](t, w).Points
	require.Len(t, pts, 3)
	assert.Equal(t, -1.0, pts[2].LFC)

	raw, err := os.ReadFile(files.GeneLFC)
	require.NoError(t, err)
	updated := strings.Replace(string(raw), "SPAC01,0,-0.5,-1.0", "SPAC01,0,-0.5,-2.5", 1)
	require.NoError(t, os.WriteFile(files.GeneLFC, []byte(updated), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(files.GeneLFC, future, future))

	w = do(t, s, http.MethodGet, "/curves?genes=SPAC01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pts = decode[curvesResponse](t, w).Points
	require.Len(t, pts, 3)
	assert.Equal(t, -2.5, pts[2].LFC)
}

func TestCurvesInsertions(t *testing.T) {
	files := curves.Files{
		GeneLFC:              testdata("gene_lfc.csv"),
		Timepoints:           testdata("timepoints.csv"),
		InsertionLFC:         testdata("insertion_lfc.csv"),
		InsertionAnnotations: testdata("insertion_annotations.csv"),
	}
	store, err := curves.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := newTestServer(t, Options{Curves: store, CurveFiles: files})
	w := do(t, s, http.MethodGet, "/curves?genes=gn01,gn02&insertions=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[curvesResponse](t, w)
	require.Len(t, resp.Insertions, 2)
	spac01 := resp.Insertions[0]
	assert.Equal(t, "SPAC01", spac01.Gene)
	assert.Equal(t, "YES2", spac01.LastTimepoint)
	// Only the insertion 200 bp from the stop codon survives the cut-off.
	require.Len(t, spac01.Points, 2)
	assert.Equal(t, int64(100), spac01.Points[0].Coordinate)
	require.Len(t, spac01.Last, 1)
	assert.Equal(t, -1.6, spac01.Last[0].LFC)
	assert.Equal(t, "SPAC02", resp.Insertions[1].Gene)
	assert.Len(t, resp.Insertions[1].Points, 2)

	w = do(t, s, http.MethodGet, "/curves?genes=gn01&insertions=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurvesInsertionsNotConfigured(t *testing.T) {
	store, err := curves.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	_, err = store.Load(testdata("gene_lfc.csv"), testdata("timepoints.csv"))
	require.NoError(t, err)

	s := newTestServer(t, Options{Curves: store})
	w := do(t, s, http.MethodGet, "/curves?genes=gn01&insertions=1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCurvesNotConfigured(t *testing.T) {
	w := do(t, newTestServer(t, Options{}), http.MethodGet, "/curves?set=1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStringDegradesOnUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer upstream.Close()

	client := stringdb.NewClient(stringdb.Options{BaseURL: upstream.URL, Retries: 1, RetryDelay: time.Millisecond})
	s := newTestServer(t, Options{STRING: client})

	w := do(t, s, http.MethodPost, "/string", gin.H{"query": gin.H{"set": "1"}})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[stringResponse](t, w)
	assert.Empty(t, resp.Groups)
	assert.Contains(t, resp.Warning, "STRING version failed")
}

func TestStringGroups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"string_version":"12.0","stable_address":""}]`))
	})
	mux.HandleFunc("/json/get_string_ids", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"queryItem":"SPAC01","stringId":"4896.SPAC01"}]`))
	})
	mux.HandleFunc("/json/enrichment", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"category":"KEGG","term":"k"},{"category":"Process","term":"p"}]`))
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	client := stringdb.NewClient(stringdb.Options{BaseURL: upstream.URL, RetryDelay: time.Millisecond})
	s := newTestServer(t, Options{STRING: client})

	w := do(t, s, http.MethodPost, "/string", gin.H{"query": gin.H{"genes": "gn01"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[stringResponse](t, w)
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, "Process", resp.Groups[0].Category)
	assert.Equal(t, "KEGG Pathways", resp.Groups[1].Title)
	assert.Empty(t, resp.Warning)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
