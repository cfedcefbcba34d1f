package stringdb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSTRING serves the three endpoints used by Enrich. failures makes the
// first n enrichment calls return 503.
type fakeSTRING struct {
	failures    int32
	enrichCalls atomic.Int32
	lastEnrich  atomic.Value
	srv         *httptest.Server
}

func newFakeSTRING(t *testing.T, failures int32) *fakeSTRING {
	t.Helper()
	f := &fakeSTRING{failures: failures}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/json/version", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"string_version": "12.0", "stable_address": f.srv.URL + "/v12"},
		})
	})
	mux.HandleFunc("/v12/api/json/get_string_ids", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "4896", r.PostForm.Get("species"))
		assert.Equal(t, "1", r.PostForm.Get("limit"))
		assert.Equal(t, "1", r.PostForm.Get("echo_query"))
		assert.Equal(t, DefaultCallerIdentity, r.PostForm.Get("caller_identity"))

		var out []map[string]string
		for _, id := range strings.Split(r.PostForm.Get("identifiers"), "\r") {
			if id == "SPUNKNOWN" {
				continue
			}
			out = append(out, map[string]string{"queryItem": id, "stringId": "4896." + id})
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/v12/api/json/enrichment", func(w http.ResponseWriter, r *http.Request) {
		n := f.enrichCalls.Add(1)
		if n <= f.failures {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		assert.NoError(t, r.ParseForm())
		f.lastEnrich.Store(r.PostForm)
		w.Write([]byte(`[
			{"category":"KEGG","term":"spo03010","description":"Ribosome","p_value":1e-5,"fdr":1e-3,
			 "number_of_genes":3,"number_of_genes_in_background":20,"inputGenes":["4896.A","4896.B","4896.C"],
			 "preferredNames":["a","b","c"],"ncbiTaxonId":4896},
			{"category":"Process","term":"GO:0006412","description":"translation","p_value":1e-6,"fdr":1e-4,
			 "number_of_genes":3,"number_of_genes_in_background":30,"inputGenes":["4896.A"],"preferredNames":["a"]}
		]`))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSTRING) client() *Client {
	return NewClient(Options{BaseURL: f.srv.URL + "/api", RetryDelay: time.Millisecond})
}

func TestEnrich(t *testing.T) {
	f := newFakeSTRING(t, 0)
	terms, err := f.client().Enrich(context.Background(),
		[]string{"SPAC1", "SPAC2"}, []string{"SPAC1", "SPAC2", "SPUNKNOWN", "SPAC3"})
	require.NoError(t, err)
	require.Len(t, terms, 2)

	assert.Equal(t, "KEGG", terms[0].Category)
	assert.Equal(t, "Ribosome", terms[0].Description)
	assert.Equal(t, 20, terms[0].NumberOfGenesInBackground)
	assert.Equal(t, []string{"a", "b", "c"}, terms[0].PreferredNames)

	form := f.lastEnrich.Load().(url.Values)
	assert.Equal(t, []string{"SPAC1\rSPAC2"}, form["identifiers"])
	assert.Equal(t, []string{"4896.SPAC1\r4896.SPAC2\r4896.SPAC3"}, form["background_string_identifiers"])
}

func TestEnrich_RetriesThenSucceeds(t *testing.T) {
	f := newFakeSTRING(t, 2)
	terms, err := f.client().Enrich(context.Background(), []string{"SPAC1"}, []string{"SPAC1"})
	require.NoError(t, err)
	assert.Len(t, terms, 2)
	assert.Equal(t, int32(3), f.enrichCalls.Load())
}

func TestEnrich_UpstreamError(t *testing.T) {
	f := newFakeSTRING(t, 100)
	_, err := f.client().Enrich(context.Background(), []string{"SPAC1"}, []string{"SPAC1"})
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, StepEnrichment, ue.Step)
	assert.Equal(t, DefaultRetries, ue.Attempts)
	assert.Contains(t, ue.Error(), "503")
	assert.Equal(t, int32(DefaultRetries), f.enrichCalls.Load())
}

func TestEnrich_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: addr, Retries: 2, RetryDelay: time.Millisecond})
	_, err := c.Enrich(context.Background(), []string{"SPAC1"}, []string{"SPAC1"})

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, StepVersion, ue.Step)
	assert.Equal(t, 2, ue.Attempts)
}

func TestEnrich_NoBackgroundMapped(t *testing.T) {
	f := newFakeSTRING(t, 0)
	_, err := f.client().Enrich(context.Background(), []string{"SPAC1"}, []string{"SPUNKNOWN"})

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, StepMapIDs, ue.Step)
}

func TestEnrich_EmptyQuery(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	terms, err := c.Enrich(context.Background(), nil, []string{"SPAC1"})
	require.NoError(t, err)
	assert.Nil(t, terms)
}

func TestEnrich_ContextCancelled(t *testing.T) {
	f := newFakeSTRING(t, 100)
	c := NewClient(Options{BaseURL: f.srv.URL + "/api", RetryDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Enrich(ctx, []string{"SPAC1"}, []string{"SPAC1"})

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, ue.Attempts)
}

func TestGroupByCategory(t *testing.T) {
	terms := []Term{
		{Category: "KEGG", Term: "k1"},
		{Category: "Custom", Term: "x1"},
		{Category: "Process", Term: "p1"},
		{Category: "KEGG", Term: "k2"},
		{Category: "Process", Term: "p2"},
		{Category: "Another", Term: "y1"},
	}
	groups := GroupByCategory(terms)
	require.Len(t, groups, 4)

	assert.Equal(t, "Process", groups[0].Category)
	assert.Equal(t, "Biological Process (Gene Ontology)", groups[0].Title)
	assert.Equal(t, "p1", groups[0].Terms[0].Term)
	assert.Equal(t, "p2", groups[0].Terms[1].Term)

	assert.Equal(t, "KEGG Pathways", groups[1].Title)
	assert.Len(t, groups[1].Terms, 2)

	assert.Equal(t, "Custom", groups[2].Title)
	assert.Equal(t, "Another", groups[3].Title)

	assert.Empty(t, GroupByCategory(nil))
}
