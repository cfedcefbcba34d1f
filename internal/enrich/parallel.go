package enrich

import (
	"runtime"
	"sync"

	"github.com/dithap/dithap-explorer/internal/ontology"
)

// Analysis names an ontology store to test, e.g. "GO" or "FYPO".
type Analysis struct {
	Name  string
	Store *ontology.Store
}

// AnalysisResult holds the significant records of one analysis.
type AnalysisResult struct {
	Seq     int
	Name    string
	Records []Record
	Err     error
}

// RunAll runs the same query and background against several ontologies
// using a pool of workers and returns the results in analysis order.
// If workers is 0, runtime.NumCPU() is used. The pool never exceeds the
// number of analyses.
func (e *Engine) RunAll(query, background []string, analyses []Analysis, workers int) []AnalysisResult {
	workers = poolSize(workers, len(analyses))

	items := make(chan int, len(analyses))
	for i := range analyses {
		items <- i
	}
	close(items)

	results := make(chan AnalysisResult, len(analyses))

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range items {
				a := analyses[i]
				recs, err := e.RunStore(query, background, a.Store)
				results <- AnalysisResult{Seq: i, Name: a.Name, Records: recs, Err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]AnalysisResult, 0, len(analyses))
	OrderedCollect(results, func(r AnalysisResult) {
		out = append(out, r)
	})
	return out
}

func poolSize(workers, n int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return min(workers, n)
}

// OrderedCollect hands analysis results to fn in configuration order
// (by Seq), holding back any analysis that finished ahead of an earlier
// one. It returns once results is closed.
func OrderedCollect(results <-chan AnalysisResult, fn func(AnalysisResult)) {
	pending := make(map[int]AnalysisResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			fn(rr)
		}
	}
}
