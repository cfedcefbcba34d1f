package curves

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dithap/dithap-explorer/internal/genes"
)

// PValueSuffix marks the p-value column of a timepoint in the LFC table.
const PValueSuffix = "_pvalue"

// Timepoint is a sampled timepoint with its mean generation count.
type Timepoint struct {
	Name        string  `json:"timepoint"`
	Generations float64 `json:"generations"`
}

// Measurement is the gene-level LFC at one timepoint. PValue is NaN when
// the table has no p-value for the cell.
type Measurement struct {
	Gene      string
	Timepoint string
	LFC       float64
	PValue    float64
}

// ReadTimepoints parses a timepoints CSV: the first column names the
// timepoint, the remaining columns hold replicate generation counts.
// Generations are the replicate mean rounded to 3 decimals.
func ReadTimepoints(r io.Reader) ([]Timepoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &genes.DataLoadError{Column: "timepoint"}
		}
		return nil, fmt.Errorf("read timepoints header: %w", err)
	}

	var tps []Timepoint
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read timepoints: %w", err)
		}
		line++

		name := strings.TrimSpace(rec[0])
		if name == "" {
			continue
		}
		var sum float64
		var n int
		for _, v := range rec[1:] {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			g, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("timepoints line %d: invalid generations %q: %w", line, v, err)
			}
			sum += g
			n++
		}
		if n == 0 {
			return nil, fmt.Errorf("timepoints line %d: no generation values for %s", line, name)
		}
		tps = append(tps, Timepoint{Name: name, Generations: round3(sum / float64(n))})
	}
	return tps, nil
}

// ReadGeneLFC parses a gene-level LFC CSV. The first column holds the
// systematic ID; every column named after a known timepoint holds an LFC,
// and "<timepoint>_pvalue" holds its p-value. Empty LFC cells are skipped.
func ReadGeneLFC(r io.Reader, tps []Timepoint) ([]Measurement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &genes.DataLoadError{Column: "gene"}
		}
		return nil, fmt.Errorf("read LFC header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}

	type column struct {
		tp      string
		lfc, pv int
	}
	var cols []column
	for _, tp := range tps {
		i, ok := idx[tp.Name]
		if !ok {
			continue
		}
		pv, ok := idx[tp.Name+PValueSuffix]
		if !ok {
			pv = -1
		}
		cols = append(cols, column{tp: tp.Name, lfc: i, pv: pv})
	}
	if len(cols) == 0 {
		missing := "timepoint"
		if len(tps) > 0 {
			missing = tps[0].Name
		}
		return nil, &genes.DataLoadError{Column: missing}
	}

	var out []Measurement
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read LFC table: %w", err)
		}
		line++

		gene := strings.TrimSpace(rec[0])
		if gene == "" {
			continue
		}
		for _, c := range cols {
			v := field(rec, c.lfc)
			if v == "" {
				continue
			}
			lfc, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("LFC line %d: invalid value %q: %w", line, v, err)
			}
			m := Measurement{Gene: gene, Timepoint: c.tp, LFC: round3(lfc), PValue: math.NaN()}
			if pv := field(rec, c.pv); pv != "" {
				p, err := strconv.ParseFloat(pv, 64)
				if err != nil {
					return nil, fmt.Errorf("LFC line %d: invalid p-value %q: %w", line, pv, err)
				}
				m.PValue = p
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// Confidence converts a p-value into -log10(p), with p clamped to
// [1e-10, 1] and values above 1-1e-10 treated as 1.
func Confidence(p float64) float64 {
	switch {
	case p <= 1e-10:
		p = 1e-10
	case p > 1-1e-10:
		p = 1
	}
	c := -math.Log10(p)
	if c == 0 {
		return 0 // avoid -0
	}
	return c
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
