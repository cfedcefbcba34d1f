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

// Insertion annotation columns.
const (
	ColInsGene            = "Systematic ID"
	ColInsType            = "Type"
	ColInsDistanceToStart = "Distance_to_start_codon"
	ColInsDistanceToStop  = "Distance_to_stop_codon"
	ColInsFractionToStart = "Fraction_to_start_codon"
	ColInsFractionToStop  = "Fraction_to_stop_codon"
	ColInsResidueAffected = "Residue_affected"
	ColInsResidueFrame    = "Residue_frame"
	ColInsDirection       = "Insertion_direction"
)

// Statistic names in the second header row of the insertion LFC table.
const (
	StatLFC  = "log2FoldChange"
	StatPadj = "padj"
)

// siteColumns is the number of leading columns identifying an insertion:
// chromosome, coordinate, strand and target.
const siteColumns = 4

// Site identifies an insertion.
type Site struct {
	Chr        string `json:"chr"`
	Coordinate int64  `json:"coordinate"`
	Strand     string `json:"strand"`
	Target     string `json:"target"`
}

// Insertion is the annotation of one insertion site. Numeric fields are
// NaN when the cell is empty.
type Insertion struct {
	Site
	Gene            string
	Type            string
	DistanceToStart float64
	DistanceToStop  float64
	FractionToStart float64
	FractionToStop  float64
	ResidueAffected string
	ResidueFrame    string
	Direction       string
}

// InsertionMeasurement is the LFC of one insertion at one timepoint. Padj
// is NaN when the table has no adjusted p-value for the cell.
type InsertionMeasurement struct {
	Site
	Timepoint string
	LFC       float64
	Padj      float64
}

// ReadInsertionAnnotations parses an insertion annotation CSV. The first
// four columns identify the site; the remaining columns are looked up by
// name. Rows without a systematic ID are intergenic and skipped.
func ReadInsertionAnnotations(r io.Reader) ([]Insertion, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &genes.DataLoadError{Column: ColInsGene}
		}
		return nil, fmt.Errorf("read insertion annotations header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	for _, col := range []string{ColInsGene, ColInsDistanceToStop} {
		if _, ok := idx[col]; !ok {
			return nil, &genes.DataLoadError{Column: col}
		}
	}
	col := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok {
			return ""
		}
		return field(rec, i)
	}

	var out []Insertion
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read insertion annotations: %w", err)
		}
		line++

		gene := col(rec, ColInsGene)
		if gene == "" {
			continue
		}
		site, err := parseSite(rec)
		if err != nil {
			return nil, fmt.Errorf("insertion annotations line %d: %w", line, err)
		}
		in := Insertion{
			Site:            site,
			Gene:            gene,
			Type:            col(rec, ColInsType),
			ResidueAffected: col(rec, ColInsResidueAffected),
			ResidueFrame:    col(rec, ColInsResidueFrame),
			Direction:       col(rec, ColInsDirection),
		}
		for _, f := range []struct {
			name string
			dst  *float64
		}{
			{ColInsDistanceToStart, &in.DistanceToStart},
			{ColInsDistanceToStop, &in.DistanceToStop},
			{ColInsFractionToStart, &in.FractionToStart},
			{ColInsFractionToStop, &in.FractionToStop},
		} {
			v, err := optFloat(col(rec, f.name))
			if err != nil {
				return nil, fmt.Errorf("insertion annotations line %d: %s: %w", line, f.name, err)
			}
			*f.dst = v
		}
		out = append(out, in)
	}
	return out, nil
}

// ReadInsertionLFC parses an insertion-level LFC CSV with a two-row header:
// the first row names the timepoint of each column and the second names
// the statistic (log2FoldChange or padj). Rows carrying no values after the
// site columns, such as an index-name row, are skipped.
func ReadInsertionLFC(r io.Reader) ([]InsertionMeasurement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	tpRow, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &genes.DataLoadError{Column: StatLFC}
		}
		return nil, fmt.Errorf("read insertion LFC header: %w", err)
	}
	statRow, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &genes.DataLoadError{Column: StatLFC}
		}
		return nil, fmt.Errorf("read insertion LFC header: %w", err)
	}

	type column struct {
		tp        string
		lfc, padj int
	}
	var cols []*column
	byTP := make(map[string]*column)
	tp := ""
	for i := siteColumns; i < len(statRow); i++ {
		if name := field(tpRow, i); name != "" {
			tp = name
		}
		if tp == "" {
			continue
		}
		c, ok := byTP[tp]
		if !ok {
			c = &column{tp: tp, lfc: -1, padj: -1}
			byTP[tp] = c
			cols = append(cols, c)
		}
		switch field(statRow, i) {
		case StatLFC:
			c.lfc = i
		case StatPadj:
			c.padj = i
		}
	}
	n := 0
	for _, c := range cols {
		if c.lfc >= 0 {
			cols[n] = c
			n++
		}
	}
	cols = cols[:n]
	if len(cols) == 0 {
		return nil, &genes.DataLoadError{Column: StatLFC}
	}

	var out []InsertionMeasurement
	line := 2
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read insertion LFC table: %w", err)
		}
		line++

		if blankValues(rec) {
			continue
		}
		site, err := parseSite(rec)
		if err != nil {
			return nil, fmt.Errorf("insertion LFC line %d: %w", line, err)
		}
		for _, c := range cols {
			v := field(rec, c.lfc)
			if v == "" {
				continue
			}
			lfc, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("insertion LFC line %d: invalid value %q: %w", line, v, err)
			}
			padj, err := optFloat(field(rec, c.padj))
			if err != nil {
				return nil, fmt.Errorf("insertion LFC line %d: invalid padj: %w", line, err)
			}
			out = append(out, InsertionMeasurement{Site: site, Timepoint: c.tp, LFC: lfc, Padj: padj})
		}
	}
	return out, nil
}

func parseSite(rec []string) (Site, error) {
	if len(rec) < siteColumns {
		return Site{}, fmt.Errorf("expected %d site columns, got %d", siteColumns, len(rec))
	}
	coord, err := strconv.ParseInt(field(rec, 1), 10, 64)
	if err != nil {
		return Site{}, fmt.Errorf("invalid coordinate %q: %w", field(rec, 1), err)
	}
	return Site{
		Chr:        field(rec, 0),
		Coordinate: coord,
		Strand:     field(rec, 2),
		Target:     field(rec, 3),
	}, nil
}

func blankValues(rec []string) bool {
	for i := siteColumns; i < len(rec); i++ {
		if field(rec, i) != "" {
			return false
		}
	}
	return true
}

// optFloat parses v, returning NaN for an empty cell.
func optFloat(v string) (float64, error) {
	if v == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(v, 64)
}
