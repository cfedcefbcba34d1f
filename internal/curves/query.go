package curves

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Point is one depletion-curve point. PValue and Confidence are nil when
// the table has no p-value for the cell.
type Point struct {
	Gene        string   `json:"gene"`
	Timepoint   string   `json:"timepoint"`
	Generations float64  `json:"generations"`
	LFC         float64  `json:"lfc"`
	PValue      *float64 `json:"pvalue,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// ProfilePoint is the mean LFC of a gene set at one timepoint.
type ProfilePoint struct {
	Timepoint   string  `json:"timepoint"`
	Generations float64 `json:"generations"`
	MeanLFC     float64 `json:"mean_lfc"`
	Genes       int     `json:"genes"`
}

// Timepoints returns the stored timepoints in file order.
func (s *Store) Timepoints() ([]Timepoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT timepoint, generations FROM timepoints ORDER BY ord")
	if err != nil {
		return nil, fmt.Errorf("query timepoints: %w", err)
	}
	defer rows.Close()

	var tps []Timepoint
	for rows.Next() {
		var tp Timepoint
		if err := rows.Scan(&tp.Name, &tp.Generations); err != nil {
			return nil, fmt.Errorf("scan timepoint: %w", err)
		}
		tps = append(tps, tp)
	}
	return tps, rows.Err()
}

// Points returns the curve points of the given genes, ordered by the
// position of the gene in the query and then by generations. Unknown genes
// contribute nothing.
func (s *Store) Points(geneIDs []string) ([]Point, error) {
	if len(geneIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(geneIDs)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT g.gene, g.timepoint, t.generations, g.lfc, g.pvalue
		FROM gene_lfc g JOIN timepoints t ON g.timepoint = t.timepoint
		WHERE g.gene IN (`+in+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var pts []Point
	for rows.Next() {
		var p Point
		var pv sql.NullFloat64
		if err := rows.Scan(&p.Gene, &p.Timepoint, &p.Generations, &p.LFC, &pv); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		if pv.Valid {
			v, c := pv.Float64, Confidence(pv.Float64)
			p.PValue, p.Confidence = &v, &c
		}
		pts = append(pts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points: %w", err)
	}

	order := make(map[string]int, len(geneIDs))
	for i, g := range geneIDs {
		if _, ok := order[g]; !ok {
			order[g] = i
		}
	}
	sort.SliceStable(pts, func(i, j int) bool {
		oi, oj := order[pts[i].Gene], order[pts[j].Gene]
		if oi != oj {
			return oi < oj
		}
		return pts[i].Generations < pts[j].Generations
	})
	return pts, nil
}

// SetProfile returns the mean LFC per timepoint across the given genes,
// ordered by generations.
func (s *Store) SetProfile(geneIDs []string) ([]ProfilePoint, error) {
	if len(geneIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(geneIDs)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT t.timepoint, t.generations, avg(g.lfc), count(DISTINCT g.gene)
		FROM gene_lfc g JOIN timepoints t ON g.timepoint = t.timepoint
		WHERE g.gene IN (`+in+`)
		GROUP BY t.timepoint, t.generations, t.ord
		ORDER BY t.generations, t.ord`, args...)
	if err != nil {
		return nil, fmt.Errorf("query set profile: %w", err)
	}
	defer rows.Close()

	var prof []ProfilePoint
	for rows.Next() {
		var p ProfilePoint
		var n int64
		if err := rows.Scan(&p.Timepoint, &p.Generations, &p.MeanLFC, &n); err != nil {
			return nil, fmt.Errorf("scan set profile: %w", err)
		}
		p.MeanLFC = round3(p.MeanLFC)
		p.Genes = int(n)
		prof = append(prof, p)
	}
	return prof, rows.Err()
}

// MinDistanceToStop is the stop-codon distance at or below which an
// insertion is left out of the insertion curves.
const MinDistanceToStop = 4

// InsertionPoint is one point of a per-insertion depletion curve. Padj and
// Weight are nil when the table has no adjusted p-value for the cell.
type InsertionPoint struct {
	Site
	Gene            string   `json:"gene"`
	Timepoint       string   `json:"timepoint"`
	Generations     float64  `json:"generations"`
	LFC             float64  `json:"lfc"`
	Padj            *float64 `json:"padj,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	Type            string   `json:"type"`
	DistanceToStart *float64 `json:"distance_to_start_codon,omitempty"`
	DistanceToStop  float64  `json:"distance_to_stop_codon"`
	FractionToStart *float64 `json:"fraction_to_start_codon,omitempty"`
	FractionToStop  *float64 `json:"fraction_to_stop_codon,omitempty"`
	ResidueAffected string   `json:"residue_affected"`
	ResidueFrame    string   `json:"residue_frame"`
	Direction       string   `json:"insertion_direction"`
}

// InsertionCurves holds the insertion points of one gene together with
// the subset measured at the final timepoint.
type InsertionCurves struct {
	Gene          string           `json:"gene"`
	LastTimepoint string           `json:"last_timepoint"`
	Points        []InsertionPoint `json:"points"`
	Last          []InsertionPoint `json:"last"`
}

// InsertionPoints returns the per-insertion curve points of gene for
// insertions more than MinDistanceToStop from the stop codon, ordered by
// site and then by generations. The weight of a point is Confidence(padj).
func (s *Store) InsertionPoints(gene string) (InsertionCurves, error) {
	out := InsertionCurves{Gene: gene, Points: []InsertionPoint{}, Last: []InsertionPoint{}}

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.QueryRow(
		"SELECT timepoint FROM timepoints ORDER BY generations DESC, ord DESC LIMIT 1",
	).Scan(&out.LastTimepoint)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("query last timepoint: %w", err)
	}

	rows, err := s.db.Query(`SELECT i.chr, i.coordinate, i.strand, i.target, l.timepoint, t.generations,
			l.lfc, l.padj, i.type, i.distance_to_start, i.distance_to_stop,
			i.fraction_to_start, i.fraction_to_stop,
			i.residue_affected, i.residue_frame, i.insertion_direction
		FROM insertions i
		JOIN insertion_lfc l ON l.chr = i.chr AND l.coordinate = i.coordinate
			AND l.strand = i.strand AND l.target = i.target
		JOIN timepoints t ON l.timepoint = t.timepoint
		WHERE i.gene = ? AND i.distance_to_stop > ?
		ORDER BY i.chr, i.coordinate, i.strand, i.target, t.generations, t.ord`,
		gene, MinDistanceToStop)
	if err != nil {
		return out, fmt.Errorf("query insertion points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := InsertionPoint{Gene: gene}
		var padj, toStart, fracStart, fracStop sql.NullFloat64
		if err := rows.Scan(&p.Chr, &p.Coordinate, &p.Strand, &p.Target, &p.Timepoint, &p.Generations,
			&p.LFC, &padj, &p.Type, &toStart, &p.DistanceToStop,
			&fracStart, &fracStop,
			&p.ResidueAffected, &p.ResidueFrame, &p.Direction); err != nil {
			return out, fmt.Errorf("scan insertion point: %w", err)
		}
		if padj.Valid {
			v, w := padj.Float64, Confidence(padj.Float64)
			p.Padj, p.Weight = &v, &w
		}
		p.DistanceToStart = nullFloat(toStart)
		p.FractionToStart = nullFloat(fracStart)
		p.FractionToStop = nullFloat(fracStop)

		out.Points = append(out.Points, p)
		if p.Timepoint == out.LastTimepoint {
			out.Last = append(out.Last, p)
		}
	}
	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("iterate insertion points: %w", err)
	}
	return out, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func inClause(values []string) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "), args
}
