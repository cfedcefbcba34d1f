package curves

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/dithap/dithap-explorer/internal/genes"
	"github.com/dithap/dithap-explorer/internal/memo"
)

// Source roles recorded in the sources table.
const (
	roleLFC                  = "gene_lfc"
	roleTimepoints           = "timepoints"
	roleInsertionLFC         = "insertion_lfc"
	roleInsertionAnnotations = "insertion_annotations"
)

// Files names the input tables of the store. The insertion tables are
// optional and are loaded only when both are set.
type Files struct {
	GeneLFC              string
	Timepoints           string
	InsertionLFC         string
	InsertionAnnotations string
}

// HasInsertions reports whether both insertion tables are configured.
func (f Files) HasInsertions() bool {
	return f.InsertionLFC != "" && f.InsertionAnnotations != ""
}

// Sync brings the store up to date with f. Tables whose source
// fingerprints are unchanged are left alone. Sync reports whether anything
// was reloaded.
func (s *Store) Sync(f Files) (bool, error) {
	loaded, err := s.Load(f.GeneLFC, f.Timepoints)
	if err != nil {
		return false, err
	}
	if !f.HasInsertions() {
		return loaded, nil
	}
	ins, err := s.LoadInsertions(f.InsertionLFC, f.InsertionAnnotations)
	if err != nil {
		return false, err
	}
	return loaded || ins, nil
}

// Load reads the LFC and timepoints files into the store. When the stored
// source fingerprints match the files on disk the load is skipped and
// Load reports false.
func (s *Store) Load(lfcPath, timepointsPath string) (bool, error) {
	lfcFP, err := memo.StatFile(lfcPath)
	if err != nil {
		return false, fmt.Errorf("stat LFC file: %w", err)
	}
	tpFP, err := memo.StatFile(timepointsPath)
	if err != nil {
		return false, fmt.Errorf("stat timepoints file: %w", err)
	}
	fps := map[string]memo.Fingerprint{roleLFC: lfcFP, roleTimepoints: tpFP}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.valid(fps) {
		s.logger.Debug("depletion curves up to date", zap.String("lfc", lfcPath))
		return false, nil
	}

	tps, err := readTimepointsFile(timepointsPath)
	if err != nil {
		return false, err
	}
	ms, err := readGeneLFCFile(lfcPath, tps)
	if err != nil {
		return false, err
	}

	if err := s.replace(tps, ms); err != nil {
		return false, err
	}
	if err := s.writeSources(fps); err != nil {
		return false, err
	}

	s.logger.Info("loaded depletion curves",
		zap.Int("timepoints", len(tps)),
		zap.Int("measurements", len(ms)))
	return true, nil
}

// LoadInsertions reads the insertion LFC and insertion annotation files
// into the store, skipping the load when both fingerprints are unchanged.
func (s *Store) LoadInsertions(lfcPath, annotationsPath string) (bool, error) {
	lfcFP, err := memo.StatFile(lfcPath)
	if err != nil {
		return false, fmt.Errorf("stat insertion LFC file: %w", err)
	}
	annFP, err := memo.StatFile(annotationsPath)
	if err != nil {
		return false, fmt.Errorf("stat insertion annotations file: %w", err)
	}
	fps := map[string]memo.Fingerprint{roleInsertionLFC: lfcFP, roleInsertionAnnotations: annFP}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.valid(fps) {
		s.logger.Debug("insertion curves up to date", zap.String("lfc", lfcPath))
		return false, nil
	}

	ins, err := readInsertionAnnotationsFile(annotationsPath)
	if err != nil {
		return false, err
	}
	ms, err := readInsertionLFCFile(lfcPath)
	if err != nil {
		return false, err
	}

	if err := s.replaceInsertions(ins, ms); err != nil {
		return false, err
	}
	if err := s.writeSources(fps); err != nil {
		return false, err
	}

	s.logger.Info("loaded insertion curves",
		zap.Int("insertions", len(ins)),
		zap.Int("measurements", len(ms)))
	return true, nil
}

// replace clears the gene-level tables and bulk-inserts timepoints and
// measurements using the Appender API.
func (s *Store) replace(tps []Timepoint, ms []Measurement) error {
	if err := s.clear([]string{"gene_lfc", "timepoints"}, roleLFC, roleTimepoints); err != nil {
		return err
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	tpApp, err := newAppender(conn.Raw, "timepoints")
	if err != nil {
		return err
	}
	for i, tp := range tps {
		if err := tpApp.AppendRow(tp.Name, int64(i), tp.Generations); err != nil {
			tpApp.Close()
			return fmt.Errorf("append timepoint: %w", err)
		}
	}
	if err := tpApp.Close(); err != nil {
		return fmt.Errorf("flush timepoints: %w", err)
	}

	// Duplicate (gene, timepoint) rows keep the first occurrence.
	type key struct{ gene, tp string }
	seen := make(map[key]bool, len(ms))

	lfcApp, err := newAppender(conn.Raw, "gene_lfc")
	if err != nil {
		return err
	}
	for _, m := range ms {
		k := key{m.Gene, m.Timepoint}
		if seen[k] {
			continue
		}
		seen[k] = true

		if err := lfcApp.AppendRow(m.Gene, m.Timepoint, m.LFC, nullable(m.PValue)); err != nil {
			lfcApp.Close()
			return fmt.Errorf("append measurement: %w", err)
		}
	}
	if err := lfcApp.Close(); err != nil {
		return fmt.Errorf("flush measurements: %w", err)
	}
	return nil
}

// replaceInsertions clears the insertion tables and bulk-inserts the
// annotations and measurements. Duplicate keys keep the first occurrence.
func (s *Store) replaceInsertions(ins []Insertion, ms []InsertionMeasurement) error {
	if err := s.clear([]string{"insertion_lfc", "insertions"}, roleInsertionLFC, roleInsertionAnnotations); err != nil {
		return err
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	annApp, err := newAppender(conn.Raw, "insertions")
	if err != nil {
		return err
	}
	seenSite := make(map[Site]bool, len(ins))
	for _, in := range ins {
		if seenSite[in.Site] {
			continue
		}
		seenSite[in.Site] = true

		if err := annApp.AppendRow(
			in.Chr, in.Coordinate, in.Strand, in.Target,
			in.Gene, in.Type,
			nullable(in.DistanceToStart), nullable(in.DistanceToStop),
			nullable(in.FractionToStart), nullable(in.FractionToStop),
			in.ResidueAffected, in.ResidueFrame, in.Direction,
		); err != nil {
			annApp.Close()
			return fmt.Errorf("append insertion: %w", err)
		}
	}
	if err := annApp.Close(); err != nil {
		return fmt.Errorf("flush insertions: %w", err)
	}

	type key struct {
		site Site
		tp   string
	}
	seen := make(map[key]bool, len(ms))

	lfcApp, err := newAppender(conn.Raw, "insertion_lfc")
	if err != nil {
		return err
	}
	for _, m := range ms {
		k := key{m.Site, m.Timepoint}
		if seen[k] {
			continue
		}
		seen[k] = true

		if err := lfcApp.AppendRow(m.Chr, m.Coordinate, m.Strand, m.Target, m.Timepoint, m.LFC, nullable(m.Padj)); err != nil {
			lfcApp.Close()
			return fmt.Errorf("append insertion measurement: %w", err)
		}
	}
	if err := lfcApp.Close(); err != nil {
		return fmt.Errorf("flush insertion measurements: %w", err)
	}
	return nil
}

// clear empties tables and forgets the fingerprints of roles.
func (s *Store) clear(tables []string, roles ...string) error {
	for _, role := range roles {
		if _, err := s.db.Exec("DELETE FROM sources WHERE role = ?", role); err != nil {
			return fmt.Errorf("clear source %s: %w", role, err)
		}
	}
	for _, table := range tables {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func newAppender(raw func(func(any) error) error, table string) (*goduckdb.Appender, error) {
	var appender *goduckdb.Appender
	err := raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create %s appender: %w", table, err)
	}
	return appender, nil
}

// nullable maps NaN to a NULL column value.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// valid checks whether the stored fingerprints of the given roles match.
func (s *Store) valid(want map[string]memo.Fingerprint) bool {
	rows, err := s.db.Query("SELECT role, path, size, mod_time, hash FROM sources")
	if err != nil {
		return false
	}
	defer rows.Close()

	got := make(map[string]sourceRow)
	for rows.Next() {
		var role string
		var r sourceRow
		if err := rows.Scan(&role, &r.path, &r.size, &r.modTime, &r.hash); err != nil {
			return false
		}
		got[role] = r
	}
	if rows.Err() != nil {
		return false
	}
	for role, fp := range want {
		r, ok := got[role]
		if !ok || r != toSourceRow(fp) {
			return false
		}
	}
	return true
}

type sourceRow struct {
	path    string
	size    int64
	modTime string
	hash    string
}

func toSourceRow(fp memo.Fingerprint) sourceRow {
	return sourceRow{
		path:    fp.Path,
		size:    fp.Size,
		modTime: fp.ModTime.UTC().Format(time.RFC3339Nano),
		hash:    strconv.FormatUint(fp.Hash, 16),
	}
}

func (s *Store) writeSources(fps map[string]memo.Fingerprint) error {
	for role, fp := range fps {
		r := toSourceRow(fp)
		if _, err := s.db.Exec(
			"INSERT OR REPLACE INTO sources VALUES (?, ?, ?, ?, ?)",
			role, r.path, r.size, r.modTime, r.hash,
		); err != nil {
			return fmt.Errorf("record source %s: %w", role, err)
		}
	}
	return nil
}

func readTimepointsFile(path string) ([]Timepoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timepoints file: %w", err)
	}
	defer f.Close()

	tps, err := ReadTimepoints(f)
	return tps, withFile(err, path)
}

func readGeneLFCFile(path string, tps []Timepoint) ([]Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open LFC file: %w", err)
	}
	defer f.Close()

	ms, err := ReadGeneLFC(f, tps)
	return ms, withFile(err, path)
}

func readInsertionAnnotationsFile(path string) ([]Insertion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open insertion annotations file: %w", err)
	}
	defer f.Close()

	ins, err := ReadInsertionAnnotations(f)
	return ins, withFile(err, path)
}

func readInsertionLFCFile(path string) ([]InsertionMeasurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open insertion LFC file: %w", err)
	}
	defer f.Close()

	ms, err := ReadInsertionLFC(f)
	return ms, withFile(err, path)
}

func withFile(err error, path string) error {
	var dle *genes.DataLoadError
	if errors.As(err, &dle) {
		dle.File = path
	}
	return err
}
