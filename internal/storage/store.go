package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/cosmofield/internal/evolve"
	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/spectrum"
	"github.com/san-kum/cosmofield/internal/transfer"
)

const (
	metadataFile  = "metadata.json"
	spectrumFile  = "spectrum.csv"
	snapshotsFile = "snapshots.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Seed      int64            `json:"seed"`
	Grid      field.Grid       `json:"grid"`
	Cosmology spectrum.Params  `json:"cosmology"`
	Transfer  transfer.Options `json:"transfer"`
	Etas      []float64        `json:"etas"`
	Steps     int              `json:"steps"`
	Fit       *spectrum.Fit    `json:"fit,omitempty"`
	Encoder   string           `json:"encoder,omitempty"`
	Video     string           `json:"video,omitempty"`
	Elapsed   float64          `json:"elapsed_seconds"`
}

// NewRunID returns field_<unix>_<8 hex chars>.
func NewRunID(now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("field_%d_%x", now.Unix(), id[:4])
}

// Save writes a run directory. Missing ids and timestamps are filled in.
// spec and snaps may be nil.
func (s *Store) Save(meta *RunMetadata, spec *spectrum.Spectrum, snaps []evolve.Snapshot) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Timestamp)
	}
	if meta.Steps == 0 {
		meta.Steps = len(snaps)
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if spec != nil {
		if err := writeCSV(filepath.Join(runDir, spectrumFile), spectrumRows(spec)); err != nil {
			return "", err
		}
	}
	if len(snaps) > 0 {
		if err := writeCSV(filepath.Join(runDir, snapshotsFile), snapshotRows(snaps)); err != nil {
			return "", err
		}
	}
	return meta.ID, nil
}

// List returns stored runs, newest first. Unreadable runs are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSpectrum(runID string) (*spectrum.Spectrum, error) {
	records, err := s.readCSV(runID, spectrumFile)
	if err != nil {
		return nil, err
	}

	spec := &spectrum.Spectrum{}
	for _, rec := range records {
		vals, err := parseRow(rec, 5)
		if err != nil {
			return nil, fmt.Errorf("storage: %s: %w", spectrumFile, err)
		}
		spec.K = append(spec.K, vals[0])
		spec.Power = append(spec.Power, vals[2])
		spec.Errors = append(spec.Errors, vals[3])
		spec.Counts = append(spec.Counts, int(vals[4]))
	}
	return spec, nil
}

// LoadSnapshots returns the per-step statistics of a run; fields are not stored.
func (s *Store) LoadSnapshots(runID string) ([]evolve.Snapshot, error) {
	records, err := s.readCSV(runID, snapshotsFile)
	if err != nil {
		return nil, err
	}

	snaps := make([]evolve.Snapshot, 0, len(records))
	for _, rec := range records {
		vals, err := parseRow(rec, 6)
		if err != nil {
			return nil, fmt.Errorf("storage: %s: %w", snapshotsFile, err)
		}
		snaps = append(snaps, evolve.Snapshot{
			Index: int(vals[0]),
			Eta:   vals[1],
			Stats: field.Stats{Min: vals[2], Max: vals[3], Mean: vals[4], RMS: vals[5]},
		})
	}
	return snaps, nil
}

type snapshotJSON struct {
	Index int         `json:"index"`
	Eta   float64     `json:"eta"`
	Stats field.Stats `json:"stats"`
}

type exportData struct {
	Metadata  *RunMetadata       `json:"metadata"`
	Spectrum  *spectrum.Spectrum `json:"spectrum,omitempty"`
	Snapshots []snapshotJSON     `json:"snapshots"`
}

// ExportJSON writes a run's metadata, spectrum and snapshot statistics as one
// JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	data := exportData{Metadata: meta, Snapshots: []snapshotJSON{}}

	if spec, err := s.LoadSpectrum(runID); err == nil {
		data.Spectrum = spec
	} else if !os.IsNotExist(err) {
		return err
	}

	snaps, err := s.LoadSnapshots(runID)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, sn := range snaps {
		data.Snapshots = append(data.Snapshots, snapshotJSON{Index: sn.Index, Eta: sn.Eta, Stats: sn.Stats})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (s *Store) readCSV(runID, name string) ([][]string, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}

func spectrumRows(spec *spectrum.Spectrum) [][]string {
	rows := [][]string{{"k", "ell", "power", "error", "count"}}
	ell := spec.Multipoles()
	for i := range spec.K {
		rows = append(rows, []string{
			formatFloat(spec.K[i]),
			formatFloat(ell[i]),
			formatFloat(spec.Power[i]),
			formatFloat(spec.Errors[i]),
			strconv.Itoa(spec.Counts[i]),
		})
	}
	return rows
}

func snapshotRows(snaps []evolve.Snapshot) [][]string {
	rows := [][]string{{"index", "eta", "min", "max", "mean", "rms"}}
	for _, sn := range snaps {
		rows = append(rows, []string{
			strconv.Itoa(sn.Index),
			formatFloat(sn.Eta),
			formatFloat(sn.Stats.Min),
			formatFloat(sn.Stats.Max),
			formatFloat(sn.Stats.Mean),
			formatFloat(sn.Stats.RMS),
		})
	}
	return rows
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseRow(rec []string, want int) ([]float64, error) {
	if len(rec) != want {
		return nil, fmt.Errorf("row has %d fields, want %d", len(rec), want)
	}
	vals := make([]float64, want)
	for i, s := range rec {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
