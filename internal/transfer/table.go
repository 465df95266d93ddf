package transfer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCSV parses a table whose header is "k,<eta1>,<eta2>,..." and whose
// rows are "k,T(k,eta1),T(k,eta2),...".
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("transfer: read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: no data rows", ErrInvalidTable)
	}

	header := records[0]
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "k") {
		return nil, fmt.Errorf("%w: header must start with k", ErrInvalidTable)
	}

	t := &Table{Etas: make([]float64, len(header)-1)}
	for i, h := range header[1:] {
		eta, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: eta column %d: %v", ErrInvalidTable, i+1, err)
		}
		t.Etas[i] = eta
	}

	t.Values = make([][]float64, len(t.Etas))
	for i := range t.Values {
		t.Values[i] = make([]float64, 0, len(records)-1)
	}
	for n, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d fields, want %d", ErrInvalidTable, n+2, len(rec), len(header))
		}
		k, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d k: %v", ErrInvalidTable, n+2, err)
		}
		t.Ks = append(t.Ks, k)
		for i, field := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrInvalidTable, n+2, i+2, err)
			}
			t.Values[i] = append(t.Values[i], v)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(t.Etas)+1)
	header = append(header, "k")
	for _, eta := range t.Etas {
		header = append(header, strconv.FormatFloat(eta, 'g', -1, 64))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for j, k := range t.Ks {
		row := make([]string, 0, len(t.Etas)+1)
		row = append(row, strconv.FormatFloat(k, 'g', -1, 64))
		for i := range t.Etas {
			row = append(row, strconv.FormatFloat(t.Values[i][j], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// TableFile serves transfer functions from a CSV file written offline by CAMB.
type TableFile struct {
	Path string
}

func (f *TableFile) Transfer(ctx context.Context, ks, etas []float64) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("transfer: open table: %w", err)
	}
	defer file.Close()

	t, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	sel, err := t.Select(etas)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return sel.Resample(ks)
}
