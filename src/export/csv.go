// Package export writes distance matrices as semicolon separated text, and reads them back.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/will-rowe/skim/src/distance"
	"github.com/will-rowe/skim/src/misc"
)

// Separator is the field separator of exported matrices
const Separator = ';'

// FormatValue prints a distance with six decimals, never as -0.000000
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	if s == "-0.000000" {
		return "0.000000"
	}
	return s
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = Separator
	return cw
}

// checkName rejects names that csv.Writer would quote, as well as trailing spaces
func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, ";\"\r\n") || strings.TrimSpace(name) != name || name == `\.` {
		return fmt.Errorf("sample name %q can't be exported", name)
	}
	return nil
}

// WriteCSV writes a matrix as a header line of column names (after an empty corner cell)
// followed by one line per row
func WriteCSV(w io.Writer, m *distance.Matrix) error {
	cw := newWriter(w)
	rows, cols := m.Dims()
	record := make([]string, cols+1)
	for j, name := range m.Cols {
		if err := checkName(name); err != nil {
			return err
		}
		record[j+1] = name
	}
	if err := cw.Write(record); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		if err := checkName(m.Rows[i]); err != nil {
			return err
		}
		record[0] = m.Rows[i]
		for j := 0; j < cols; j++ {
			record[j+1] = FormatValue(m.At(i, j))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a matrix written by WriteCSV
func ReadCSV(r io.Reader, metric distance.Metric) (*distance.Matrix, error) {
	cr := csv.NewReader(r)
	cr.Comma = Separator
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &misc.FormatError{Reason: "empty matrix file"}
		}
		return nil, &misc.FormatError{Reason: "bad header", Err: err}
	}
	if len(header) < 2 || header[0] != "" {
		return nil, &misc.FormatError{Reason: "header must start with an empty cell and name at least one column"}
	}
	cols := append([]string(nil), header[1:]...)
	for _, name := range cols {
		if name == "" {
			return nil, &misc.FormatError{Reason: "empty column name in header"}
		}
	}
	var (
		rows   []string
		values []float64
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &misc.FormatError{Reason: fmt.Sprintf("bad row %d", len(rows)+1), Err: err}
		}
		rows = append(rows, record[0])
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, &misc.FormatError{Reason: fmt.Sprintf("bad value for %s x %s", record[0], cols[j]), Err: err}
			}
			values = append(values, v)
		}
	}
	if len(rows) == 0 {
		return nil, &misc.FormatError{Reason: "matrix has no rows"}
	}
	return &distance.Matrix{
		Metric: metric,
		Rows:   rows,
		Cols:   cols,
		Values: mat.NewDense(len(rows), len(cols), values),
	}, nil
}
