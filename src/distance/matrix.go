package distance

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/vmihailenco/msgpack.v2"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
)

// Matrix holds one metric's distances, with rows and columns labelled by sample name
type Matrix struct {
	Metric Metric
	Rows   []string
	Cols   []string
	Values *mat.Dense
}

// NewMatrix returns a zeroed matrix
func NewMatrix(metric Metric, rows, cols []string) (*Matrix, error) {
	if len(rows) == 0 || len(cols) == 0 {
		return nil, fmt.Errorf("can't build an empty %s matrix", metric.ID())
	}
	return &Matrix{
		Metric: metric,
		Rows:   append([]string(nil), rows...),
		Cols:   append([]string(nil), cols...),
		Values: mat.NewDense(len(rows), len(cols), nil),
	}, nil
}

// At returns a cell
func (m *Matrix) At(i, j int) float64 {
	return m.Values.At(i, j)
}

// Dims returns the number of rows and columns
func (m *Matrix) Dims() (int, int) {
	return m.Values.Dims()
}

// Row copies out one row of values
func (m *Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.Values)
}

// Family is the set of matrices produced by one distance run
type Family struct {
	Config   minhash.Config
	Rows     []string
	Cols     []string
	Cross    bool
	Matrices []*Matrix
}

// Get returns the matrix of a metric
func (f *Family) Get(id string) (*Matrix, bool) {
	for _, m := range f.Matrices {
		if m.Metric.ID() == id {
			return m, true
		}
	}
	return nil, false
}

// Metrics returns the metrics of the family, in matrix order
func (f *Family) Metrics() []Metric {
	metrics := make([]Metric, len(f.Matrices))
	for i, m := range f.Matrices {
		metrics[i] = m.Metric
	}
	return metrics
}

// sort puts the matrices into catalogue order
func (f *Family) sort() {
	order := make(map[string]int, len(Metrics))
	for i, m := range Metrics {
		order[m.ID()] = i
	}
	sort.SliceStable(f.Matrices, func(i, j int) bool {
		return order[f.Matrices[i].Metric.ID()] < order[f.Matrices[j].Metric.ID()]
	})
}

// NewFamily groups matrices that share their labels
func NewFamily(config minhash.Config, cross bool, matrices ...*Matrix) (*Family, error) {
	if len(matrices) == 0 {
		return nil, errors.New("no matrices for family")
	}
	f := &Family{Config: config, Rows: matrices[0].Rows, Cols: matrices[0].Cols, Cross: cross}
	seen := make(map[string]bool, len(matrices))
	for _, m := range matrices {
		if seen[m.Metric.ID()] {
			return nil, fmt.Errorf("duplicate %s matrix in family", m.Metric.ID())
		}
		seen[m.Metric.ID()] = true
		if !equalNames(m.Rows, f.Rows) || !equalNames(m.Cols, f.Cols) {
			return nil, fmt.Errorf("%s matrix has different samples to the rest of the family", m.Metric.ID())
		}
		if !cross && !equalNames(m.Rows, m.Cols) {
			return nil, fmt.Errorf("%s matrix is not square", m.Metric.ID())
		}
		f.Matrices = append(f.Matrices, m)
	}
	f.sort()
	return f, nil
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// raw matrix file layout: magic, format version, msgpack payload
var matrixMagic = []byte("SKMX")

const matrixFormatVersion byte = 1

// RawExt is the extension of raw matrix files
const RawExt = ".bin"

type matrixRecord struct {
	Metric string         `msgpack:"metric"`
	Rows   []string       `msgpack:"rows"`
	Cols   []string       `msgpack:"cols"`
	Cross  bool           `msgpack:"cross"`
	Values []float64      `msgpack:"values"`
	Config minhash.Config `msgpack:"config"`
}

// WriteMatrix serialises one matrix of a family
func (f *Family) WriteMatrix(w io.Writer, m *Matrix) error {
	rows, cols := m.Dims()
	rec := matrixRecord{
		Metric: m.Metric.ID(),
		Rows:   m.Rows,
		Cols:   m.Cols,
		Cross:  f.Cross,
		Values: make([]float64, 0, rows*cols),
		Config: f.Config,
	}
	for i := 0; i < rows; i++ {
		rec.Values = append(rec.Values, m.Row(i)...)
	}
	header := append(append([]byte(nil), matrixMagic...), matrixFormatVersion)
	if _, err := w.Write(header); err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(&rec)
}

// readMatrix deserialises one raw matrix, along with the family details it carries
func readMatrix(r io.Reader) (*Matrix, minhash.Config, bool, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(matrixMagic)+1)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, minhash.Config{}, false, &misc.FormatError{Reason: "truncated header", Err: err}
	}
	if !bytes.Equal(header[:len(matrixMagic)], matrixMagic) {
		return nil, minhash.Config{}, false, &misc.FormatError{Reason: "not a raw matrix (bad magic)"}
	}
	if v := header[len(matrixMagic)]; v != matrixFormatVersion {
		return nil, minhash.Config{}, false, &misc.FormatError{Reason: fmt.Sprintf("unsupported matrix format version %d", v)}
	}
	var rec matrixRecord
	if err := msgpack.NewDecoder(br).Decode(&rec); err != nil {
		return nil, minhash.Config{}, false, &misc.FormatError{Reason: "could not decode matrix", Err: err}
	}
	metric, err := LookupMetric(rec.Metric)
	if err != nil {
		return nil, minhash.Config{}, false, &misc.FormatError{Reason: "bad matrix", Err: err}
	}
	if len(rec.Rows) == 0 || len(rec.Cols) == 0 || len(rec.Values) != len(rec.Rows)*len(rec.Cols) {
		return nil, minhash.Config{}, false, &misc.FormatError{Reason: fmt.Sprintf("%d values don't fill a %dx%d matrix", len(rec.Values), len(rec.Rows), len(rec.Cols))}
	}
	m := &Matrix{
		Metric: metric,
		Rows:   rec.Rows,
		Cols:   rec.Cols,
		Values: mat.NewDense(len(rec.Rows), len(rec.Cols), rec.Values),
	}
	return m, rec.Config, rec.Cross, nil
}

// Save writes every matrix of the family into a directory as raw matrix files. Raw matrix
// files of other metrics are removed, so the directory only ever holds one family.
func (f *Family) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	keep := make(map[string]bool, len(f.Matrices))
	for _, m := range f.Matrices {
		name := m.Metric.FileName(RawExt)
		if err := misc.WriteFileAtomic(filepath.Join(dir, name), func(w io.Writer) error {
			return f.WriteMatrix(w, m)
		}); err != nil {
			return fmt.Errorf("could not save %s matrix: %w", m.Metric.ID(), err)
		}
		keep[name] = true
	}
	existing, err := filepath.Glob(filepath.Join(dir, "mat_*"+RawExt))
	if err != nil {
		return err
	}
	for _, file := range existing {
		if keep[filepath.Base(file)] {
			continue
		}
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("could not remove stale matrix: %w", err)
		}
		log.Debug("removed stale matrix", "file", file)
	}
	return nil
}

// LoadFamily reads every raw matrix file in a directory
func LoadFamily(dir string) (*Family, error) {
	if err := misc.CheckDir(dir); err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "mat_*"+RawExt))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &misc.MissingInputError{Path: filepath.Join(dir, "mat_*"+RawExt)}
	}
	sort.Strings(files)
	var (
		config   minhash.Config
		cross    bool
		matrices []*Matrix
	)
	for i, file := range files {
		m, c, x, err := loadMatrix(file)
		if err != nil {
			return nil, err
		}
		if want := m.Metric.FileName(RawExt); filepath.Base(file) != want {
			return nil, &misc.FormatError{Path: file, Reason: fmt.Sprintf("holds the %s matrix", strings.TrimSuffix(want, RawExt))}
		}
		if i == 0 {
			config, cross = c, x
		} else if c != config || x != cross {
			return nil, &misc.FormatError{Path: file, Reason: "matrix was built with a different configuration to the rest of the family"}
		}
		matrices = append(matrices, m)
	}
	f, err := NewFamily(config, cross, matrices...)
	if err != nil {
		return nil, &misc.FormatError{Path: dir, Reason: "inconsistent family", Err: err}
	}
	return f, nil
}

func loadMatrix(file string) (*Matrix, minhash.Config, bool, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, minhash.Config{}, false, err
	}
	defer fh.Close()
	m, c, x, err := readMatrix(fh)
	if err != nil {
		var formatErr *misc.FormatError
		if errors.As(err, &formatErr) && formatErr.Path == "" {
			formatErr.Path = file
		}
		return nil, c, x, err
	}
	return m, c, x, nil
}
