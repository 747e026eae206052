package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/will-rowe/skim/src/distance"
	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
)

const (
	// CSVExt is the extension of exported matrices
	CSVExt = ".csv"
	// GzipExt is appended to CSVExt when the export is compressed
	GzipExt = ".gz"
)

// Options control a family export
type Options struct {
	Gzip    bool // write bgzf compressed .csv.gz files
	Workers int  // matrices written at once, anything below 1 means all CPUs
}

func (opts Options) ext() string {
	if opts.Gzip {
		return CSVExt + GzipExt
	}
	return CSVExt
}

// Family writes every matrix of a family into outDir and returns the paths written. Each file
// only replaces an existing one once it is complete.
func Family(ctx context.Context, family *distance.Family, outDir string, opts Options) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, len(family.Matrices))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(misc.NumWorkers(opts.Workers))
	for i, m := range family.Matrices {
		i, m := i, m
		paths[i] = filepath.Join(outDir, m.Metric.FileName(opts.ext()))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := writeMatrixFile(paths[i], m, opts.Gzip); err != nil {
				return fmt.Errorf("could not export %s: %w", m.Metric.ID(), err)
			}
			log.Debug("exported matrix", "file", paths[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeMatrixFile(path string, m *distance.Matrix, compress bool) error {
	return misc.WriteFileAtomic(path, func(w io.Writer) error {
		if !compress {
			return WriteCSV(w, m)
		}
		bw := bgzf.NewWriter(w, 1)
		if err := WriteCSV(bw, m); err != nil {
			_ = bw.Close()
			return err
		}
		return bw.Close()
	})
}

// ReadMatrixFile reads an exported matrix, working out the metric from the file name
func ReadMatrixFile(path string) (*distance.Matrix, error) {
	metric, err := metricFromFile(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &misc.MissingInputError{Path: path, Err: err}
		}
		return nil, err
	}
	defer fh.Close()
	var r io.Reader = fh
	if strings.HasSuffix(path, GzipExt) {
		if ok, err := bgzf.HasEOF(fh); err == nil && !ok {
			log.Warn("matrix has no bgzf EOF block, it may be truncated", "file", path)
		}
		gr, err := gzip.NewReader(fh)
		if err != nil {
			return nil, &misc.FormatError{Path: path, Reason: "could not decompress", Err: err}
		}
		defer gr.Close()
		r = gr
	}
	m, err := ReadCSV(r, metric)
	if err != nil {
		var formatErr *misc.FormatError
		if errors.As(err, &formatErr) && formatErr.Path == "" {
			formatErr.Path = path
		}
		return nil, err
	}
	return m, nil
}

// metricFromFile maps mat_<kind>_<name>.csv[.gz] to its metric
func metricFromFile(path string) (distance.Metric, error) {
	base := filepath.Base(path)
	id := strings.TrimSuffix(strings.TrimSuffix(base, GzipExt), CSVExt)
	if !strings.HasPrefix(id, "mat_") || id == base {
		return distance.Metric{}, &misc.FormatError{Path: path, Reason: "not an exported matrix file name"}
	}
	metric, err := distance.LookupMetric(strings.TrimPrefix(id, "mat_"))
	if err != nil {
		return distance.Metric{}, &misc.FormatError{Path: path, Reason: "unknown metric", Err: err}
	}
	return metric, nil
}

// LoadFamily reads a family from a directory, preferring raw matrix files and falling back
// to exported ones. Exported matrices don't record the sketch config, so config is used instead.
func LoadFamily(dir string, config minhash.Config) (*distance.Family, error) {
	if err := misc.CheckDir(dir); err != nil {
		return nil, err
	}
	raw, err := filepath.Glob(filepath.Join(dir, "mat_*"+distance.RawExt))
	if err != nil {
		return nil, err
	}
	if len(raw) != 0 {
		family, err := distance.LoadFamily(dir)
		if err != nil {
			return nil, err
		}
		if err := config.CheckCompatible(family.Config, true); err != nil {
			return nil, fmt.Errorf("matrices in %v were built from other sketches: %w", dir, err)
		}
		return family, nil
	}
	files, err := exportedFiles(dir)
	if err != nil {
		return nil, err
	}
	matrices := make([]*distance.Matrix, 0, len(files))
	for _, file := range files {
		m, err := ReadMatrixFile(file)
		if err != nil {
			return nil, err
		}
		matrices = append(matrices, m)
	}
	cross := len(matrices[0].Rows) != len(matrices[0].Cols)
	for i := 0; !cross && i < len(matrices[0].Rows); i++ {
		cross = matrices[0].Rows[i] != matrices[0].Cols[i]
	}
	family, err := distance.NewFamily(config, cross, matrices...)
	if err != nil {
		return nil, &misc.FormatError{Path: dir, Reason: "inconsistent family", Err: err}
	}
	return family, nil
}

// exportedFiles lists the exported matrices of a directory. A metric exported both plain and
// compressed is an error, as it isn't clear which to use.
func exportedFiles(dir string) ([]string, error) {
	var files []string
	for _, ext := range []string{CSVExt, CSVExt + GzipExt} {
		found, err := filepath.Glob(filepath.Join(dir, "mat_*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, &misc.MissingInputError{Path: filepath.Join(dir, "mat_*"+CSVExt)}
	}
	sort.Strings(files)
	seen := make(map[string]bool, len(files))
	for _, file := range files {
		id := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(file), GzipExt), CSVExt)
		if seen[id] {
			return nil, &misc.FormatError{Path: file, Reason: "matrix exported twice"}
		}
		seen[id] = true
	}
	return files, nil
}

// Compressed reports whether a directory holds gzipped exports
func Compressed(dir string) bool {
	found, err := filepath.Glob(filepath.Join(dir, "mat_*"+CSVExt+GzipExt))
	return err == nil && len(found) != 0
}

// CheckNames makes sure a family was built from samples with the given names
func CheckNames(family *distance.Family, rows, cols []string) error {
	if !sameNames(family.Rows, rows) {
		return &misc.FormatError{Reason: fmt.Sprintf("matrix rows don't match the samples (%d rows, %d samples)", len(family.Rows), len(rows))}
	}
	if !sameNames(family.Cols, cols) {
		return &misc.FormatError{Reason: fmt.Sprintf("matrix columns don't match the samples (%d columns, %d samples)", len(family.Cols), len(cols))}
	}
	return nil
}

func sameNames(a, b []string) bool {
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
