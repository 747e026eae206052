package distance

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/store"
)

// Engine computes distance matrices over stores
type Engine struct {
	Workers int // goroutines used to fill matrices, anything below 1 means all CPUs
}

// NewEngine is the constructor
func NewEngine(workers int) *Engine {
	return &Engine{Workers: workers}
}

// Compute builds the square matrix of every metric over the samples of one store
func (e *Engine) Compute(ctx context.Context, s *store.Store, metrics []Metric) (*Family, error) {
	sketches, err := checkStore(s)
	if err != nil {
		return nil, err
	}
	matrices, err := newMatrices(metrics, s.Names(), s.Names())
	if err != nil {
		return nil, err
	}
	err = e.fill(ctx, matrices, sketches, sketches, func(i int) int { return i + 1 }, true)
	if err != nil {
		return nil, err
	}
	return NewFamily(s.Config, false, matrices...)
}

// ComputeCross builds the matrix of every metric between the samples of two stores, with a
// row per sample of a and a column per sample of b
func (e *Engine) ComputeCross(ctx context.Context, a, b *store.Store, metrics []Metric) (*Family, error) {
	if err := a.Config.CheckCompatible(b.Config, true); err != nil {
		return nil, fmt.Errorf("can't compare stores: %w", err)
	}
	rows, err := checkStore(a)
	if err != nil {
		return nil, err
	}
	cols, err := checkStore(b)
	if err != nil {
		return nil, err
	}
	matrices, err := newMatrices(metrics, a.Names(), b.Names())
	if err != nil {
		return nil, err
	}
	if err := e.fill(ctx, matrices, rows, cols, func(int) int { return 0 }, false); err != nil {
		return nil, err
	}
	return NewFamily(a.Config, true, matrices...)
}

// checkStore makes sure every sketch matches the store config
func checkStore(s *store.Store) ([]*minhash.Sketch, error) {
	if s.Len() == 0 {
		return nil, errors.New("store holds no samples")
	}
	sketches := s.Sketches()
	for _, sketch := range sketches {
		if err := s.Config.CheckCompatible(sketch.Config, true); err != nil {
			return nil, fmt.Errorf("sample %q: %w", sketch.Name, err)
		}
	}
	return sketches, nil
}

func newMatrices(metrics []Metric, rows, cols []string) ([]*Matrix, error) {
	if len(metrics) == 0 {
		return nil, errors.New("no metrics requested")
	}
	matrices := make([]*Matrix, len(metrics))
	for i, metric := range metrics {
		m, err := NewMatrix(metric, rows, cols)
		if err != nil {
			return nil, err
		}
		matrices[i] = m
	}
	return matrices, nil
}

// fill computes cells (i, j) for every row i and every column j from first(i) onwards. With
// mirror set, (j, i) gets the same value. Each row is handled by a single goroutine, so no cell
// is written twice.
func (e *Engine) fill(ctx context.Context, matrices []*Matrix, rows, cols []*minhash.Sketch, first func(i int) int, mirror bool) error {
	workers := misc.NumWorkers(e.Workers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	log.Debug("computing distances", "rows", len(rows), "cols", len(cols), "metrics", len(matrices), "workers", workers)
	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			for j := first(i); j < len(cols); j++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				stats := NewStats(rows[i], cols[j])
				for _, m := range matrices {
					d := m.Metric.Distance(&stats)
					m.Values.Set(i, j, d)
					if mirror {
						m.Values.Set(j, i, d)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
