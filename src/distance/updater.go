package distance

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/store"
)

// Updater adds samples to an existing store and its self family without recomputing the
// distances that are already known
type Updater struct {
	Engine *Engine
}

// NewUpdater is the constructor
func NewUpdater(engine *Engine) *Updater {
	return &Updater{Engine: engine}
}

// Update returns the extended store and family. The family must be the self family of the
// store. Old cells are copied across, only the old x new and new x new pairs are computed.
func (u *Updater) Update(ctx context.Context, family *Family, s *store.Store, incoming []*minhash.Sketch) (*Family, *store.Store, error) {
	if family.Cross {
		return nil, nil, &misc.FormatError{Reason: "can't update a cross comparison"}
	}
	if !equalNames(family.Rows, s.Names()) {
		return nil, nil, &misc.FormatError{Reason: fmt.Sprintf("matrix samples don't match the store (%d in matrices, %d in store)", len(family.Rows), s.Len())}
	}
	if len(incoming) == 0 {
		return nil, nil, fmt.Errorf("no new samples to add")
	}
	for _, sketch := range incoming {
		if err := s.Config.CheckCompatible(sketch.Config, true); err != nil {
			return nil, nil, fmt.Errorf("can't add sample %q: %w", sketch.Name, err)
		}
	}
	extended, err := s.Extend(incoming...)
	if err != nil {
		return nil, nil, err
	}

	// copy the known distances into the bigger matrices
	old := s.Len()
	names := extended.Names()
	matrices := make([]*Matrix, len(family.Matrices))
	for k, m := range family.Matrices {
		grown, err := NewMatrix(m.Metric, names, names)
		if err != nil {
			return nil, nil, err
		}
		for i := 0; i < old; i++ {
			for j := 0; j < old; j++ {
				grown.Values.Set(i, j, m.At(i, j))
			}
		}
		matrices[k] = grown
	}

	// then compute the rest
	log.Debug("updating matrices", "existing samples", old, "new samples", len(incoming))
	sketches := extended.Sketches()
	first := func(i int) int {
		if i < old {
			return old
		}
		return i + 1
	}
	if err := u.Engine.fill(ctx, matrices, sketches, sketches, first, true); err != nil {
		return nil, nil, err
	}
	updated, err := NewFamily(extended.Config, false, matrices...)
	if err != nil {
		return nil, nil, err
	}
	return updated, extended, nil
}
