package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/will-rowe/skim/src/distance"
	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/store"
)

// Run is a directory holding a sketch file and the matrices computed from it
type Run struct {
	Dir    string
	Store  *store.Store
	Family *distance.Family
}

// OpenRun loads a run directory, first finishing or dropping anything an interrupted update
// left behind
func OpenRun(dir string) (*Run, error) {
	if err := misc.CheckDir(dir); err != nil {
		return nil, err
	}
	finished, err := misc.RecoverStaging(dir)
	if err != nil {
		return nil, fmt.Errorf("could not recover %v: %w", dir, err)
	}
	if finished != 0 {
		log.Warn("finished an interrupted update", "dir", dir)
	}
	s, err := store.Load(filepath.Join(dir, store.FileName))
	if err != nil {
		return nil, err
	}
	family, err := LoadFamily(dir, s.Config)
	if err != nil {
		return nil, err
	}
	if err := CheckNames(family, s.Names(), s.Names()); err != nil {
		return nil, fmt.Errorf("matrices in %v don't belong to its sketch file: %w", dir, err)
	}
	return &Run{Dir: dir, Store: s, Family: family}, nil
}

// Update adds the incoming sketches to the run and rewrites the sketch file, the raw
// matrices and the exported matrices together. Everything is staged first, so a failure
// leaves the directory as it was. Exports stay gzipped if they were before.
func (r *Run) Update(ctx context.Context, updater *distance.Updater, incoming []*minhash.Sketch, opts Options) (*Run, error) {
	family, s, err := updater.Update(ctx, r.Family, r.Store, incoming)
	if err != nil {
		return nil, err
	}
	opts.Gzip = opts.Gzip || Compressed(r.Dir)

	staging, err := misc.NewStaging(r.Dir)
	if err != nil {
		return nil, err
	}
	defer staging.Abort()
	if err := s.Save(filepath.Join(staging.Dir(), store.FileName), r.Store.Codec()); err != nil {
		return nil, err
	}
	if err := family.Save(staging.Dir()); err != nil {
		return nil, err
	}
	if _, err := Family(ctx, family, staging.Dir(), opts); err != nil {
		return nil, err
	}
	if err := staging.Commit(); err != nil {
		return nil, err
	}
	return &Run{Dir: r.Dir, Store: s, Family: family}, nil
}
