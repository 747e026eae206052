// Package store holds the SketchStore: an ordered collection of sample sketches that share
// one configuration, along with its on-disk format.
package store

import (
	"fmt"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
)

// Store is an ordered set of sketches sharing one config. The order samples were added
// in is the row and column order of every matrix built from the store.
type Store struct {
	Config   minhash.Config
	sketches []*minhash.Sketch
	index    map[string]int
	codec    Compression
}

// New returns an empty store for the given config
func New(config minhash.Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Store{Config: config, index: make(map[string]int)}, nil
}

// Add appends a sketch to the store. The sketch must have the store's config, a name
// not already in the store and at least one hash.
func (s *Store) Add(sketch *minhash.Sketch) error {
	if err := s.Config.CheckCompatible(sketch.Config, true); err != nil {
		return fmt.Errorf("can't add sample %q: %w", sketch.Name, err)
	}
	if _, ok := s.index[sketch.Name]; ok {
		return fmt.Errorf("sample %q is already in the store", sketch.Name)
	}
	if sketch.Len() == 0 {
		return &misc.NoReadsError{Sample: sketch.Name}
	}
	s.index[sketch.Name] = len(s.sketches)
	s.sketches = append(s.sketches, sketch)
	return nil
}

// Codec returns the compression the store was read with
func (s *Store) Codec() Compression {
	return s.codec
}

// Len returns the number of samples
func (s *Store) Len() int {
	return len(s.sketches)
}

// Sketch returns the i-th sketch
func (s *Store) Sketch(i int) *minhash.Sketch {
	return s.sketches[i]
}

// Sketches returns the sketches in store order
func (s *Store) Sketches() []*minhash.Sketch {
	return append([]*minhash.Sketch(nil), s.sketches...)
}

// Get returns the sketch for a sample name
func (s *Store) Get(name string) (*minhash.Sketch, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.sketches[i], true
}

// Names returns the sample names in store order
func (s *Store) Names() []string {
	names := make([]string, len(s.sketches))
	for i, sketch := range s.sketches {
		names[i] = sketch.Name
	}
	return names
}

// clone copies the store, sharing the (immutable) sketches
func (s *Store) clone() *Store {
	c := &Store{
		Config:   s.Config,
		sketches: s.Sketches(),
		index:    make(map[string]int, len(s.index)),
		codec:    s.codec,
	}
	for name, i := range s.index {
		c.index[name] = i
	}
	return c
}

// Extend returns a new store holding this store's samples followed by the new sketches
func (s *Store) Extend(sketches ...*minhash.Sketch) (*Store, error) {
	extended := s.clone()
	for _, sketch := range sketches {
		if err := extended.Add(sketch); err != nil {
			return nil, err
		}
	}
	return extended, nil
}

// Append returns a new store combining this store with another of the same config. A
// sample of other whose name is already present is merged into the existing sketch (which
// keeps its position), any other sample is added at the end.
func (s *Store) Append(other *Store) (*Store, error) {
	if err := s.Config.CheckCompatible(other.Config, true); err != nil {
		return nil, err
	}
	appended := s.clone()
	for _, sketch := range other.sketches {
		i, ok := appended.index[sketch.Name]
		if !ok {
			if err := appended.Add(sketch); err != nil {
				return nil, err
			}
			continue
		}
		merged, err := minhash.Merge(appended.sketches[i], sketch, s.Config.Capacity)
		if err != nil {
			return nil, err
		}
		appended.sketches[i] = merged
	}
	return appended, nil
}
