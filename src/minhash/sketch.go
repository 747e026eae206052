package minhash

import (
	"fmt"

	"github.com/will-rowe/skim/src/misc"
)

// Config holds the settings that every sketch compared or merged together must share
type Config struct {
	KmerSize uint         `msgpack:"k"`
	Capacity uint         `msgpack:"n"`
	Filter   FilterPolicy `msgpack:"filter"`
	Hasher   Hasher       `msgpack:"hasher"`
}

// Validate checks the config values are usable
func (c Config) Validate() error {
	if c.KmerSize == 0 || c.KmerSize > MaxKmerSize {
		return fmt.Errorf("k-mer size must be between 1 and %d, got %d", MaxKmerSize, c.KmerSize)
	}
	if c.Capacity == 0 {
		return fmt.Errorf("sketch capacity must be greater than 0")
	}
	if _, err := ParseHasher(string(c.Hasher)); err != nil {
		return err
	}
	return nil
}

// CheckCompatible returns a ConfigurationMismatchError for the first setting that differs.
// Capacity is only compared when withCapacity is set.
func (c Config) CheckCompatible(other Config, withCapacity bool) error {
	switch {
	case c.KmerSize != other.KmerSize:
		return &misc.ConfigurationMismatchError{Field: "k-mer size", Want: c.KmerSize, Got: other.KmerSize}
	case withCapacity && c.Capacity != other.Capacity:
		return &misc.ConfigurationMismatchError{Field: "sketch capacity", Want: c.Capacity, Got: other.Capacity}
	case c.Hasher != other.Hasher:
		return &misc.ConfigurationMismatchError{Field: "hasher", Want: c.Hasher, Got: other.Hasher}
	case c.Filter.Threshold() != other.Filter.Threshold():
		return &misc.ConfigurationMismatchError{Field: "filter policy", Want: c.Filter, Got: other.Filter}
	}
	return nil
}

// Sketch is a bounded bottom-n MinHash sketch of one sample. Hashes are strictly
// ascending and Abundances[i] is the number of times Hashes[i] was seen.
// A Sketch is never modified once built.
type Sketch struct {
	Name       string
	Config     Config
	Hashes     []uint64
	Abundances []uint32
}

// Len returns the number of retained hashes
func (s *Sketch) Len() int {
	return len(s.Hashes)
}

// MaxHash returns the largest retained hash, or 0 for an empty sketch
func (s *Sketch) MaxHash() uint64 {
	if len(s.Hashes) == 0 {
		return 0
	}
	return s.Hashes[len(s.Hashes)-1]
}

// TotalAbundance sums the abundances of all retained hashes
func (s *Sketch) TotalAbundance() uint64 {
	total := uint64(0)
	for _, a := range s.Abundances {
		total += uint64(a)
	}
	return total
}

// Validate checks the structural invariants of a sketch
func (s *Sketch) Validate() error {
	if s.Name == "" {
		return &misc.FormatError{Reason: "sketch has no sample name"}
	}
	if err := s.Config.Validate(); err != nil {
		return &misc.FormatError{Reason: fmt.Sprintf("sketch %q has a bad config", s.Name), Err: err}
	}
	if len(s.Hashes) != len(s.Abundances) {
		return &misc.FormatError{Reason: fmt.Sprintf("sketch %q has %d hashes but %d abundances", s.Name, len(s.Hashes), len(s.Abundances))}
	}
	if uint(len(s.Hashes)) > s.Config.Capacity {
		return &misc.FormatError{Reason: fmt.Sprintf("sketch %q holds %d hashes, over its capacity of %d", s.Name, len(s.Hashes), s.Config.Capacity)}
	}
	for i := 1; i < len(s.Hashes); i++ {
		if s.Hashes[i] <= s.Hashes[i-1] {
			return &misc.FormatError{Reason: fmt.Sprintf("sketch %q hashes are not strictly ascending at position %d", s.Name, i)}
		}
	}
	threshold := s.Config.Filter.Threshold()
	for i, a := range s.Abundances {
		if a < threshold {
			return &misc.FormatError{Reason: fmt.Sprintf("sketch %q abundance %d at position %d is below the filter threshold", s.Name, a, i)}
		}
	}
	return nil
}
