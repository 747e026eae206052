package minhash

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMinAbundance is the threshold used when filtering is switched on without a value
const DefaultMinAbundance uint32 = 2

// FilterPolicy decides when a hash becomes eligible for a sketch. The zero value is no filter.
type FilterPolicy struct {
	MinAbundance uint32 `msgpack:"minAbundance"`
}

// NoFilter keeps every hash seen at least once
func NoFilter() FilterPolicy {
	return FilterPolicy{}
}

// MinimumAbundance only keeps hashes seen at least threshold times
func MinimumAbundance(threshold uint32) FilterPolicy {
	if threshold <= 1 {
		return NoFilter()
	}
	return FilterPolicy{MinAbundance: threshold}
}

// Threshold returns the count at which a hash becomes eligible
func (fp FilterPolicy) Threshold() uint32 {
	if fp.MinAbundance <= 1 {
		return 1
	}
	return fp.MinAbundance
}

// Enabled reports whether any hash can be filtered out
func (fp FilterPolicy) Enabled() bool {
	return fp.Threshold() > 1
}

func (fp FilterPolicy) String() string {
	if !fp.Enabled() {
		return "none"
	}
	return fmt.Sprintf("min-abundance:%d", fp.MinAbundance)
}

// ParseFilterPolicy reads the String form of a policy
func ParseFilterPolicy(s string) (FilterPolicy, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return NoFilter(), nil
	}
	if v, ok := strings.CutPrefix(s, "min-abundance:"); ok {
		threshold, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return FilterPolicy{}, fmt.Errorf("bad abundance threshold %q: %w", v, err)
		}
		return MinimumAbundance(uint32(threshold)), nil
	}
	return FilterPolicy{}, fmt.Errorf("unknown filter policy: %q", s)
}
