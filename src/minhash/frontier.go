package minhash

import (
	"container/heap"
	"math"
	"slices"
)

// Frontier is the partial bottom-n state built by one sketching worker.
//
// It counts every hash no larger than its cutoff. A hash becomes eligible once its
// count reaches the filter threshold, and the n smallest eligible hashes are tracked in
// a max-heap. Once the heap is full its top becomes the cutoff: no hash above it can be
// among the n smallest eligible hashes of the whole sample, because counts only grow
// when partial frontiers are combined. The cutoff only ever decreases, so every hash at
// or below it has an exact count for the reads this worker saw.
type Frontier struct {
	capacity  int
	threshold uint32
	counts    map[uint64]uint32
	eligible  *hashHeap
	cutoff    uint64
	pruneAt   int
}

// NewFrontier is the constructor
func NewFrontier(capacity uint, filter FilterPolicy) *Frontier {
	f := &Frontier{
		capacity:  int(capacity),
		threshold: filter.Threshold(),
		counts:    make(map[uint64]uint32),
		eligible:  &hashHeap{},
		cutoff:    math.MaxUint64,
	}
	f.pruneAt = f.minPrune()
	heap.Init(f.eligible)
	return f
}

func (f *Frontier) minPrune() int {
	return 4*f.capacity + 1024
}

// Add records one occurrence of a hash
func (f *Frontier) Add(hv uint64) {
	if hv > f.cutoff || f.capacity == 0 {
		return
	}
	count := f.counts[hv]
	if count == math.MaxUint32 {
		return
	}
	count++
	f.counts[hv] = count
	if count == f.threshold {
		if f.eligible.Len() < f.capacity {
			heap.Push(f.eligible, hv)
			if f.eligible.Len() == f.capacity {
				f.cutoff = f.eligible.top()
			}
		} else {
			// hv is below the cutoff and was not eligible before, so it displaces the top
			(*f.eligible)[0] = hv
			heap.Fix(f.eligible, 0)
			f.cutoff = f.eligible.top()
		}
	}
	if len(f.counts) > f.pruneAt {
		f.prune()
	}
}

// prune drops the counts of hashes that can no longer make the sketch
func (f *Frontier) prune() {
	for hv := range f.counts {
		if hv > f.cutoff {
			delete(f.counts, hv)
		}
	}
	f.pruneAt = max(2*len(f.counts), f.minPrune())
}

// Reduce combines partial frontiers into the final sketch. The result does not depend on
// how the reads were split between the frontiers or on the order they are passed in.
func Reduce(name string, config Config, frontiers ...*Frontier) *Sketch {
	// only hashes at or below every cutoff have complete counts, and the final
	// n smallest eligible hashes are all inside that range
	cutoff := uint64(math.MaxUint64)
	for _, f := range frontiers {
		cutoff = min(cutoff, f.cutoff)
	}
	totals := make(map[uint64]uint64)
	for _, f := range frontiers {
		for hv, count := range f.counts {
			if hv <= cutoff {
				totals[hv] += uint64(count)
			}
		}
	}
	threshold := uint64(config.Filter.Threshold())
	candidates := make([]uint64, 0, len(totals))
	for hv, count := range totals {
		if count >= threshold {
			candidates = append(candidates, hv)
		}
	}
	slices.Sort(candidates)
	if uint(len(candidates)) > config.Capacity {
		candidates = candidates[:config.Capacity]
	}
	sketch := &Sketch{
		Name:       name,
		Config:     config,
		Hashes:     candidates,
		Abundances: make([]uint32, len(candidates)),
	}
	for i, hv := range candidates {
		sketch.Abundances[i] = saturate(totals[hv])
	}
	return sketch
}

// saturate clamps a count to the uint32 abundance range
func saturate(count uint64) uint32 {
	if count > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(count)
}
