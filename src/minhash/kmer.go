package minhash

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/will-rowe/ntHash"
)

// Hasher names the hash family used to turn canonical k-mers into sketch values
type Hasher string

const (
	// XXHASH hashes the 2-bit canonical k-mer encoding with seeded xxhash64
	XXHASH Hasher = "xxhash"
	// NTHASH uses the canonical rolling ntHash value of each k-mer
	NTHASH Hasher = "nthash"
)

// ParseHasher checks a hasher name, where an empty string selects the default
func ParseHasher(name string) (Hasher, error) {
	switch Hasher(name) {
	case "", XXHASH:
		return XXHASH, nil
	case NTHASH:
		return NTHASH, nil
	}
	return "", fmt.Errorf("unknown hasher: %q (expected %q or %q)", name, XXHASH, NTHASH)
}

// baseCodes maps nucleotides to their 2-bit codes, anything else is 4
var baseCodes = func() (table [256]uint8) {
	for i := range table {
		table[i] = 4
	}
	for _, p := range []struct {
		b    byte
		code uint8
	}{{'A', 0}, {'C', 1}, {'G', 2}, {'T', 3}, {'a', 0}, {'c', 1}, {'g', 2}, {'t', 3}} {
		table[p.b] = p.code
	}
	return table
}()

// KmerHasher decomposes sequences into hashed canonical k-mers.
// It reuses internal buffers, so each worker needs its own.
type KmerHasher struct {
	kmerSize uint
	hasher   Hasher
	mask     uint64
	shift    uint
	digest   *xxhash.Digest
	buf      [8]byte
	run      []byte
}

// NewKmerHasher is the constructor
func NewKmerHasher(hasher Hasher, k uint) (*KmerHasher, error) {
	if k == 0 || k > MaxKmerSize {
		return nil, fmt.Errorf("k-mer size must be between 1 and %d, got %d", MaxKmerSize, k)
	}
	hasher, err := ParseHasher(string(hasher))
	if err != nil {
		return nil, err
	}
	return &KmerHasher{
		kmerSize: k,
		hasher:   hasher,
		mask:     uint64(1)<<(2*k) - 1,
		shift:    2 * (k - 1),
		digest:   xxhash.NewWithSeed(HashSeed),
	}, nil
}

// Hash calls emit with the hash of every canonical k-mer in seq. Windows containing
// anything other than ACGT are skipped, and a sequence shorter than k emits nothing.
func (kh *KmerHasher) Hash(seq []byte, emit func(uint64)) error {
	if len(seq) < int(kh.kmerSize) {
		return nil
	}
	if kh.hasher == NTHASH {
		return kh.hashRuns(seq, emit)
	}
	var fwd, rev uint64
	valid := uint(0)
	for _, b := range seq {
		code := baseCodes[b]
		if code > 3 {
			fwd, rev, valid = 0, 0, 0
			continue
		}
		fwd = (fwd<<2 | uint64(code)) & kh.mask
		rev = rev>>2 | uint64(3-code)<<kh.shift
		valid++
		if valid < kh.kmerSize {
			continue
		}
		canonical := fwd
		if rev < fwd {
			canonical = rev
		}
		emit(kh.hashCode(canonical))
	}
	return nil
}

// hashCode hashes a 2-bit k-mer encoding
func (kh *KmerHasher) hashCode(code uint64) uint64 {
	binary.LittleEndian.PutUint64(kh.buf[:], code)
	kh.digest.ResetWithSeed(HashSeed)
	_, _ = kh.digest.Write(kh.buf[:])
	return kh.digest.Sum64()
}

// hashRuns feeds each maximal ACGT run of the sequence to ntHash
func (kh *KmerHasher) hashRuns(seq []byte, emit func(uint64)) error {
	kh.run = kh.run[:0]
	flush := func() error {
		if len(kh.run) >= int(kh.kmerSize) {
			run := kh.run
			hasher, err := ntHash.New(&run, kh.kmerSize)
			if err != nil {
				return err
			}
			for hv := range hasher.Hash(CANONICAL) {
				emit(hv)
			}
		}
		kh.run = kh.run[:0]
		return nil
	}
	for _, b := range seq {
		code := baseCodes[b]
		if code > 3 {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		kh.run = append(kh.run, "ACGT"[code])
	}
	return flush()
}
