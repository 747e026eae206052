// Package minhash contains the bounded bottom-n MinHash sketch used by SKIM, along with
// the k-mer hashing, the partial frontiers used by parallel sketching and the sketch merge.
package minhash

// CANONICAL tell nthash to return the canonical k-mer
const CANONICAL bool = true

// HashSeed is the fixed seed used for every xxhash k-mer hash. Changing it invalidates all stored sketches.
const HashSeed uint64 = 0x9e3779b97f4a7c15

// MaxKmerSize is the largest k that fits the 2-bit k-mer encoding
const MaxKmerSize uint = 32
