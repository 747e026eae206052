package distance

import (
	"math"

	"github.com/will-rowe/skim/src/minhash"
)

// Stats are the pair statistics every metric is built from. Both sketches are truncated
// to the smaller of their two largest hashes, so that they cover the same slice of hash space.
type Stats struct {
	A, B, C          float64 // shared, only in X, only in Y (distinct hashes)
	SumX, SumY       float64 // abundance totals
	SharedX, SharedY float64 // abundance of the shared hashes
	SumMin           float64 // sum of min(nx, ny)
	SumProd          float64 // sum of nx*ny
	SumSqrtProd      float64 // sum of sqrt(nx*ny)
	SqX, SqY         float64 // sums of squared abundances
}

// NewStats walks the two sorted sketches once
func NewStats(x, y *minhash.Sketch) Stats {
	var s Stats
	threshold := x.MaxHash()
	if m := y.MaxHash(); m < threshold {
		threshold = m
	}
	i, j := 0, 0
	for {
		inX := i < len(x.Hashes) && x.Hashes[i] <= threshold
		inY := j < len(y.Hashes) && y.Hashes[j] <= threshold
		switch {
		case inX && inY && x.Hashes[i] == y.Hashes[j]:
			nx, ny := float64(x.Abundances[i]), float64(y.Abundances[j])
			s.A++
			s.SumX += nx
			s.SumY += ny
			s.SharedX += nx
			s.SharedY += ny
			s.SumMin += math.Min(nx, ny)
			s.SumProd += nx * ny
			s.SumSqrtProd += math.Sqrt(nx * ny)
			s.SqX += nx * nx
			s.SqY += ny * ny
			i++
			j++
		case inX && (!inY || x.Hashes[i] < y.Hashes[j]):
			nx := float64(x.Abundances[i])
			s.B++
			s.SumX += nx
			s.SqX += nx * nx
			i++
		case inY:
			ny := float64(y.Abundances[j])
			s.C++
			s.SumY += ny
			s.SqY += ny * ny
			j++
		default:
			return s
		}
	}
}
