// Package distance computes pairwise distance matrices between the sketches of a store,
// and extends those matrices when new samples are added.
package distance

import (
	"fmt"
	"math"
	"strings"
)

// Kind groups metrics by the part of the sketch they look at
type Kind string

const (
	// PresenceAbsence metrics only use which hashes are shared
	PresenceAbsence Kind = "presenceAbsence"
	// Abundance metrics also use the hash counts
	Abundance Kind = "abundance"
)

// Metric is a named distance over the statistics of a sketch pair
type Metric struct {
	Kind Kind
	Name string
	max  float64
	fn   func(s *Stats) float64
}

// ID is the metric identity used on the command line and in file names
func (m Metric) ID() string {
	return string(m.Kind) + "_" + m.Name
}

// FileName returns the matrix file name for the metric, with the given extension (e.g. ".csv")
func (m Metric) FileName(ext string) string {
	return "mat_" + m.ID() + ext
}

// Max is the largest value the metric can take, which is also what an undefined ratio gives
func (m Metric) Max() float64 {
	return m.max
}

// Distance evaluates the metric for a pair
func (m Metric) Distance(s *Stats) float64 {
	d := m.fn(s)
	switch {
	case math.IsNaN(d), math.IsInf(d, 0):
		return m.max
	case d <= 0:
		// rounding can push a distance just below zero and gives -0
		return 0
	}
	return d
}

// Metrics holds every metric, in output order
var Metrics = []Metric{
	{PresenceAbsence, "jaccard", 1, func(s *Stats) float64 {
		return div(s.B+s.C, s.A+s.B+s.C)
	}},
	{PresenceAbsence, "braycurtis", 1, func(s *Stats) float64 {
		return div(s.B+s.C, 2*s.A+s.B+s.C)
	}},
	{PresenceAbsence, "simka-jaccard", 1, func(s *Stats) float64 {
		return 1 - div(2*s.A, (s.A+s.B)+(s.A+s.C))
	}},
	{PresenceAbsence, "ochiai", 1, func(s *Stats) float64 {
		return 1 - div(s.A, math.Sqrt((s.A+s.B)*(s.A+s.C)))
	}},
	{PresenceAbsence, "kulczynski", 1, func(s *Stats) float64 {
		return 1 - 0.5*(div(s.A, s.A+s.B)+div(s.A, s.A+s.C))
	}},
	{PresenceAbsence, "chord", math.Sqrt2, func(s *Stats) float64 {
		return sqrt(2 * (1 - div(s.A, math.Sqrt((s.A+s.B)*(s.A+s.C)))))
	}},
	{PresenceAbsence, "whittaker", 1, func(s *Stats) float64 {
		x, y := div(s.A, s.A+s.B), div(s.A, s.A+s.C)
		return 0.5 * (div(s.B, s.A+s.B) + div(s.C, s.A+s.C) + math.Abs(x-y))
	}},
	{Abundance, "braycurtis", 1, func(s *Stats) float64 {
		return 1 - div(2*s.SumMin, s.SumX+s.SumY)
	}},
	{Abundance, "simka-jaccard", 1, func(s *Stats) float64 {
		return 1 - div(s.SharedX+s.SharedY, s.SumX+s.SumY)
	}},
	{Abundance, "ab-jaccard", 1, func(s *Stats) float64 {
		return 1 - div(s.SharedX*s.SharedY, s.SumX*s.SharedY+s.SharedX*s.SumY-s.SharedX*s.SharedY)
	}},
	{Abundance, "ab-sorensen", 1, func(s *Stats) float64 {
		return 1 - div(2*s.SharedX*s.SharedY, s.SumX*s.SharedY+s.SharedX*s.SumY)
	}},
	{Abundance, "ab-ochiai", 1, func(s *Stats) float64 {
		return 1 - math.Sqrt(div(s.SharedX, s.SumX))*math.Sqrt(div(s.SharedY, s.SumY))
	}},
	{Abundance, "chord", math.Sqrt2, func(s *Stats) float64 {
		return sqrt(2 - 2*div(s.SumProd, math.Sqrt(s.SqX*s.SqY)))
	}},
	{Abundance, "hellinger", math.Sqrt2, func(s *Stats) float64 {
		return sqrt(2 - 2*div(s.SumSqrtProd, math.Sqrt(s.SumX*s.SumY)))
	}},
	{Abundance, "kulczynski", 1, func(s *Stats) float64 {
		return 1 - div(0.5*(s.SumX+s.SumY)*s.SumMin, s.SumX*s.SumY)
	}},
}

// div returns NaN for a zero denominator, which Distance turns into the metric maximum
func div(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

func sqrt(x float64) float64 {
	if x < 0 {
		return 0
	}
	return math.Sqrt(x)
}

// LookupMetric finds a metric by ID
func LookupMetric(id string) (Metric, error) {
	for _, m := range Metrics {
		if m.ID() == id {
			return m, nil
		}
	}
	return Metric{}, fmt.Errorf("unknown metric: %q", id)
}

// ParseMetrics selects metrics by ID, keeping the catalogue order. No IDs selects all of them.
func ParseMetrics(ids []string) ([]Metric, error) {
	if len(ids) == 0 {
		return append([]Metric(nil), Metrics...), nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, err := LookupMetric(id); err != nil {
			return nil, err
		}
		wanted[id] = true
	}
	selected := make([]Metric, 0, len(wanted))
	for _, m := range Metrics {
		if wanted[m.ID()] {
			selected = append(selected, m)
		}
	}
	return selected, nil
}

// MetricIDs lists the ID of every metric
func MetricIDs() []string {
	ids := make([]string, len(Metrics))
	for i, m := range Metrics {
		ids[i] = m.ID()
	}
	return ids
}
