package mst

import (
	"errors"
	"math/rand/v2"
)

// ErrPlacement is returned when GenerateNodes cannot fit the requested nodes
// at the configured spacing.
var ErrPlacement = errors.New("mst: could not place nodes at requested spacing")

// GenerateParams bounds node generation for the route game.
type GenerateParams struct {
	Lo, Hi      float64 // square bounds for both axes
	Scatter     float64 // standard deviation around a cluster centre
	MinSpacing  float64
	MinClusters int
	MaxClusters int // exclusive
	MaxAttempts int // per node
	Restarts    int // whole-layout retries after a jam
}

// DefaultGenerateParams matches the workspace region the camera sees
// around its centre.
func DefaultGenerateParams() GenerateParams {
	return GenerateParams{
		Lo:          300,
		Hi:          450,
		Scatter:     100,
		MinSpacing:  50,
		MinClusters: 2,
		MaxClusters: 5,
		MaxAttempts: 1000,
		Restarts:    20,
	}
}

// GenerateNodes scatters n nodes around a handful of random cluster centres,
// clipped to the bounds, rejecting any candidate closer than MinSpacing to
// an accepted node. A layout that jams is thrown away and retried; when
// every retry jams the last partial layout is returned with ErrPlacement.
func GenerateNodes(rng *rand.Rand, n int, p GenerateParams) ([]Point, error) {
	if n <= 0 {
		return nil, nil
	}
	var (
		nodes []Point
		err   error
	)
	for round := 0; round <= max(p.Restarts, 0); round++ {
		if nodes, err = layout(rng, n, p); err == nil {
			return nodes, nil
		}
	}
	return nodes, err
}

func layout(rng *rand.Rand, n int, p GenerateParams) ([]Point, error) {
	clusters := p.MinClusters
	if p.MaxClusters > p.MinClusters {
		clusters += rng.IntN(p.MaxClusters - p.MinClusters)
	}
	clusters = max(clusters, 1)
	centres := make([]Point, clusters)
	for i := range centres {
		centres[i] = Point{
			X: p.Lo + rng.Float64()*(p.Hi-p.Lo),
			Y: p.Lo + rng.Float64()*(p.Hi-p.Lo),
		}
	}

	attempts := max(p.MaxAttempts, 1)
	nodes := make([]Point, 0, n)
	for len(nodes) < n {
		placed := false
		for a := 0; a < attempts; a++ {
			c := centres[rng.IntN(len(centres))]
			cand := Point{
				X: clamp(c.X+rng.NormFloat64()*p.Scatter, p.Lo, p.Hi),
				Y: clamp(c.Y+rng.NormFloat64()*p.Scatter, p.Lo, p.Hi),
			}
			if farEnough(cand, nodes, p.MinSpacing) {
				nodes = append(nodes, cand)
				placed = true
				break
			}
		}
		if !placed {
			return nodes, ErrPlacement
		}
	}
	return nodes, nil
}

func farEnough(c Point, nodes []Point, spacing float64) bool {
	for _, n := range nodes {
		if c.Dist(n) < spacing {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
