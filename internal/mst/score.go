package mst

import (
	"fmt"
	"math"
	"strings"
)

// Difficulty selects node count and edge-count penalty for the route game.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return "easy"
	}
}

// Penalty is the per-edge score deduction k.
func (d Difficulty) Penalty() float64 {
	switch d {
	case Medium:
		return 0.005
	case Hard:
		return 0.009
	default:
		return 0.001
	}
}

// NodeCount is the number of nodes generated for a round.
func (d Difficulty) NodeCount() int {
	switch d {
	case Medium:
		return 7
	case Hard:
		return 9
	default:
		return 5
	}
}

// ParseDifficulty accepts "easy", "medium" or "hard" in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Easy, fmt.Errorf("unknown difficulty %q: expected easy, medium or hard", s)
}

// CleanPath removes consecutive duplicate points and then any directed
// pair (p[i], p[i+1]) already walked earlier in the path. The final input
// point is always kept. Dropping a pair can make two equal points adjacent,
// so the result is deduplicated once more and never holds a zero-length
// edge.
func CleanPath(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	unique := dropRepeats(points)

	type pair struct{ a, b Point }
	seen := make(map[pair]struct{}, len(unique))
	cleaned := make([]Point, 0, len(unique))
	for i := 0; i < len(unique)-1; i++ {
		p := pair{unique[i], unique[i+1]}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		cleaned = append(cleaned, unique[i])
	}
	return dropRepeats(append(cleaned, points[len(points)-1]))
}

// dropRepeats collapses runs of equal consecutive points.
func dropRepeats(points []Point) []Point {
	out := make([]Point, 0, len(points))
	for i, p := range points {
		if i == 0 || p != points[i-1] {
			out = append(out, p)
		}
	}
	return out
}

// PathLength sums the distances between consecutive points.
func PathLength(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += points[i].Dist(points[i-1])
	}
	return total
}

// EdgeCount is the number of consecutive point pairs in points.
func EdgeCount(points []Point) int {
	return max(len(points)-1, 0)
}

// Score rates a user route against the optimal route:
//
//	max(0, 1 - |Lu-Li|/Li - k*|Eu-Ei|)
//
// An optimal route of zero length scores 0.
func Score(user, optimal []Point, d Difficulty) float64 {
	li := PathLength(optimal)
	if li == 0 || len(user) == 0 {
		return 0
	}
	lu := PathLength(user)
	eu, ei := EdgeCount(user), EdgeCount(optimal)
	s := 1 - math.Abs(lu-li)/li - d.Penalty()*math.Abs(float64(eu-ei))
	return math.Max(0, s)
}

// ScoreRoute cleans the user's connections, builds the optimal route over
// nodes and returns the score as a whole percentage.
func ScoreRoute(connections, nodes []Point, d Difficulty) int {
	user := CleanPath(connections)
	optimal := Flatten(ComputeMST(nodes))
	return int(Score(user, optimal, d) * 100)
}
