package mst

import (
	"math"
	"sort"
)

// Point is a node in workspace (frame pixel) coordinates. A node's index is
// its position in the slice passed to ComputeMST.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Edge is a candidate edge between node indices U and V.
type Edge struct {
	Weight float64
	U, V   int
}

// Segment is an accepted spanning-tree edge expressed by its endpoint
// coordinates.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Length returns the segment's Euclidean length.
func (s Segment) Length() float64 { return s.A.Dist(s.B) }

// CandidateEdges returns every edge of the complete graph over nodes in
// generation order: (0,1), (0,2), ..., (1,2), ...
func CandidateEdges(nodes []Point) []Edge {
	n := len(nodes)
	if n < 2 {
		return nil
	}
	edges := make([]Edge, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			edges = append(edges, Edge{Weight: nodes[i].Dist(nodes[j]), U: i, V: j})
		}
	}
	return edges
}

// ComputeMST runs Kruskal's algorithm over the complete Euclidean graph on
// nodes. Edges of equal weight keep their generation order. The result holds
// max(len(nodes)-1, 0) segments in acceptance order.
func ComputeMST(nodes []Point) []Segment {
	edges := CandidateEdges(nodes)
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Weight < edges[j].Weight
	})

	uf := NewUnionFind(len(nodes))
	tree := make([]Segment, 0, max(len(nodes)-1, 0))
	for _, e := range edges {
		if len(tree) == len(nodes)-1 {
			break
		}
		if !uf.Union(e.U, e.V) {
			continue
		}
		tree = append(tree, Segment{A: nodes[e.U], B: nodes[e.V]})
	}
	return tree
}

// TotalWeight sums the lengths of segs.
func TotalWeight(segs []Segment) float64 {
	var total float64
	for _, s := range segs {
		total += s.Length()
	}
	return total
}

// Flatten lays segments out as the point sequence a0, b0, a1, b1, ...
// which is how the reference solution is drawn and scored.
func Flatten(segs []Segment) []Point {
	pts := make([]Point, 0, 2*len(segs))
	for _, s := range segs {
		pts = append(pts, s.A, s.B)
	}
	return pts
}
