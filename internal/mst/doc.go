// Package mst builds Euclidean minimum spanning trees over small node sets
// and scores operator-drawn routes against them.
//
// Responsibilities: union-find, Kruskal's algorithm over the complete graph,
// route clean-up and route scoring, node generation for the route game.
// Key types: Point, Edge, Segment, Difficulty.
//
// The package is pure data in, data out. It has no knowledge of cameras,
// overlays or sessions.
package mst
