package session

import (
	"fmt"
	"image/color"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/edumag/edumag/internal/input"
	"github.com/edumag/edumag/internal/monitoring"
	"github.com/edumag/edumag/internal/mst"
	"github.com/edumag/edumag/internal/vision"
)

var (
	nodeColor     = color.RGBA{R: 255, A: 255}
	selectedColor = color.RGBA{B: 255, A: 255}
	routeColor    = color.RGBA{G: 255, A: 255}
)

// routeStep draws connections as disjoint pairs.
const routeStep = 2

// RouteDesigner is the network game: the operator links the generated
// nodes by driving the marker to one node, pressing A, then to another and
// pressing A again. The route is scored against the minimum spanning tree.
type RouteDesigner struct {
	overlay    *vision.Overlay
	difficulty mst.Difficulty
	tolerance  float64
	rng        *rand.Rand
	params     mst.GenerateParams

	mu           sync.Mutex
	nodes        []mst.Point
	connections  []mst.Point
	selected     int
	showSolution bool
	lastScore    int
}

func NewRouteDesigner(d mst.Difficulty, tolerance float64, rng *rand.Rand) *RouteDesigner {
	return &RouteDesigner{
		overlay:    vision.NewOverlay(),
		difficulty: d,
		tolerance:  tolerance,
		rng:        rng,
		params:     mst.DefaultGenerateParams(),
		selected:   -1,
	}
}

func (r *RouteDesigner) Kind() Kind               { return KindRouteDesigner }
func (r *RouteDesigner) Overlay() *vision.Overlay { return r.overlay }
func (r *RouteDesigner) ManualField() bool        { return true }

// Start lays out a fresh set of nodes. A layout that could not honour the
// node spacing is still played.
func (r *RouteDesigner) Start(time.Time) error {
	nodes, err := mst.GenerateNodes(r.rng, r.difficulty.NodeCount(), r.params)
	if len(nodes) == 0 {
		return fmt.Errorf("session: no route nodes placed: %v", err)
	}
	if err != nil {
		monitoring.Logf("session: %v; playing %d nodes", err, len(nodes))
	}
	r.SetNodes(nodes)
	return nil
}

// SetNodes replaces the layout and clears the route.
func (r *RouteDesigner) SetNodes(nodes []mst.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = append([]mst.Point(nil), nodes...)
	marks := make([]vision.Mark, len(nodes))
	for i, n := range nodes {
		marks[i] = vision.Mark{At: pixel(n), Color: nodeColor}
	}
	r.overlay.Clear()
	r.overlay.SetPoints(marks)
	r.resetLocked()
}

func (r *RouteDesigner) resetLocked() {
	r.connections = nil
	r.selected = -1
	r.showSolution = false
	r.lastScore = 0
	r.overlay.SetOutlines(nil)
	r.overlay.SetLine(nil, routeStep)
}

func (r *RouteDesigner) Tick(tc TickContext) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range tc.Input.Pressed {
		switch b {
		case input.ButtonA:
			if tc.Position.Found {
				r.pickLocked(mst.Point{X: float64(tc.Position.X), Y: float64(tc.Position.Y)})
			}
		case input.ButtonB:
			r.undoLocked()
		case input.ButtonStart:
			r.resetLocked()
		}
	}
	return false
}

// Pick selects the node under p, or connects the selected node to it.
func (r *RouteDesigner) Pick(p mst.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pickLocked(p)
}

func (r *RouteDesigner) pickLocked(p mst.Point) {
	hit := -1
	for i, n := range r.nodes {
		if p.Dist(n) <= r.tolerance {
			hit = i
		}
	}
	if hit < 0 {
		return
	}
	if r.selected < 0 {
		r.selected = hit
		r.overlay.SetOutlines([]vision.Mark{{At: pixel(r.nodes[hit]), Color: selectedColor}})
		return
	}
	if hit == r.selected {
		return
	}
	r.connections = append(r.connections, r.nodes[r.selected], r.nodes[hit])
	r.selected = -1
	r.overlay.SetOutlines(nil)
	r.drawLocked()
}

// Undo drops the selection, or the newest connection when nothing is
// selected.
func (r *RouteDesigner) Undo() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.undoLocked()
}

func (r *RouteDesigner) undoLocked() {
	if r.selected >= 0 {
		r.selected = -1
		r.overlay.SetOutlines(nil)
		return
	}
	if len(r.connections) >= 2 {
		r.connections = r.connections[:len(r.connections)-2]
	}
	r.drawLocked()
}

// ToggleSolution switches the drawn line between the operator's route and
// the minimum spanning tree, and reports whether the tree is now shown.
func (r *RouteDesigner) ToggleSolution() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showSolution = !r.showSolution
	r.drawLocked()
	return r.showSolution
}

func (r *RouteDesigner) drawLocked() {
	pts := r.connections
	if r.showSolution {
		pts = mst.Flatten(mst.ComputeMST(r.nodes))
	}
	marks := make([]vision.Mark, len(pts))
	for i, p := range pts {
		marks[i] = vision.Mark{At: pixel(p), Color: routeColor}
	}
	r.overlay.SetLine(marks, routeStep)
}

// Check scores the route built so far as a percentage. An empty route
// keeps the previous score.
func (r *RouteDesigner) Check() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.connections) > 0 {
		r.lastScore = mst.ScoreRoute(r.connections, r.nodes, r.difficulty)
	}
	return r.lastScore
}

// Nodes returns the current layout.
func (r *RouteDesigner) Nodes() []mst.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mst.Point(nil), r.nodes...)
}

// Connections returns the route as consecutive endpoint pairs.
func (r *RouteDesigner) Connections() []mst.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mst.Point(nil), r.connections...)
}

// Selected is the index of the selected node, or -1.
func (r *RouteDesigner) Selected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

func (r *RouteDesigner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.connections) > 0 {
		r.lastScore = mst.ScoreRoute(r.connections, r.nodes, r.difficulty)
	}
	r.selected = -1
	r.showSolution = false
	r.overlay.Clear()
}

func (r *RouteDesigner) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Result{
		Kind:   KindRouteDesigner,
		Score:  r.lastScore,
		Detail: fmt.Sprintf("%s, %d nodes, %d connections", r.difficulty, len(r.nodes), len(r.connections)/2),
	}
}
