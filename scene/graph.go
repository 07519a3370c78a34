package scene

import (
	"sync"

	"github.com/comalice/framesync"
)

// Graph is an ordered set of boxes drawn back to front. It watches the
// bounds of every member and keeps their union up to date.
type Graph struct {
	nodes framesync.Registry[*Box]

	mu         sync.Mutex
	extent     Rect
	recomputes int
}

func NewGraph(boxes ...*Box) *Graph {
	g := &Graph{}
	for _, b := range boxes {
		g.Add(b)
	}
	return g
}

// Add appends b on top of the graph.
func (g *Graph) Add(b *Box) bool {
	if !g.nodes.Register(b) {
		return false
	}
	b.WatchBounds(g)
	g.recompute()
	return true
}

func (g *Graph) Remove(b *Box) bool {
	if !g.nodes.Unregister(b) {
		return false
	}
	b.UnwatchBounds(g)
	g.recompute()
	return true
}

// Nodes returns the boxes in draw order.
func (g *Graph) Nodes() []*Box {
	return g.nodes.Snapshot()
}

// Find returns the first box named name, or nil.
func (g *Graph) Find(name string) *Box {
	for _, b := range g.nodes.Snapshot() {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// Extent is the union of all member rectangles as of the last bounds
// callback.
func (g *Graph) Extent() Rect {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.extent
}

// Recomputes counts extent recalculations.
func (g *Graph) Recomputes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.recomputes
}

func (g *Graph) OnBoundsChange(framesync.NodeHandle) {
	g.recompute()
}

func (g *Graph) recompute() {
	var r Rect
	for _, b := range g.nodes.Snapshot() {
		r = r.Union(b.Rect())
	}
	g.mu.Lock()
	g.extent = r
	g.recomputes++
	g.mu.Unlock()
}
