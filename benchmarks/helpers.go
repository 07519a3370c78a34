// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"sync/atomic"

	"github.com/comalice/framesync"
)

// Node is a minimal NodeHandle that forwards callbacks straight to the
// listener.
type Node struct{ ID int }

func (n *Node) NotifyBoundsChanged(l framesync.BoundsListener) { l.OnBoundsChange(n) }
func (n *Node) NotifyDataChanged(l framesync.DataListener)     { l.OnDataChange(n) }

// CountingListener counts callbacks.
type CountingListener struct {
	Bounds atomic.Int64
	Data   atomic.Int64
}

func (c *CountingListener) OnBoundsChange(framesync.NodeHandle) { c.Bounds.Add(1) }
func (c *CountingListener) OnDataChange(framesync.NodeHandle)   { c.Data.Add(1) }

// Window is an always-open gate.
type Window struct{}

func (Window) IsOpen() bool { return true }

// NullSurface renders nothing and never fails.
type NullSurface struct {
	disposed atomic.Bool
}

func (s *NullSurface) RenderFrame() error      { return nil }
func (s *NullSurface) PresentLastFrame() error { return nil }
func (s *NullSurface) SwapBuffers()            {}
func (s *NullSurface) IsDisposed() bool        { return s.disposed.Load() }
func (s *NullSurface) Dispose() error {
	s.disposed.Store(true)
	return nil
}

// GenNodes creates n distinct nodes.
func GenNodes(n int) []*Node {
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = &Node{ID: i}
	}
	return nodes
}
