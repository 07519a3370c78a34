// Package benchmarks provides dispatch benchmarks for the bounds-change
// notifier.
package benchmarks

import (
	"fmt"
	"testing"

	"github.com/comalice/framesync"
)

func BenchmarkNotifierWindow(b *testing.B) {
	for _, marks := range []int{1, 64, 1024} {
		b.Run(fmt.Sprintf("marks=%d", marks), func(b *testing.B) {
			n := framesync.NewNotifier()
			nodes := GenNodes(marks)
			l := &CountingListener{}
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := n.Open(); err != nil {
					b.Fatal(err)
				}
				for _, node := range nodes {
					_ = n.MarkBoundsChanged(node, l)
					_ = n.MarkDataChanged(node, l)
				}
				if err := n.Close(); err != nil {
					b.Fatal(err)
				}
			}
			b.StopTimer()
			if got := l.Bounds.Load(); got != int64(marks*b.N) {
				b.Fatalf("expected %d bounds callbacks, got %d", marks*b.N, got)
			}
		})
	}
}

// BenchmarkNotifierDuplicateMarks measures dedupe when every node is marked
// repeatedly within one window.
func BenchmarkNotifierDuplicateMarks(b *testing.B) {
	n := framesync.NewNotifier()
	node := &Node{}
	l := &CountingListener{}
	if err := n.Open(); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = n.MarkBoundsChanged(node, l)
	}
	b.StopTimer()
	_ = n.Close()
	if l.Bounds.Load() != 1 {
		b.Fatalf("expected a single callback, got %d", l.Bounds.Load())
	}
}
