package scene

import (
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/framesync"
)

func TestBoxSettersRequireWindow(t *testing.T) {
	n := framesync.NewNotifier()
	b := NewBox("a", Rect{0, 0, 10, 10}, gg.Red)

	assert.ErrorIs(t, b.SetTranslation(n, 5, 5), framesync.ErrWindowClosed)
	assert.ErrorIs(t, b.SetFill(n, gg.Blue), framesync.ErrWindowClosed)
	assert.Equal(t, Rect{0, 0, 10, 10}, b.Rect())
	assert.Equal(t, gg.Red, b.Fill())
}

func TestBoxMarksWatchers(t *testing.T) {
	n := framesync.NewNotifier()
	b := NewBox("a", Rect{0, 0, 10, 10}, gg.Red)

	var got []string
	bounds := OnBounds(func(node framesync.NodeHandle) {
		got = append(got, "bounds:"+node.(*Box).Name())
	})
	data := OnData(func(node framesync.NodeHandle) {
		got = append(got, "data:"+node.(*Box).Name())
	})
	assert.True(t, b.WatchBounds(bounds))
	assert.False(t, b.WatchBounds(bounds))
	b.WatchData(data)

	require.NoError(t, n.Open())
	require.NoError(t, b.SetFill(n, gg.Blue))
	require.NoError(t, b.SetTranslation(n, 1, 2))
	require.NoError(t, b.SetTranslation(n, 3, 4))
	assert.Empty(t, got, "callbacks wait for the window to close")
	require.NoError(t, n.Close())

	assert.Equal(t, []string{"bounds:a", "data:a"}, got)
	assert.Equal(t, Rect{3, 4, 10, 10}, b.Rect())

	b.UnwatchBounds(bounds)
	b.UnwatchData(data)
	got = nil
	require.NoError(t, n.Open())
	require.NoError(t, b.SetTranslation(n, 0, 0))
	require.NoError(t, n.Close())
	assert.Empty(t, got)
}

func TestGraphTracksExtent(t *testing.T) {
	a := NewBox("a", Rect{0, 0, 10, 10}, gg.Red)
	b := NewBox("b", Rect{20, 20, 5, 5}, gg.Green)
	g := NewGraph(a, b)

	assert.Equal(t, Rect{0, 0, 25, 25}, g.Extent())
	assert.Same(t, b, g.Find("b"))
	assert.Nil(t, g.Find("missing"))
	assert.False(t, g.Add(a))

	n := framesync.NewNotifier()
	before := g.Recomputes()
	require.NoError(t, n.Open())
	require.NoError(t, b.SetTranslation(n, 40, 0))
	require.NoError(t, a.SetTranslation(n, -10, 0))
	require.NoError(t, n.Close())

	assert.Equal(t, Rect{-10, 0, 55, 10}, g.Extent())
	assert.Equal(t, before+2, g.Recomputes(), "one recompute per marked node")

	require.True(t, g.Remove(b))
	assert.Equal(t, []*Box{a}, g.Nodes())
	assert.Equal(t, Rect{-10, 0, 10, 10}, g.Extent())
}

func TestMoveEventsConglomerate(t *testing.T) {
	n := framesync.NewNotifier()
	q := framesync.NewQueue(n)
	b := NewBox("a", Rect{0, 0, 10, 10}, gg.Red)

	require.NoError(t, q.Enqueue(b.MoveEvent(n, 1, 1)))
	require.NoError(t, q.Enqueue(b.FillEvent(n, gg.Blue)))
	require.NoError(t, q.Enqueue(b.MoveEvent(n, 2, 2)))
	assert.Equal(t, 2, q.Len())

	require.NoError(t, n.Open())
	applied, err := q.DrainAndApply()
	require.NoError(t, err)
	require.NoError(t, n.Close())

	assert.Equal(t, 2, applied)
	assert.Equal(t, Rect{2, 2, 10, 10}, b.Rect())
	assert.Equal(t, gg.Blue, b.Fill())
}

func TestRectUnion(t *testing.T) {
	assert.Equal(t, Rect{1, 1, 2, 2}, Rect{}.Union(Rect{1, 1, 2, 2}))
	assert.Equal(t, Rect{1, 1, 2, 2}, Rect{1, 1, 2, 2}.Union(Rect{}))
	assert.True(t, Rect{0, 0, 0, 5}.Empty())
}
