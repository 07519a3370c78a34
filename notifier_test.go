package framesync_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/comalice/framesync"
	"github.com/comalice/framesync/testutil"
)

func TestNotifierWindowExclusivity(t *testing.T) {
	rec := &testutil.Recorder{}
	n := NewNotifier()
	node := &testutil.Node{Name: "x"}
	l := &testutil.Listener{Name: "l", Rec: rec}

	assert.ErrorIs(t, n.MarkBoundsChanged(node, l), ErrWindowClosed)
	assert.ErrorIs(t, n.MarkDataChanged(node, l), ErrWindowClosed)
	assert.EqualError(t, n.MarkBoundsChanged(node, l), "notifier window closed")

	require.NoError(t, n.Open())
	assert.True(t, n.IsOpen())
	assert.NoError(t, n.MarkBoundsChanged(node, l))
	require.NoError(t, n.Close())
	assert.False(t, n.IsOpen())

	assert.Equal(t, []string{"bounds:l:x"}, rec.Lines())
	assert.ErrorIs(t, n.Close(), ErrWindowClosed)
}

func TestNotifierOpen(t *testing.T) {
	t.Run("twice", func(t *testing.T) {
		n := NewNotifier()
		require.NoError(t, n.Open())
		assert.ErrorIs(t, n.Open(), ErrWindowOpen)
	})

	t.Run("parent closed", func(t *testing.T) {
		parent := &testutil.Window{}
		n := NewNotifier(WithParentWindow(parent))
		assert.ErrorIs(t, n.Open(), ErrWindowClosed)
		parent.Set(true)
		assert.NoError(t, n.Open())
	})
}

func TestNotifierPhaseOrdering(t *testing.T) {
	rec := &testutil.Recorder{}
	n := NewNotifier()
	a := &testutil.Node{Name: "a"}
	b := &testutil.Node{Name: "b"}
	l1 := &testutil.Listener{Name: "l1", Rec: rec}
	l2 := &testutil.Listener{Name: "l2", Rec: rec}

	require.NoError(t, n.Open())
	require.NoError(t, n.MarkDataChanged(a, l1))
	require.NoError(t, n.MarkBoundsChanged(a, l1))
	require.NoError(t, n.MarkDataChanged(b, l2))
	require.NoError(t, n.MarkBoundsChanged(b, l2))
	require.NoError(t, n.MarkBoundsChanged(a, l1)) // duplicate
	require.NoError(t, n.Close())

	assert.Equal(t, []string{
		"bounds:l1:a",
		"bounds:l2:b",
		"data:l1:a",
		"data:l2:b",
	}, rec.Lines())
}

func TestNotifierCascades(t *testing.T) {
	t.Run("data mark from bounds callback runs in the same window", func(t *testing.T) {
		rec := &testutil.Recorder{}
		n := NewNotifier()
		a := &testutil.Node{Name: "a"}
		b := &testutil.Node{Name: "b"}
		data := &testutil.Listener{Name: "d", Rec: rec}
		bounds := &testutil.Listener{Name: "b", Rec: rec, OnBound: func(NodeHandle) {
			require.NoError(t, n.MarkDataChanged(b, data))
		}}

		require.NoError(t, n.Open())
		require.NoError(t, n.MarkBoundsChanged(a, bounds))
		require.NoError(t, n.Close())

		assert.Equal(t, []string{"bounds:b:a", "data:d:b"}, rec.Lines())
	})

	t.Run("bounds mark from data callback is carried to the next window", func(t *testing.T) {
		rec := &testutil.Recorder{}
		n := NewNotifier()
		a := &testutil.Node{Name: "a"}
		bounds := &testutil.Listener{Name: "b", Rec: rec}
		data := &testutil.Listener{Name: "d", Rec: rec, OnData: func(node NodeHandle) {
			require.NoError(t, n.MarkBoundsChanged(node, bounds))
		}}

		require.NoError(t, n.Open())
		require.NoError(t, n.MarkDataChanged(a, data))
		require.NoError(t, n.Close())
		assert.Equal(t, []string{"data:d:a"}, rec.Lines())

		pb, pd := n.Pending()
		assert.Equal(t, 1, pb)
		assert.Equal(t, 0, pd)

		require.NoError(t, n.Open())
		require.NoError(t, n.Close())
		assert.Equal(t, []string{"data:d:a", "bounds:b:a"}, rec.Lines())
	})

	t.Run("runaway re-marking is capped and reported", func(t *testing.T) {
		rec := &testutil.Recorder{}
		sink := &testutil.Sink{}
		n := NewNotifier(WithMaxCascade(3), WithNotifierErrorSink(sink))
		a := &testutil.Node{Name: "a"}
		var l *testutil.Listener
		l = &testutil.Listener{Name: "loop", Rec: rec, OnBound: func(node NodeHandle) {
			_ = n.MarkBoundsChanged(node, l)
		}}

		require.NoError(t, n.Open())
		require.NoError(t, n.MarkBoundsChanged(a, l))
		require.NoError(t, n.Close())

		assert.Len(t, rec.Lines(), 3)
		require.Len(t, sink.Errors(), 1)
		var cbErr *CallbackError
		require.ErrorAs(t, sink.Errors()[0], &cbErr)
		assert.Equal(t, PhaseBounds, cbErr.Phase)
		pb, _ := n.Pending()
		assert.Equal(t, 1, pb)
	})
}

type panicListener struct{}

func (panicListener) OnBoundsChange(NodeHandle) { panic("listener exploded") }

func TestNotifierRecoversCallbackPanics(t *testing.T) {
	rec := &testutil.Recorder{}
	sink := &testutil.Sink{}
	n := NewNotifier(WithNotifierErrorSink(sink))
	a := &testutil.Node{Name: "a"}
	ok := &testutil.Listener{Name: "ok", Rec: rec}

	require.NoError(t, n.Open())
	require.NoError(t, n.MarkBoundsChanged(a, &panicListener{}))
	require.NoError(t, n.MarkBoundsChanged(a, ok))
	require.NoError(t, n.Close())

	assert.Equal(t, []string{"bounds:ok:a"}, rec.Lines())
	require.Len(t, sink.Errors(), 1)
	assert.True(t, strings.Contains(sink.Errors()[0].Error(), "listener exploded"))
}

func TestNotifierRejectsNil(t *testing.T) {
	n := NewNotifier()
	require.NoError(t, n.Open())
	assert.ErrorIs(t, n.MarkBoundsChanged(nil, &testutil.Listener{}), ErrInvalidListener)
	assert.ErrorIs(t, n.MarkDataChanged(&testutil.Node{}, nil), ErrInvalidListener)
}

// A queued event applied inside the window may mark its target, and the
// resulting callback fires in the same frame.
func TestNotifierQueueFeedback(t *testing.T) {
	rec := &testutil.Recorder{}
	n := NewNotifier()
	q := NewQueue(n)
	x := &testutil.Node{Name: "x"}
	l := &testutil.Listener{Name: "l", Rec: rec}

	require.NoError(t, q.Enqueue(Conglomerate(x, "translation", func() error {
		return n.MarkBoundsChanged(x, l)
	})))

	require.NoError(t, n.Open())
	_, err := q.DrainAndApply()
	require.NoError(t, err)
	require.NoError(t, n.Close())

	assert.Equal(t, []string{"bounds:l:x"}, rec.Lines())
}
