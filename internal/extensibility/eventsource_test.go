package extensibility

import (
	"context"
	"testing"
	"time"

	"github.com/comalice/framesync"
	"github.com/comalice/framesync/testutil"
)

func nop() error { return nil }

func TestChannelSource(t *testing.T) {
	ch := make(chan framesync.UpdateEvent, 4)
	s := NewChannelSource(ch, nil)
	if s.Events() != (<-chan framesync.UpdateEvent)(ch) {
		t.Error("Events() should return ch")
	}

	q := framesync.NewQueue(&testutil.Window{})
	ch <- framesync.OneShot(nil, nop)
	ch <- framesync.OneShot(nil, nil) // invalid, rejected by the queue
	ch <- framesync.OneShot(nil, nop)
	close(ch)

	if err := s.Forward(context.Background(), q); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	accepted, rejected := s.Counts()
	if accepted != 2 || rejected != 1 {
		t.Errorf("expected 2 accepted, 1 rejected; got %d, %d", accepted, rejected)
	}
	if q.Len() != 2 {
		t.Errorf("expected 2 queued events, got %d", q.Len())
	}
}

func TestChannelSource_Guard(t *testing.T) {
	x := &testutil.Node{Name: "x"}
	ch := make(chan framesync.UpdateEvent, 4)
	s := NewChannelSource(ch, AllowFields("translation"))
	q := framesync.NewQueue(&testutil.Window{})

	ch <- framesync.Conglomerate(x, "translation", nop)
	ch <- framesync.Conglomerate(x, "color", nop)
	ch <- framesync.OneShot(x, nop)
	close(ch)

	if err := s.Forward(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if accepted, rejected := s.Counts(); accepted != 1 || rejected != 2 {
		t.Errorf("expected 1 accepted, 2 rejected; got %d, %d", accepted, rejected)
	}
}

func TestChannelSource_Cancel(t *testing.T) {
	s := NewChannelSource(make(chan framesync.UpdateEvent), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Forward(ctx, framesync.NewQueue(&testutil.Window{})); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTimerSource(t *testing.T) {
	x := &testutil.Node{Name: "x"}
	s := NewTimerSource(func(n uint64) framesync.UpdateEvent {
		return framesync.Conglomerate(x, "frame", nop)
	}, 5*time.Millisecond)
	defer s.Stop()

	// Should receive at least two events
	for i := 0; i < 2; i++ {
		select {
		case ev := <-s.Events():
			if ev.Field != "frame" || ev.Target != x {
				t.Errorf("wrong event: %+v", ev)
			}
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("no event %d received", i)
		}
	}
}

func TestTimerSource_Stop(t *testing.T) {
	s := NewTimerSource(func(uint64) framesync.UpdateEvent { return framesync.OneShot(nil, nop) }, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	s.Stop()
	for range s.Events() {
		// drain until closed
	}
	s.Stop()
}
