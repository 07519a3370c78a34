package extensibility

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/comalice/framesync"
	"github.com/comalice/framesync/testutil"
)

// An animation timer feeds a guarded channel source, which feeds the queue
// of a running pump.
func TestTimerSourceDrivesPump(t *testing.T) {
	surface := testutil.NewSurface(nil)
	pump := framesync.NewPump(surface, framesync.WithRearm(true))
	upd := framesync.NewSceneUpdater(pump, nil)
	pump.SetObserver(upd)

	x := &testutil.Node{Name: "x"}
	var position atomic.Uint64
	timer := NewTimerSource(func(n uint64) framesync.UpdateEvent {
		return Instrument(nil, framesync.Conglomerate(x, "translation", func() error {
			position.Store(n)
			return nil
		}))
	}, 2*time.Millisecond)
	defer timer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := NewChannelSource(timer.Events(), AllowFields("translation"))
	go src.Forward(ctx, upd.Queue)

	if err := pump.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer pump.Shutdown()

	deadline := time.After(2 * time.Second)
	for position.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("animation stalled at %d", position.Load())
		case <-time.After(time.Millisecond):
		}
	}
	if accepted, _ := src.Counts(); accepted < 3 {
		t.Errorf("expected at least 3 forwarded events, got %d", accepted)
	}
}
