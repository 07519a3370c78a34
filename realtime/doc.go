// Package realtime provides a fixed-rate wake source for a framesync.Pump.
//
// A Driver ticks at a configured rate. On every tick it:
//  1. Collects the update events submitted since the previous tick
//  2. Orders them by priority, then submission order
//  3. Enqueues them into the scene's update queue
//  4. Requests a frame (or a re-present of the last one while paused)
//
// Events submitted between two ticks therefore reach the queue together and
// apply in the same safe window, in a deterministic order regardless of which
// goroutine submitted them.
//
// # Example Usage
//
//	pump := framesync.NewPump(canvas)
//	upd := framesync.NewSceneUpdater(pump, nil)
//	pump.SetObserver(upd)
//	drv := realtime.NewDriver(pump, upd.Queue, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 FPS
//	})
//	pump.Start(ctx)
//	drv.Start(ctx)
//	drv.Submit(box.MoveEvent(upd.Notifier, x, y))
//
// # Trade-offs vs Direct Enqueue
//
// Submitting through the driver adds up to one tick of latency but batches
// producers onto tick boundaries. Producers that need the lowest latency may
// call Queue.Enqueue directly and let the next tick pick the mutation up.
//
// # Event Ordering Guarantees
//
// Events are ordered using:
//  1. Priority (higher priority processed first)
//  2. Sequence number (FIFO for same priority)
//
// Conglomeration happens in the queue, after ordering, so the surviving
// conglomerating event is the last one in that order.
package realtime
