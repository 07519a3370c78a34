package production

import (
	"context"
	"sync/atomic"

	"github.com/comalice/framesync"
)

// ChannelPublisher forwards pipeline transitions to a Go channel.
// Non-blocking publish with drop on backpressure, so it is safe to install
// with framesync.WithTransitionPublisher.
type ChannelPublisher struct {
	ch      chan<- framesync.Transition
	dropped atomic.Uint64
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- framesync.Transition) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, t framesync.Transition) error {
	select {
	case p.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.dropped.Add(1)
		return nil
	}
}

// Dropped returns how many transitions were discarded on a full channel.
func (p *ChannelPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
