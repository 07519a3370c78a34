package framesync

import (
	"context"
	"errors"
	"fmt"
)

// Observer is invoked by the pump once per cycle, strictly before that
// cycle's render step and never concurrently with one.
type Observer interface {
	// UpdateScene is the application's safe window for scene mutation.
	UpdateScene(ctx context.Context) error
	// AppShutdown reports total system shutdown. Rendering resources are
	// already released; only application-owned resources may be touched.
	AppShutdown()
}

// SceneUpdater is the stock Observer. Each cycle it flushes pending resizes,
// opens the notifier window, runs Update, drains the queue and closes the
// window, which dispatches bounds then data callbacks.
type SceneUpdater struct {
	Resize   *ResizeCoordinator
	Notifier *Notifier
	Queue    *Queue

	// Update performs or triggers the application's own mutations for the
	// frame. Optional.
	Update func(ctx context.Context, n *Notifier) error
	// OnShutdown releases application-owned resources. Optional.
	OnShutdown func()
}

// NewSceneUpdater wires a resize coordinator, notifier and queue behind
// window, which is normally the pump that will invoke the updater.
func NewSceneUpdater(window Window, sink ErrorSink) *SceneUpdater {
	if sink == nil {
		sink = logSink{}
	}
	n := NewNotifier(WithParentWindow(window), WithNotifierErrorSink(sink))
	return &SceneUpdater{
		Resize:   NewResizeCoordinator(window),
		Notifier: n,
		Queue:    NewQueue(n, WithQueueErrorSink(sink)),
	}
}

func (u *SceneUpdater) UpdateScene(ctx context.Context) (err error) {
	if u.Resize != nil {
		if err := u.Resize.FlushPendingResize(); err != nil {
			return fmt.Errorf("flush resize: %w", err)
		}
	}
	if err := u.Notifier.Open(); err != nil {
		return fmt.Errorf("open window: %w", err)
	}
	defer func() {
		if cerr := u.Notifier.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close window: %w", cerr))
		}
	}()

	var errs []error
	if u.Update != nil {
		if err := u.Update(ctx, u.Notifier); err != nil {
			errs = append(errs, fmt.Errorf("update: %w", err))
		}
	}
	if u.Queue != nil {
		if _, err := u.Queue.DrainAndApply(); err != nil {
			errs = append(errs, fmt.Errorf("drain queue: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (u *SceneUpdater) AppShutdown() {
	if u.OnShutdown != nil {
		u.OnShutdown()
	}
}
