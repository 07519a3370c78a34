package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/gg"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/framesync"
	"github.com/comalice/framesync/config"
	"github.com/comalice/framesync/internal/extensibility"
	"github.com/comalice/framesync/internal/production"
	"github.com/comalice/framesync/realtime"
	"github.com/comalice/framesync/scene"
	"github.com/comalice/framesync/surface"
)

var palette = []gg.RGBA{gg.Red, gg.Green, gg.Blue, gg.Hex("#ff9900")}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg := config.Default()
	if opts.config != "" {
		var err error
		if cfg, err = config.Load(opts.config); err != nil {
			return err
		}
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	framesync.SetLogger(logger)
	defer framesync.SetLogger(nil)

	mover := scene.NewBox("mover", scene.Rect{X: 0, Y: 40, W: 60, H: 60}, gg.Red)
	blinker := scene.NewBox("blinker", scene.Rect{X: 40, Y: 140, W: 80, H: 40}, palette[0])
	graph := scene.NewGraph(mover, blinker)
	blinker.WatchData(scene.OnData(func(n framesync.NodeHandle) {
		logger.Debug("demo: recoloured", "node", n)
	}))

	canvas := surface.New(graph, cfg.Width, cfg.Height, surface.WithBackground(cfg.BackgroundColor()))

	transitions := make(chan framesync.Transition, 256)
	pump := framesync.NewPump(canvas,
		framesync.WithRearm(cfg.Rearm),
		framesync.WithTransitionPublisher(production.NewChannelPublisher(transitions)),
	)
	upd := framesync.NewSceneUpdater(pump, nil)
	pump.SetObserver(upd)
	upd.Resize.Register(canvas)
	upd.Resize.OnSurfaceResized(0, 0, cfg.Width, cfg.Height)

	drv := realtime.NewDriver(pump, upd.Queue, realtime.Config{TickRate: cfg.TickRate(), Logger: logger})
	timer := extensibility.NewTimerSource(animate(upd.Notifier, mover, blinker, float64(cfg.Width)), cfg.TickRate())
	defer timer.Stop()
	src := extensibility.NewChannelSource(timer.Events(), extensibility.AllowFields(scene.FieldTranslation, scene.FieldFill))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := pump.Run(gctx)
		cancel()
		return ignoreCanceled(err)
	})
	g.Go(func() error {
		if err := drv.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return drv.Stop()
	})
	g.Go(func() error {
		return ignoreCanceled(src.Forward(gctx, upd.Queue))
	})
	g.Go(func() error {
		var n int
		for {
			select {
			case <-gctx.Done():
				logger.Info("demo: transitions observed", "count", n)
				return nil
			case t := <-transitions:
				n++
				logger.Debug("demo: transition", "transition", t.String(), "frame", t.Frame)
			}
		}
	})
	if opts.frames > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(5 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if pump.Stats().Rendered >= opts.frames {
						cancel()
						return nil
					}
				}
			}
		})
	}
	if cfg.Stats.Dir != "" {
		persister, err := production.NewPersister(cfg.Stats.Dir, cfg.Stats.Format)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return production.SaveEvery(gctx, persister, "demo", pump, cfg.StatsInterval())
		})
	}
	if opts.watch && opts.config != "" {
		g.Go(func() error {
			return config.Watch(gctx, opts.config, func(c config.Config, err error) {
				if err != nil {
					logger.Warn("demo: config reload", "err", err)
					return
				}
				if err := drv.SetTickRate(c.TickRate()); err != nil {
					logger.Warn("demo: config reload", "err", err)
					return
				}
				logger.Info("demo: config reloaded", "frame_rate", c.FrameRate)
			})
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	st := pump.Stats()
	fmt.Fprintf(out, "state=%s frames=%d rendered=%d presented=%d failed=%d halts=%d\n",
		st.State, st.Frames, st.Rendered, st.Presented, st.Failed, st.Halts)

	if opts.out != "" {
		if err := writeFrame(canvas, opts.out, opts.thumbnail); err != nil {
			return err
		}
	}
	if opts.dot != "" {
		dot := (&production.DOTExporter{}).ExportDOT(framesync.PipelineEdges(), st.State)
		if err := os.WriteFile(opts.dot, []byte(dot), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.dot, err)
		}
	}
	return nil
}

// animate slides mover across the surface and cycles blinker through the
// palette every eighth tick.
func animate(n *framesync.Notifier, mover, blinker *scene.Box, width float64) func(uint64) framesync.UpdateEvent {
	return func(tick uint64) framesync.UpdateEvent {
		if tick%8 == 0 {
			return blinker.FillEvent(n, palette[(tick/8)%uint64(len(palette))])
		}
		r := mover.Rect()
		span := math.Max(width-r.W, 1)
		return mover.MoveEvent(n, math.Mod(float64(tick)*4, span), r.Y)
	}
}

func writeFrame(c *surface.Canvas, path string, thumbnail int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if thumbnail <= 0 {
		return c.EncodePNG(f)
	}
	w, h := c.Size()
	img, err := c.Snapshot(thumbnail, max(1, thumbnail*h/w))
	if err != nil {
		return err
	}
	return png.Encode(f, img)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
