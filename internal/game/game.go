// Package game drives the fixed-rate loop: input, physics, drawing.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fly/internal/appearance"
	"fly/internal/config"
	"fly/internal/ecs"
	"fly/internal/factory"
	"fly/internal/logging"
	"fly/internal/physics"
	"fly/internal/render"
	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
)

// Options are the optional parts of a Game.
type Options struct {
	// Session names the run in logs and the run log.
	Session string
	// Spectator receives every frame alongside the terminal.
	Spectator render.Surface
	// SaveRunLog appends a summary to runs.jsonl when Run returns.
	SaveRunLog bool
}

// resizer is implemented by spectator surfaces that mirror the terminal
// viewport.
type resizer interface {
	Resize(w, h float64)
}

// Game is the top-level orchestrator for one screen.
type Game struct {
	screen  tcell.Screen
	cfg     *config.Config
	opts    Options
	logger  *zap.Logger
	term    *render.Terminal
	surface render.Surface

	world    *ecs.World
	engine   *physics.Engine
	camera   *render.Camera
	controls *Controls
	sched    *Scheduler
	runLog   RunLog
}

// New creates a Game on an initialised screen and spawns the scene.
func New(screen tcell.Screen, cfg *config.Config, logger *zap.Logger, opts Options) (*Game, error) {
	g := &Game{
		screen: screen,
		cfg:    cfg,
		opts:   opts,
		logger: logging.OrNop(logger).With(zap.String("session", opts.Session)),
		term:   render.NewTerminal(screen, cfg.Terminal),
		runLog: RunLog{Session: opts.Session, Started: time.Now()},
	}
	g.surface = g.term
	if opts.Spectator != nil {
		g.surface = render.Multi(g.term, opts.Spectator)
	}
	if err := g.reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// reset throws away the world and builds the configured scene again.
func (g *Game) reset() error {
	engine := physics.New(g.cfg.Physics, g.logger)
	meshes := resource.NewPool()
	camera := render.NewCamera(g.cfg.Camera, meshes, g.logger)
	appearance.RegisterAll(camera)

	world := ecs.NewWorld()
	player, err := factory.New(engine, meshes).NewScene(world, g.cfg.Scene)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	// Keep the ticks counted so far across resets.
	var ticks uint64
	if g.sched != nil {
		ticks = g.sched.ticks
	}
	g.world, g.engine, g.camera = world, engine, camera
	g.controls = &Controls{Player: player, Lift: g.cfg.Scene.Player.Lift}
	g.sched = NewScheduler(g.controls, engine, camera, g.cfg, g.logger)
	g.sched.ticks = ticks
	g.logger.Info("scene ready", zap.Int("entities", world.Len()), zap.Stringer("player", player))
	return nil
}

// World returns the current world. It changes on reset.
func (g *Game) World() *ecs.World { return g.world }

// Engine returns the current physics engine. It changes on reset.
func (g *Game) Engine() *physics.Engine { return g.engine }

// Controls returns the current player controls. They change on reset.
func (g *Game) Controls() *Controls { return g.controls }

// Run loops at the configured tick rate until ctx is done, the player quits
// or a fatal error occurs. The screen is finalised on return.
func (g *Game) Run(ctx context.Context) error {
	g.screen.EnableMouse()
	events := make(chan tcell.Event, 16)
	done := make(chan struct{})
	defer func() {
		close(done)
		g.screen.Fini()
		g.finish()
	}()
	go g.pollEvents(events, done)

	ticker := time.NewTicker(time.Duration(g.cfg.TickSeconds() * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("run cancelled", zap.Error(ctx.Err()))
			return nil
		case ev := <-events:
			quit, err := g.handleEvent(ev)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		case <-ticker.C:
			if err := g.step(); err != nil {
				return err
			}
		}
	}
}

// pollEvents forwards screen events until the screen is finalised.
func (g *Game) pollEvents(events chan<- tcell.Event, done <-chan struct{}) {
	for {
		ev := g.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

// handleEvent applies one input event. It reports whether the player quit.
func (g *Game) handleEvent(ev tcell.Event) (bool, error) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		g.screen.Sync()
	case *tcell.EventMouse:
		g.controls.Hold(mouseHeld(ev))
	case *tcell.EventKey:
		switch keyToAction(ev) {
		case ActionQuit:
			return true, nil
		case ActionLift:
			g.controls.Pulse()
		case ActionReset:
			g.runLog.Resets++
			if err := g.reset(); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

// step runs one tick and draws it. Draw errors end the run only when
// configured as fatal.
func (g *Game) step() error {
	if g.controls.Flapping() {
		g.runLog.LiftTicks++
	}
	if err := g.sched.Update(g.world); err != nil {
		return fmt.Errorf("tick %d: %w", g.sched.Ticks()+1, err)
	}
	g.term.Status(g.status())
	if rs, ok := g.opts.Spectator.(resizer); ok {
		rs.Resize(g.term.Size())
	}
	if err := g.sched.Draw(g.world, g.surface); err != nil {
		g.runLog.DrawErrors++
		var de *render.DrawError
		if g.cfg.Render.FatalDrawErrors || !errors.As(err, &de) {
			return fmt.Errorf("draw tick %d: %w", g.sched.Ticks(), err)
		}
		g.logger.Warn("frame dropped", zap.Uint64("tick", g.sched.Ticks()), zap.Error(err))
	}
	return nil
}

func (g *Game) status() string {
	return fmt.Sprintf(" %s  tick %d  bodies %d  [space/mouse] lift  [r] reset  [q] quit",
		g.cfg.Window.Title, g.sched.Ticks(), g.engine.Bodies())
}

func (g *Game) finish() {
	g.runLog.Duration = time.Since(g.runLog.Started)
	g.runLog.Ticks = g.sched.Ticks()
	g.runLog.Digest = fmt.Sprintf("%016x", g.engine.Digest())
	g.logger.Info("run finished",
		zap.Uint64("ticks", g.runLog.Ticks),
		zap.Uint64("lift_ticks", g.runLog.LiftTicks),
		zap.Int("resets", g.runLog.Resets),
		zap.Duration("duration", g.runLog.Duration))
	if g.opts.SaveRunLog {
		if err := saveRunLog(g.runLog); err != nil {
			g.logger.Warn("run log not saved", zap.Error(err))
		}
	}
}
