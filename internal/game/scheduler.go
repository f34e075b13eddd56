package game

import (
	"fmt"

	"fly/internal/component"
	"fly/internal/config"
	"fly/internal/ecs"
	"fly/internal/logging"
	"fly/internal/physics"
	"fly/internal/render"

	"go.uber.org/zap"
)

// Scheduler runs one tick: controls, then physics commands, then the step
// and sync, then drawing. It is the only caller of the engine.
type Scheduler struct {
	controls    *Controls
	engine      *physics.Engine
	camera      *render.Camera
	dt          float64
	follow      bool
	digestEvery uint64
	ticks       uint64
	logger      *zap.Logger
}

// NewScheduler wires the per-tick pipeline for one world.
func NewScheduler(controls *Controls, engine *physics.Engine, camera *render.Camera, cfg *config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		controls:    controls,
		engine:      engine,
		camera:      camera,
		dt:          cfg.TickSeconds(),
		follow:      cfg.Camera.FollowPlayer,
		digestEvery: uint64(max(cfg.DigestEvery, 0)),
		logger:      logging.OrNop(logger),
	}
}

// Update advances the simulation by one fixed timestep.
func (s *Scheduler) Update(w *ecs.World) error {
	if err := s.controls.Update(w); err != nil {
		return err
	}
	if err := s.engine.ApplyCommands(w); err != nil {
		return fmt.Errorf("apply commands: %w", err)
	}
	if err := s.engine.StepAndSync(w, s.dt); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	s.ticks++
	if s.digestEvery > 0 && s.ticks%s.digestEvery == 0 {
		s.logger.Debug("physics digest",
			zap.Uint64("tick", s.ticks),
			zap.String("digest", fmt.Sprintf("%016x", s.engine.Digest())),
			zap.Int("bodies", s.engine.Bodies()))
	}
	return nil
}

// Draw renders w onto surf, first moving the camera onto the player when
// following is enabled.
func (s *Scheduler) Draw(w *ecs.World, surf render.Surface) error {
	if s.follow {
		tr, err := ecs.Get[component.Transform](w, s.controls.Player)
		if err != nil {
			return fmt.Errorf("follow: %w", err)
		}
		s.camera.Follow(tr.Pos)
	}
	return s.camera.Render(w, surf)
}

// Tick is Update followed by Draw.
func (s *Scheduler) Tick(w *ecs.World, surf render.Surface) error {
	if err := s.Update(w); err != nil {
		return err
	}
	return s.Draw(w, surf)
}

// Ticks returns the number of completed updates.
func (s *Scheduler) Ticks() uint64 { return s.ticks }
