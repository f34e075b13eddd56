// Package config loads the YAML configuration shared by the binaries.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"fly/assets"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Point is a 2D coordinate written as {x: .., y: ..}.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Vec converts p to a vector.
func (p Point) Vec() mgl64.Vec2 { return mgl64.Vec2{p.X, p.Y} }

// Config is the full runtime configuration.
type Config struct {
	Window      Window   `yaml:"window"`
	TickRate    int      `yaml:"tick_rate"`
	LogLevel    string   `yaml:"log_level"`
	LogFile     string   `yaml:"log_file"`
	DigestEvery int      `yaml:"digest_every"` // 0 disables digest logging
	Physics     Physics  `yaml:"physics"`
	Camera      Camera   `yaml:"camera"`
	Terminal    Terminal `yaml:"terminal"`
	Render      Render   `yaml:"render"`
	Scene       Scene    `yaml:"scene"`
}

// Window is static presentation metadata.
type Window struct {
	Title  string  `yaml:"title"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Physics configures the simulation world.
type Physics struct {
	Gravity    Point   `yaml:"gravity"`
	Substeps   int     `yaml:"substeps"`
	Density    float64 `yaml:"density"`
	Friction   float64 `yaml:"friction"`
	Elasticity float64 `yaml:"elasticity"`
	MaxBodies  int     `yaml:"max_bodies"`
}

// Camera anchor values.
const (
	AnchorCenter = "center"
	AnchorCorner = "corner"
)

// Draw error policies.
const (
	DrawErrorAbort = "abort"
	DrawErrorSkip  = "skip"
)

// Camera configures the global view transform and draw policy.
type Camera struct {
	Scale        float64 `yaml:"scale"`
	FlipY        bool    `yaml:"flip_y"`
	Anchor       string  `yaml:"anchor"`
	Focus        Point   `yaml:"focus"`
	FollowPlayer bool    `yaml:"follow_player"`
	OnDrawError  string  `yaml:"on_draw_error"`
	Background   string  `yaml:"background"`
}

// BackgroundColor resolves the background color name.
func (c Camera) BackgroundColor() tcell.Color {
	return tcell.GetColor(c.Background)
}

// Terminal sets how many surface pixels one terminal cell covers.
type Terminal struct {
	CellW float64 `yaml:"cell_w"`
	CellH float64 `yaml:"cell_h"`
}

// Render holds frame-level error handling.
type Render struct {
	FatalDrawErrors bool `yaml:"fatal_draw_errors"`
}

// Scene describes the entities spawned at start and on reset.
type Scene struct {
	Player Player `yaml:"player"`
	Ground Ground `yaml:"ground"`
	Ramps  []Ramp `yaml:"ramps"`
	Balls  []Ball `yaml:"balls"`
}

// Player is the controlled ball.
type Player struct {
	Pos    Point   `yaml:"pos"`
	Radius float64 `yaml:"radius"`
	Lift   float64 `yaml:"lift"`
}

// Ground is a static box.
type Ground struct {
	Pos         Point `yaml:"pos"`
	HalfExtents Point `yaml:"half_extents"`
}

// Ramp is a static convex polygon in world coordinates.
type Ramp struct {
	Points []Point `yaml:"points"`
}

// Ball is an uncontrolled dynamic ball.
type Ball struct {
	Pos    Point   `yaml:"pos"`
	Radius float64 `yaml:"radius"`
}

// Default returns the embedded defaults.
func Default() *Config {
	var c Config
	if err := yaml.Unmarshal(assets.DefaultConfig, &c); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return &c
}

// Load reads the defaults and overlays the file at path, if any.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, c.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := c.Overlay(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Overlay decodes YAML from r on top of c and validates the result.
// Unknown keys are rejected.
func (c *Config) Overlay(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
	}
	return c.Validate()
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}
	check(c.TickRate > 0, "tick_rate must be positive, got %d", c.TickRate)
	_, lerr := zapcore.ParseLevel(c.LogLevel)
	check(lerr == nil, "log_level %q", c.LogLevel)
	check(c.DigestEvery >= 0, "digest_every must not be negative")
	check(c.Physics.Substeps > 0, "physics.substeps must be positive")
	check(c.Physics.Density > 0, "physics.density must be positive")
	check(c.Physics.MaxBodies >= 0, "physics.max_bodies must not be negative")
	check(finite(c.Physics.Gravity.X) && finite(c.Physics.Gravity.Y), "physics.gravity must be finite")
	check(c.Camera.Scale > 0 && finite(c.Camera.Scale), "camera.scale must be positive")
	check(c.Camera.Anchor == AnchorCenter || c.Camera.Anchor == AnchorCorner,
		"camera.anchor must be %q or %q, got %q", AnchorCenter, AnchorCorner, c.Camera.Anchor)
	check(c.Camera.OnDrawError == DrawErrorAbort || c.Camera.OnDrawError == DrawErrorSkip,
		"camera.on_draw_error must be %q or %q, got %q", DrawErrorAbort, DrawErrorSkip, c.Camera.OnDrawError)
	check(c.Terminal.CellW > 0 && c.Terminal.CellH > 0, "terminal cell size must be positive")
	check(c.Scene.Player.Radius > 0, "scene.player.radius must be positive")
	check(c.Scene.Ground.HalfExtents.X > 0 && c.Scene.Ground.HalfExtents.Y > 0, "scene.ground.half_extents must be positive")
	for i, r := range c.Scene.Ramps {
		check(len(r.Points) >= 3, "scene.ramps[%d] needs at least 3 points", i)
	}
	for i, b := range c.Scene.Balls {
		check(b.Radius > 0, "scene.balls[%d].radius must be positive", i)
	}
	return errors.Join(errs...)
}

// TickSeconds returns the fixed timestep implied by TickRate.
func (c *Config) TickSeconds() float64 { return 1 / float64(c.TickRate) }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
