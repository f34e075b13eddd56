package game

import (
	"fmt"

	"fly/internal/component"
	"fly/internal/ecs"
)

// Controls turns player input into lift commands for one entity. The mouse
// button is a held state; a key press lifts for a single tick.
type Controls struct {
	Player ecs.EntityID
	Lift   float64

	held  bool
	pulse bool
}

// Hold records the mouse button state.
func (c *Controls) Hold(down bool) { c.held = down }

// Pulse lifts on the next Update only.
func (c *Controls) Pulse() { c.pulse = true }

// Flapping reports whether the next Update issues a lift.
func (c *Controls) Flapping() bool { return c.held || c.pulse }

// Update writes a lift command into the player's physics component when
// flapping. The player must carry component.Physics.
func (c *Controls) Update(w *ecs.World) error {
	p, err := ecs.Get[component.Physics](w, c.Player)
	if err != nil {
		return fmt.Errorf("controls: player %v: %w", c.Player, err)
	}
	if c.Flapping() {
		p.Cmd = component.Lift(c.Lift)
	}
	c.pulse = false
	return nil
}
