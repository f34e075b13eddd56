package component

import (
	"fmt"

	"fly/internal/arena"
	"fly/internal/ecs"
)

const CPhysics ecs.ComponentType = 1

// CommandKind tags a pending physics command.
type CommandKind uint8

const (
	CmdNone CommandKind = iota // nothing pending
	CmdLift                    // impulse of (Amount, Amount) on the body
)

func (k CommandKind) String() string {
	switch k {
	case CmdNone:
		return "none"
	case CmdLift:
		return "lift"
	}
	return fmt.Sprintf("command(%d)", uint8(k))
}

// Command is a single-use instruction consumed by the next command step.
type Command struct {
	Kind   CommandKind
	Amount float64
}

// Lift builds a lift command.
func Lift(amount float64) Command { return Command{Kind: CmdLift, Amount: amount} }

// Pending reports whether the command still waits to be applied.
func (c Command) Pending() bool { return c.Kind != CmdNone }

// Physics links an entity to its body and collider inside the physics engine.
// Body and Collider are only meaningful to the engine that issued them.
type Physics struct {
	Body     arena.Handle
	Collider arena.Handle
	Cmd      Command
}

func (Physics) Type() ecs.ComponentType { return CPhysics }
