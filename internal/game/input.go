package game

import "github.com/gdamore/tcell/v2"

// Action represents a player-requested game action.
type Action uint8

const (
	ActionNone Action = iota
	ActionLift
	ActionReset
	ActionQuit
)

// keyToAction maps a tcell key event to a game action.
func keyToAction(ev *tcell.EventKey) Action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyUp, tcell.KeyEnter:
		return ActionLift
	}

	switch ev.Rune() {
	case ' ', 'w', 'W', 'k', 'K':
		return ActionLift
	case 'r', 'R':
		return ActionReset
	case 'q', 'Q':
		return ActionQuit
	}
	return ActionNone
}

// mouseHeld reports whether the primary button is down.
func mouseHeld(ev *tcell.EventMouse) bool {
	return ev.Buttons()&tcell.Button1 != 0
}
