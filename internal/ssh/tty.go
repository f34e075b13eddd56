// Package ssh adapts SSH sessions into tcell screens so each remote player
// gets a private terminal surface.
package ssh

import (
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	gossh "github.com/gliderlabs/ssh"
)

// ErrNoPTY is returned for sessions opened without a pseudo-terminal.
var ErrNoPTY = errors.New("ssh: session has no pty")

// DefaultTerm is used when the client does not send TERM or sends one that
// is not in AllowedTerms.
const DefaultTerm = "xterm-256color"

// AllowedTerms are the terminal types whose terminfo entries the server
// will load on behalf of a client.
var AllowedTerms = map[string]bool{
	"xterm":                 true,
	"xterm-256color":        true,
	"xterm-color":           true,
	"screen":                true,
	"screen-256color":       true,
	"tmux":                  true,
	"tmux-256color":         true,
	"linux":                 true,
	"vt100":                 true,
	"vt220":                 true,
	"rxvt-unicode":          true,
	"rxvt-unicode-256color": true,
}

// Term picks the terminal type from a session environment.
func Term(environ []string) string {
	for _, env := range environ {
		if v, ok := strings.CutPrefix(env, "TERM="); ok && AllowedTerms[v] {
			return v
		}
	}
	return DefaultTerm
}

// Window is the terminal size as reported by the client.
type Window struct {
	Width, Height int
}

// Tty implements tcell.Tty on top of an SSH channel. Resize events arrive on
// a channel and are applied until the tty is closed.
type Tty struct {
	rw     io.ReadWriteCloser
	winCh  <-chan Window
	stop   chan struct{}
	closed sync.Once
	watch1 sync.Once

	mu     sync.Mutex
	window Window
	cb     func()
}

// NewTty wraps rw. initial is the size reported with the pty request.
func NewTty(rw io.ReadWriteCloser, initial Window, winCh <-chan Window) *Tty {
	return &Tty{rw: rw, window: initial, winCh: winCh, stop: make(chan struct{})}
}

// FromSession wraps a session that requested a pty.
func FromSession(s gossh.Session) (*Tty, error) {
	pty, winCh, ok := s.Pty()
	if !ok {
		return nil, ErrNoPTY
	}
	wins := make(chan Window)
	t := NewTty(s, Window{Width: pty.Window.Width, Height: pty.Window.Height}, wins)
	go func() {
		defer close(wins)
		for w := range winCh {
			select {
			case wins <- Window{Width: w.Width, Height: w.Height}:
			case <-t.stop:
				return
			}
		}
	}()
	return t, nil
}

// Screen builds an initialised tcell screen for the tty.
func (t *Tty) Screen() (tcell.Screen, error) {
	scr, err := tcell.NewTerminfoScreenFromTty(t)
	if err != nil {
		return nil, err
	}
	if err := scr.Init(); err != nil {
		return nil, err
	}
	return scr, nil
}

func (t *Tty) Read(b []byte) (int, error) { return t.rw.Read(b) }

func (t *Tty) Write(b []byte) (int, error) { return t.rw.Write(b) }

// Close stops resize handling and closes the channel.
func (t *Tty) Close() error {
	t.closed.Do(func() { close(t.stop) })
	return t.rw.Close()
}

// Start, Stop and Drain have nothing to do: the channel is already open
// and writes are not buffered.
func (t *Tty) Start() error { return nil }

func (t *Tty) Stop() error { return nil }

func (t *Tty) Drain() error { return nil }

func (t *Tty) WindowSize() (tcell.WindowSize, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tcell.WindowSize{Width: t.window.Width, Height: t.window.Height}, nil
}

// NotifyResize registers cb and starts applying resize events.
func (t *Tty) NotifyResize(cb func()) {
	t.mu.Lock()
	t.cb = cb
	t.mu.Unlock()
	if t.winCh != nil {
		t.watch1.Do(func() { go t.watch() })
	}
}

func (t *Tty) watch() {
	for {
		select {
		case <-t.stop:
			return
		case w, ok := <-t.winCh:
			if !ok {
				return
			}
			t.mu.Lock()
			t.window = w
			cb := t.cb
			t.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	}
}
