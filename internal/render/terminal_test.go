package render

import (
	"math"
	"testing"

	"fly/internal/config"
	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSimTerminal returns a 10x8 screen with one surface pixel per cell.
func newSimTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	scr := tcell.NewSimulationScreen("")
	require.NoError(t, scr.Init())
	t.Cleanup(scr.Fini)
	scr.SetSize(10, 8)
	return NewTerminal(scr, config.Terminal{CellW: 1, CellH: 1}), scr
}

func bgAt(scr tcell.Screen, x, y int) tcell.Color {
	_, _, style, _ := scr.GetContent(x, y)
	_, bg, _ := style.Decompose()
	return bg
}

func TestTerminalSizeExcludesStatusRow(t *testing.T) {
	term, _ := newSimTerminal(t)
	w, h := term.Size()
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 7.0, h)
}

func TestTerminalClearFillsBackground(t *testing.T) {
	term, scr := newSimTerminal(t)
	term.Clear(tcell.ColorWhite)
	assert.Equal(t, tcell.ColorWhite, bgAt(scr, 0, 0))
	assert.Equal(t, tcell.ColorWhite, bgAt(scr, 9, 6))

	term.Clear(tcell.ColorNavy)
	assert.Equal(t, tcell.ColorNavy, bgAt(scr, 0, 0))
	assert.Equal(t, tcell.ColorNavy, bgAt(scr, 9, 6))
}

func TestTerminalDrawsCircle(t *testing.T) {
	term, scr := newSimTerminal(t)
	term.Clear(tcell.ColorWhite)
	m := resource.Circle(2, tcell.ColorRed)
	require.NoError(t, term.DrawMesh(&m, mgl64.Translate2D(5, 3)))

	assert.Equal(t, tcell.ColorRed, bgAt(scr, 5, 3))
	assert.Equal(t, tcell.ColorRed, bgAt(scr, 4, 2))
	assert.Equal(t, tcell.ColorWhite, bgAt(scr, 0, 0))
	assert.Equal(t, tcell.ColorWhite, bgAt(scr, 8, 3))
}

func TestTerminalHonorsRotation(t *testing.T) {
	term, scr := newSimTerminal(t)
	bar := resource.Rect(6, 2, tcell.ColorGreen)

	term.Clear(tcell.ColorWhite)
	require.NoError(t, term.DrawMesh(&bar, mgl64.Translate2D(5, 3)))
	assert.Equal(t, tcell.ColorGreen, bgAt(scr, 7, 3))
	assert.Equal(t, tcell.ColorWhite, bgAt(scr, 4, 1))

	term.Clear(tcell.ColorWhite)
	model := mgl64.Translate2D(5, 3).Mul3(mgl64.HomogRotate2D(math.Pi / 2))
	require.NoError(t, term.DrawMesh(&bar, model))
	assert.Equal(t, tcell.ColorWhite, bgAt(scr, 7, 3))
	assert.Equal(t, tcell.ColorGreen, bgAt(scr, 4, 1))
}

func TestTerminalAppliesPushedTransform(t *testing.T) {
	term, scr := newSimTerminal(t)
	term.Clear(tcell.ColorWhite)
	term.PushTransform(mgl64.Translate2D(2, 0))
	m := resource.Circle(0.6, tcell.ColorBlue)
	require.NoError(t, term.DrawMesh(&m, mgl64.Translate2D(1.5, 1.5)))
	term.PopTransform()

	assert.Equal(t, tcell.ColorBlue, bgAt(scr, 3, 1))
	assert.Equal(t, tcell.ColorWhite, bgAt(scr, 1, 1))
}

func TestTerminalConcavePolygon(t *testing.T) {
	term, scr := newSimTerminal(t)
	term.Clear(tcell.ColorWhite)
	// A U shape open at the top.
	u := resource.Polygon([]mgl64.Vec2{{0, 0}, {6, 0}, {6, 6}, {4, 6}, {4, 2}, {2, 2}, {2, 6}, {0, 6}}, tcell.ColorRed)
	require.NoError(t, term.DrawMesh(&u, mgl64.Ident3()))

	assert.Equal(t, tcell.ColorRed, bgAt(scr, 1, 4))
	assert.Equal(t, tcell.ColorRed, bgAt(scr, 3, 1))
	assert.Equal(t, tcell.ColorWhite, bgAt(scr, 3, 4), "notch stays empty")
}

func TestTerminalClipsOffscreen(t *testing.T) {
	term, _ := newSimTerminal(t)
	term.Clear(tcell.ColorWhite)
	m := resource.Circle(50, tcell.ColorRed)
	assert.NoError(t, term.DrawMesh(&m, mgl64.Translate2D(-100, 500)))
	assert.NoError(t, term.DrawMesh(&m, mgl64.Translate2D(5, 3)))
}

func TestTerminalInvalidGeometry(t *testing.T) {
	term, _ := newSimTerminal(t)
	cases := map[string]resource.Mesh{
		"zero radius": resource.Circle(0, tcell.ColorRed),
		"nan radius":  resource.Circle(math.NaN(), tcell.ColorRed),
		"two points":  resource.Polygon([]mgl64.Vec2{{0, 0}, {1, 1}}, tcell.ColorRed),
		"inf point":   resource.Polygon([]mgl64.Vec2{{0, 0}, {1, 0}, {math.Inf(1), 1}}, tcell.ColorRed),
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, term.DrawMesh(&m, mgl64.Ident3()), ErrInvalidGeometry)
		})
	}

	ok := resource.Circle(1, tcell.ColorRed)
	assert.ErrorIs(t, term.DrawMesh(&ok, mgl64.Translate2D(math.NaN(), 0)), ErrInvalidGeometry)
}

func TestTerminalStatusLine(t *testing.T) {
	term, scr := newSimTerminal(t)
	term.Clear(tcell.ColorWhite)
	term.Status("hi 世界")
	require.NoError(t, term.Present())

	r, _, _, _ := scr.GetContent(0, 7)
	assert.Equal(t, 'h', r)
	r, _, _, _ = scr.GetContent(3, 7)
	assert.Equal(t, '世', r)
	r, _, _, _ = scr.GetContent(5, 7)
	assert.Equal(t, '界', r, "wide runes advance two columns")
}
