package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fly/internal/render"
	"fly/internal/resource"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 5*time.Millisecond)
}

func drawFrame(t *testing.T, s render.Surface) {
	t.Helper()
	m := resource.Circle(2, tcell.ColorRed)
	s.Clear(tcell.ColorWhite)
	s.PushTransform(mgl64.Translate2D(10, 10))
	require.NoError(t, s.DrawMesh(&m, mgl64.Ident3()))
	s.PopTransform()
	require.NoError(t, s.Present())
}

func TestSpectatorReceivesFrames(t *testing.T) {
	hub := NewHub(0, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, hub, 1)

	surf := hub.Surface(640, 480)
	drawFrame(t, surf)
	drawFrame(t, surf)

	for want := uint64(1); want <= 2; want++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, kind)

		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		assert.Equal(t, want, f.Seq)
		assert.Equal(t, 640.0, f.Width)
		assert.Equal(t, 480.0, f.Height)

		var kinds []render.OpKind
		for _, op := range f.Ops {
			kinds = append(kinds, op.Kind)
		}
		assert.Equal(t, []render.OpKind{render.OpClear, render.OpPush, render.OpDraw, render.OpPop, render.OpPresent}, kinds)
		require.NotNil(t, f.Ops[2].Center)
		assert.Equal(t, [2]float64{10, 10}, *f.Ops[2].Center)
		assert.Equal(t, "circle", f.Ops[2].Shape)
	}
}

func TestPublishWithoutSpectators(t *testing.T) {
	hub := NewHub(1, nil)
	assert.NoError(t, hub.Publish(1, 1, nil))
	assert.Equal(t, 0, hub.Clients())
}

func TestSlowSpectatorIsDropped(t *testing.T) {
	hub := NewHub(1, nil)
	c := &client{id: "slow", send: make(chan []byte, 1)}
	hub.clients[c] = struct{}{}

	require.NoError(t, hub.Publish(1, 1, nil))
	assert.Equal(t, 1, hub.Clients())
	require.NoError(t, hub.Publish(1, 1, nil))
	assert.Equal(t, 0, hub.Clients(), "second frame overflows the buffer")

	_, ok := <-c.send
	assert.True(t, ok, "queued frame is still delivered")
	_, ok = <-c.send
	assert.False(t, ok, "channel closed after drop")
}

func TestDisconnectRemovesSpectator(t *testing.T) {
	hub := NewHub(0, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, hub, 1)
	conn.Close()
	waitClients(t, hub, 0)
}

func TestCloseDisconnectsAll(t *testing.T) {
	hub := NewHub(0, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	dial(t, srv)
	dial(t, srv)
	waitClients(t, hub, 2)
	hub.Close()
	assert.Equal(t, 0, hub.Clients())
}
