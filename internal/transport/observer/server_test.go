package observer

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakoniwa.dev/internal/sim/world"
)

type fakeSource struct{}

func (fakeSource) ID() string    { return "forest_1" }
func (fakeSource) RunID() string { return "run-1" }
func (fakeSource) Metrics() world.WorldMetrics {
	return world.WorldMetrics{Tick: "12", Steps: 12, Objects: 3}
}

func entryAt(tick int64) world.TickLogEntry {
	return world.TickLogEntry{
		RunID:   "run-1",
		WorldID: "forest_1",
		Tick:    big.NewInt(tick),
		Day:     big.NewInt(0),
		Year:    big.NewInt(0),
		Digest:  "d",
	}
}

func TestBroadcaster_DropsOldest(t *testing.T) {
	b := NewBroadcaster()
	_, out, cancel := b.Subscribe(2, 0)
	defer cancel()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, b.WriteTick(entryAt(i)))
	}
	assert.Equal(t, uint64(3), b.Dropped())

	var ticks []string
	for i := 0; i < 2; i++ {
		var msg TickMsg
		require.NoError(t, json.Unmarshal(<-out, &msg))
		assert.Equal(t, "TICK", msg.Type)
		ticks = append(ticks, msg.Entry.Tick.String())
	}
	assert.Equal(t, []string{"4", "5"}, ticks)
}

func TestBroadcaster_EveryTicks(t *testing.T) {
	b := NewBroadcaster()
	id, out, cancel := b.Subscribe(16, 3)
	defer cancel()

	for i := int64(1); i <= 7; i++ {
		require.NoError(t, b.WriteTick(entryAt(i)))
	}
	b.SetEvery(id, 0)
	require.NoError(t, b.WriteTick(entryAt(8)))

	var ticks []string
	for len(out) > 0 {
		var msg TickMsg
		require.NoError(t, json.Unmarshal(<-out, &msg))
		ticks = append(ticks, msg.Entry.Tick.String())
	}
	assert.Equal(t, []string{"3", "6", "8"}, ticks)
}

func TestBroadcaster_CancelUnsubscribes(t *testing.T) {
	b := NewBroadcaster()
	_, out, cancel := b.Subscribe(1, 0)
	assert.Equal(t, 1, b.Subscribers())
	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers())
	_, ok := <-out
	assert.False(t, ok)
	require.NoError(t, b.WriteTick(entryAt(1)))
}

func TestStatusHandler(t *testing.T) {
	b := NewBroadcaster()
	s := NewServer(fakeSource{}, b, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec := httptest.NewRecorder()
	s.StatusHandler()(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, Version, resp.ProtocolVersion)
	assert.Equal(t, "forest_1", resp.WorldID)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "12", resp.Metrics.Tick)
	assert.Equal(t, 3, resp.Metrics.Objects)
}

func TestStatusHandler_RejectsRemoteAndPost(t *testing.T) {
	s := NewServer(fakeSource{}, NewBroadcaster(), nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	s.StatusHandler()(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/status", nil)
	req.RemoteAddr = "[::1]:5555"
	rec = httptest.NewRecorder()
	s.StatusHandler()(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWSHandler_StreamsTicks(t *testing.T) {
	b := NewBroadcaster()
	s := NewServer(fakeSource{}, b, nil)
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: Version}))
	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, b.WriteTick(entryAt(41)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg TickMsg
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "TICK", msg.Type)
	assert.Equal(t, "41", msg.Entry.Tick.String())
	assert.Equal(t, "run-1", msg.Entry.RunID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return b.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWSHandler_BadHandshake(t *testing.T) {
	b := NewBroadcaster()
	ts := httptest.NewServer(NewServer(fakeSource{}, b, nil).Mux())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "HELLO"}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
	assert.Equal(t, 0, b.Subscribers())
}

func TestMetricsHandler(t *testing.T) {
	b := NewBroadcaster()
	_, _, cancel := b.Subscribe(1, 0)
	defer cancel()
	ts := httptest.NewServer(NewServer(fakeSource{}, b, nil).Mux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `hakoniwa_world_tick{world="forest_1"} 12`)
	assert.Contains(t, text, `hakoniwa_world_objects{world="forest_1"} 3`)
	assert.Contains(t, text, `hakoniwa_observer_sessions{world="forest_1"} 1`)

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
