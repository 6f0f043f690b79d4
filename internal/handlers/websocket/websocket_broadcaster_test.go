package websocket_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	wshandler "github.com/raunaksarawgi/dexflow-realtime/internal/handlers/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialHub(t *testing.T, hub *wshandler.Hub) *gws.Conn {
	t.Helper()
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *gws.Conn) wshandler.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev wshandler.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("malformed event %q: %v", raw, err)
	}
	return ev
}

func TestInitialDataOnConnect(t *testing.T) {
	initial := func(ctx context.Context) (any, error) {
		return []map[string]any{{"ticker": "SOL"}}, nil
	}
	hub := wshandler.NewHub(initial, discardLogger())
	defer hub.Close()

	conn := dialHub(t, hub)

	ev := readEvent(t, conn)
	if ev.Type != model.EventInitialData {
		t.Fatalf("expected %s as the first event, got %s", model.EventInitialData, ev.Type)
	}
	if ev.Timestamp.IsZero() {
		t.Error("event timestamp should be set")
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := wshandler.NewHub(nil, discardLogger())
	defer hub.Close()

	first := dialHub(t, hub)
	second := dialHub(t, hub)

	waitForClients(t, hub, 2)
	at := time.Now().UTC().Round(0)
	hub.Broadcast(model.EventPriceUpdate, []map[string]any{{"address": "0xaa"}}, at)

	for _, conn := range []*gws.Conn{first, second} {
		ev := readEvent(t, conn)
		if ev.Type != model.EventPriceUpdate {
			t.Errorf("expected %s, got %s", model.EventPriceUpdate, ev.Type)
		}
		if !ev.Timestamp.Equal(at) {
			t.Errorf("envelope should carry the caller's timestamp, got %v want %v", ev.Timestamp, at)
		}
	}
}

func TestSubscribeEcho(t *testing.T) {
	hub := wshandler.NewHub(nil, discardLogger())
	defer hub.Close()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	msg := map[string]any{"action": "subscribe", "addresses": []string{"0xAA", "0xbb"}}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	ev := readEvent(t, conn)
	if ev.Type != model.EventSubscribed {
		t.Fatalf("expected %s, got %s", model.EventSubscribed, ev.Type)
	}

	msg["action"] = "unsubscribe"
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ev = readEvent(t, conn)
	if ev.Type != model.EventUnsubscribed {
		t.Fatalf("expected %s, got %s", model.EventUnsubscribed, ev.Type)
	}
}

func TestMalformedMessageKeepsConnection(t *testing.T) {
	hub := wshandler.NewHub(nil, discardLogger())
	defer hub.Close()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	if err := conn.WriteMessage(gws.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// The hub ignores garbage; a subsequent broadcast must still arrive.
	// A zero timestamp is stamped by the hub itself.
	time.Sleep(50 * time.Millisecond)
	hub.Broadcast(model.EventTokensUpdated, nil, time.Time{})
	ev := readEvent(t, conn)
	if ev.Type != model.EventTokensUpdated {
		t.Errorf("expected %s after malformed input, got %s", model.EventTokensUpdated, ev.Type)
	}
	if ev.Timestamp.IsZero() {
		t.Error("hub should stamp a zero timestamp with the current time")
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub := wshandler.NewHub(nil, discardLogger())
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	hub.Close()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after Close, got %d", got)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after hub close")
	}
}

func waitForClients(t *testing.T, hub *wshandler.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients", n)
}
