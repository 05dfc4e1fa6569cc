package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"marketmaker/internal/config"
)

func newTestHubServer(t *testing.T) (*Hub, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	hub := NewHub(logger)
	go hub.Run()

	handlers := NewHandlers(nil, config.DashboardConfig{}, hub, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	wsURL := "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/ws"
	return hub, wsURL
}

func TestHubReplaysLastSnapshotOnConnect(t *testing.T) {
	t.Parallel()
	hub, wsURL := newTestHubServer(t)

	hub.BroadcastSnapshot(Snapshot{Symbol: "BTCUSD"})
	time.Sleep(50 * time.Millisecond) // let Run drain the broadcast before anyone connects

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Symbol != "BTCUSD" {
		t.Fatalf("expected replayed snapshot for BTCUSD, got %+v", got)
	}
}

func TestHubClientCountTracksConnections(t *testing.T) {
	t.Parallel()
	hub, wsURL := newTestHubServer(t)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients before connecting, got %d", got)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitForCount(t, hub, 1)

	conn.Close()
	waitForCount(t, hub, 0)
}

func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d, stuck at %d", want, hub.ClientCount())
}
