package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/benallfree/vibescale-sub000/internal/hub"
	"github.com/benallfree/vibescale-sub000/internal/room"
	"github.com/benallfree/vibescale-sub000/pkg/proto"
)

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := hub.NewHub(room.DefaultConfig(), nil, nil)
	t.Cleanup(h.Shutdown)
	ts := httptest.NewServer(NewServer(h).Engine())
	t.Cleanup(ts.Close)
	return ts, h
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHTTPRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"Health for an idle room", "/demo", http.StatusOK},
		{"Missing room name", "/", http.StatusBadRequest},
		{"Invalid room name", "/bad_name", http.StatusBadRequest},
		{"Unknown sub-path", "/demo/other", http.StatusBadRequest},
		{"Deep sub-path", "/demo/a/b", http.StatusBadRequest},
		{"Websocket path without upgrade", "/demo/websocket", http.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := get(t, ts.URL+tt.path)
			if status != tt.wantStatus {
				t.Errorf("GET %s = %d, want %d", tt.path, status, tt.wantStatus)
			}
		})
	}
}

func TestHealthReportsConnectionCount(t *testing.T) {
	ts, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	status, body := get(t, ts.URL+"/demo")
	if status != http.StatusOK || !strings.Contains(body, "0 connected") {
		t.Fatalf("idle health = %d %q, want 0 connected", status, body)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/demo/websocket", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	readServerMessage(t, conn) // welcome

	_, body = get(t, ts.URL+"/demo")
	if !strings.Contains(body, "1 connected") {
		t.Errorf("health after join = %q, want 1 connected", body)
	}
}

func readServerMessage(t *testing.T, conn *websocket.Conn) any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	msg, err := proto.DecodeServer(data)
	if err != nil {
		t.Fatalf("undecodable frame %s: %v", data, err)
	}
	return msg
}

func TestTwoClientsOverRealWebsockets(t *testing.T) {
	ts, h := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	connX, _, err := websocket.DefaultDialer.Dial(wsURL+"/demo/websocket", nil)
	if err != nil {
		t.Fatalf("dial X failed: %v", err)
	}
	defer connX.Close()

	xWelcome, ok := readServerMessage(t, connX).(*proto.PlayerMessage)
	if !ok || !xWelcome.IsLocal {
		t.Fatalf("X welcome = %+v, want isLocal player message", xWelcome)
	}

	connY, _, err := websocket.DefaultDialer.Dial(wsURL+"/demo/websocket", nil)
	if err != nil {
		t.Fatalf("dial Y failed: %v", err)
	}
	defer connY.Close()

	yWelcome, ok := readServerMessage(t, connY).(*proto.PlayerMessage)
	if !ok || !yWelcome.IsLocal {
		t.Fatalf("Y welcome = %+v, want isLocal player message", yWelcome)
	}

	// Y gets X replayed; X gets Y announced; both tagged not local.
	replay, ok := readServerMessage(t, connY).(*proto.PlayerMessage)
	if !ok || replay.ID != xWelcome.ID || replay.IsLocal {
		t.Errorf("Y replay = %+v, want X with isLocal=false", replay)
	}
	joined, ok := readServerMessage(t, connX).(*proto.PlayerMessage)
	if !ok || joined.ID != yWelcome.ID || joined.IsLocal {
		t.Errorf("X announcement = %+v, want Y with isLocal=false", joined)
	}

	// A significant move from X reaches Y but never echoes to X.
	move := fmt.Sprintf(`{"type":"player","position":{"x":%v,"y":0,"z":0}}`, xWelcome.Position.X+5)
	if err := connX.WriteMessage(websocket.TextMessage, []byte(move)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	update, ok := readServerMessage(t, connY).(*proto.PlayerMessage)
	if !ok || update.ID != xWelcome.ID {
		t.Errorf("Y update = %+v, want X's move", update)
	}

	// X disconnects; Y hears exactly one leave and the count drops.
	connX.Close()
	leave, ok := readServerMessage(t, connY).(*proto.LeaveMessage)
	if !ok || leave.ID != xWelcome.ID {
		t.Errorf("Y leave = %+v, want X's id", leave)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.ConnCount("demo") != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := h.ConnCount("demo"); got != 1 {
		t.Errorf("ConnCount after X left = %d, want 1", got)
	}
}
