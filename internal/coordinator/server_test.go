package coordinator

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/lotas/setuptabs/internal/store"
	"github.com/lotas/setuptabs/internal/types"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := NewServer(0, New(db))
	srv.NotifyDelay = 10 * time.Millisecond
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func roundTrip(t *testing.T, ctx context.Context, conn *websocket.Conn, env Envelope) Response {
	t.Helper()
	data, _ := json.Marshal(env)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp
}

func TestServerRoundTrip(t *testing.T) {
	_, ts := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn := dialWS(t, ctx, ts)

	tabs := types.TabList{{TabTitle: "Users", URL: "ManageUsers/home"}}
	resp := roundTrip(t, ctx, conn, Envelope{
		ID:      "set-1",
		Message: Message{What: WhatSet, Tabs: tabs},
	})
	if !resp.Handled || resp.Error != "" {
		t.Fatalf("set: %+v", resp)
	}
	if resp.ID != "set-1" {
		t.Errorf("correlation id: got %q", resp.ID)
	}

	resp = roundTrip(t, ctx, conn, Envelope{
		ID:      "get-1",
		Message: Message{What: WhatGet},
	})
	if !resp.Found || !resp.Tabs.Equal(tabs) {
		t.Errorf("get: %+v", resp)
	}
}

func TestServerRegisterTracksPageSurface(t *testing.T) {
	srv, ts := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn := dialWS(t, ctx, ts)

	if srv.HasPageSurface() {
		t.Fatal("page surface before register")
	}

	resp := roundTrip(t, ctx, conn, Envelope{
		ID:      "reg-1",
		Message: Message{What: WhatRegister, Role: RolePage},
	})
	if !resp.Handled {
		t.Fatalf("register: %+v", resp)
	}
	if !srv.HasPageSurface() {
		t.Error("page surface not tracked after register")
	}
}

func TestNotifyReachesRegisteredPage(t *testing.T) {
	srv, ts := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn := dialWS(t, ctx, ts)

	roundTrip(t, ctx, conn, Envelope{Message: Message{What: WhatRegister, Role: RolePage}})

	srv.NotifyActive(Message{What: WhatSaved})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var note Notification
	if err := json.Unmarshal(data, &note); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if note.Message.What != WhatSaved {
		t.Errorf("got %q, want saved", note.Message.What)
	}
}

func TestNotifyWaitsForLateRegistration(t *testing.T) {
	srv, ts := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn := dialWS(t, ctx, ts)

	// Fire before any surface has registered; the retry loop should pick
	// the surface up once it appears.
	srv.NotifyActive(Message{What: WhatReload})
	time.Sleep(15 * time.Millisecond)

	data, _ := json.Marshal(Envelope{ID: "reg", Message: Message{What: WhatRegister, Role: RolePage}})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The register ack and the delivered notification share the socket
	// and may arrive in either order.
	var gotAck, gotNote bool
	for !gotAck || !gotNote {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var probe struct {
			ID      string   `json:"id"`
			Message *Message `json:"message"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		switch {
		case probe.ID == "reg":
			gotAck = true
		case probe.Message != nil:
			if probe.Message.What != WhatReload {
				t.Errorf("notification: got %q, want reload", probe.Message.What)
			}
			gotNote = true
		default:
			t.Fatalf("unexpected frame: %s", data)
		}
	}
}

func TestNotifyGivesUpWithoutSurface(t *testing.T) {
	srv, ts := testServer(t)
	_ = ts

	srv.NotifyActive(Message{What: WhatSaved})
	// five short attempts, then a silent drop; nothing to assert beyond
	// the goroutine finishing without a surface
	time.Sleep(100 * time.Millisecond)

	if srv.HasPageSurface() {
		t.Error("no surface should be registered")
	}
}
