package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/everforgeworks/ecosnap-engine/internal/game"
	"github.com/everforgeworks/ecosnap-engine/internal/notify"
)

func dialHub(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return m
}

func TestHubPushesNotifications(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.hub.Run(ctx)
	conn := dialHub(t, f)

	rec := f.do(t, http.MethodPost, "/api/scans", cleanupBody)
	expectStatus(t, rec, http.StatusCreated)

	m := readMessage(t, conn)
	if m.Type != TypeNotification || m.Sender != "system" {
		t.Fatalf("unexpected envelope %+v", m)
	}
	payload, _ := json.Marshal(m.Payload)
	var note notify.Message
	json.Unmarshal(payload, &note)
	if note.Type != notify.TypeSuccess || !strings.HasPrefix(note.Text, "PROTOCOL COMPLETE") {
		t.Fatalf("unexpected notification %+v", note)
	}
}

func TestHubPulse(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.hub.Run(ctx)
	conn := dialHub(t, f)

	f.now = f.now.Add(10 * time.Hour)
	f.hub.Pulse(f.now, f.engine.Tick())

	m := readMessage(t, conn)
	if m.Type != TypeZonePulse {
		t.Fatalf("type = %s", m.Type)
	}
	payload, _ := json.Marshal(m.Payload)
	var pulse ZonePulse
	json.Unmarshal(payload, &pulse)
	if len(pulse.Zones) != 1 || pulse.NeighborhoodHealth != 48 || pulse.Zones[0].Status != game.StatusModerate {
		t.Fatalf("unexpected pulse %+v", pulse)
	}
}

func TestHubPublishDropsWhenQueueFull(t *testing.T) {
	h := NewHub(nil)
	for i := 0; i < broadcastBuffer+10; i++ {
		h.Publish(TypeNotification, i)
	}
	if len(h.Broadcast) != broadcastBuffer {
		t.Fatalf("queue length = %d", len(h.Broadcast))
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
}
