package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/spigell/hh-screener/internal/interview"
)

type fakeInterviews struct {
	hub *Hub

	mu       sync.Mutex
	events   []interview.Event
	sessions map[string]*interview.Session
}

func (f *fakeInterviews) Submit(ev interview.Event) (<-chan interview.Outcome, error) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()

	reply := "reset"
	switch ev.Kind {
	case interview.EventText:
		reply = "echo: " + ev.Text
	case interview.EventNonText:
		reply = interview.DefaultNonTextMessage
	}
	_ = f.hub.Send(context.Background(), ev.Identity, reply)

	ch := make(chan interview.Outcome, 1)
	ch <- interview.Outcome{Kind: interview.OutcomeSent, Text: reply}
	return ch, nil
}

func (f *fakeInterviews) Session(identity string) (*interview.Session, bool) {
	s, ok := f.sessions[identity]
	return s, ok
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeInterviews) {
	t.Helper()
	return newTestServerWith(t, true)
}

func newTestServerWith(t *testing.T, exposeSessions bool) (*httptest.Server, *fakeInterviews) {
	t.Helper()

	hub := NewHub()
	fake := &fakeInterviews{hub: hub, sessions: map[string]*interview.Session{}}
	server := NewServer(fake, hub, nil)
	server.ExposeSessions = exposeSessions
	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)

	return srv, fake
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", resp.StatusCode, body)
	}
}

func TestSessionEndpoint(t *testing.T) {
	t.Parallel()

	srv, fake := newTestServer(t)
	session := interview.NewSession("42", 10)
	_ = session.Begin("I build ETL pipelines in Spark")
	fake.sessions["42"] = session

	resp, err := http.Get(srv.URL + "/api/sessions/42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var got interview.Session
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != interview.StatusActive || got.TurnCount != 1 || len(got.Transcript) != 1 {
		t.Fatalf("unexpected session %+v", got)
	}

	missing, err := http.Get(srv.URL + "/api/sessions/nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func dial(t *testing.T, srv *httptest.Server, identity string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + identity
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, msg string) outbound {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var out outbound
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return out
}

func TestSessionEndpointIsOptIn(t *testing.T) {
	t.Parallel()

	srv, fake := newTestServerWith(t, false)
	session := interview.NewSession("42", 10)
	_ = session.Begin("I build ETL pipelines in Spark")
	fake.sessions["42"] = session

	resp, err := http.Get(srv.URL + "/api/sessions/42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 with sessions hidden, got %d", resp.StatusCode)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if _, leaked := body["transcript"]; leaked {
		t.Fatalf("transcript leaked: %v", body)
	}
}

func TestChatMapsMessagesToEvents(t *testing.T) {
	t.Parallel()

	srv, fake := newTestServer(t)
	conn := dial(t, srv, "alice")

	if out := exchange(t, conn, `{"type":"start"}`); out.Type != typeMessage || out.Text != "reset" {
		t.Fatalf("unexpected reply %+v", out)
	}
	if out := exchange(t, conn, `{"type":"text","text":"hello"}`); out.Text != "echo: hello" {
		t.Fatalf("unexpected reply %+v", out)
	}
	if out := exchange(t, conn, `{"type":"file"}`); out.Text != interview.DefaultNonTextMessage {
		t.Fatalf("unexpected reply %+v", out)
	}
	if out := exchange(t, conn, `{"type":"video"}`); out.Type != typeError {
		t.Fatalf("expected error frame, got %+v", out)
	}
	if out := exchange(t, conn, `not json`); out.Type != typeError {
		t.Fatalf("expected error frame, got %+v", out)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()

	want := []interview.Event{
		interview.ResetEvent("web:alice"),
		interview.TextEvent("web:alice", "hello"),
		interview.NonTextEvent("web:alice"),
	}
	if len(fake.events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), fake.events)
	}
	for i := range want {
		if fake.events[i] != want[i] {
			t.Fatalf("event %d: want %+v, got %+v", i, want[i], fake.events[i])
		}
	}
}

func TestHubSendWithoutConnection(t *testing.T) {
	t.Parallel()

	err := NewHub().Send(context.Background(), "web:ghost", "hi")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestHubForgetsClosedSockets(t *testing.T) {
	t.Parallel()

	srv, fake := newTestServer(t)

	conn := dial(t, srv, "bob")
	exchange(t, conn, `{"type":"start"}`)
	if fake.hub.Connected("web:bob") != 1 {
		t.Fatal("expected socket to be registered")
	}
	conn.Close(websocket.StatusNormalClosure, "")

	// the handler unregisters after its read loop ends
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if fake.hub.Connected("web:bob") == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("socket still registered after close")
}
