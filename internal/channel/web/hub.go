package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

var ErrNotConnected = errors.New("no open websocket for identity")

// Hub tracks open chat sockets per identity and implements channel.Sender.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *Hub) register(identity string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[identity]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.conns[identity] = set
	}
	set[conn] = struct{}{}
}

func (h *Hub) unregister(identity string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.conns[identity]
	delete(set, conn)
	if len(set) == 0 {
		delete(h.conns, identity)
	}
}

// Connected returns the number of open sockets for identity.
func (h *Hub) Connected(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[identity])
}

// Send writes text to every socket of identity. It fails only if none accepted it.
func (h *Hub) Send(ctx context.Context, identity, text string) error {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[identity]))
	for conn := range h.conns[identity] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return fmt.Errorf("%w: %s", ErrNotConnected, identity)
	}

	var errs []error
	for _, conn := range conns {
		if err := writeJSON(ctx, conn, outbound{Type: typeMessage, Text: text}); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(conns) {
		return errors.Join(errs...)
	}
	return nil
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
