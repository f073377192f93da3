package channel

import (
	"context"
	"fmt"
	"strings"
)

// Mux routes outbound messages to a transport by identity prefix. Identities
// without a registered prefix go to the fallback sender.
type Mux struct {
	routes   []route
	fallback Sender
}

type route struct {
	prefix string
	sender Sender
}

var _ Sender = (*Mux)(nil)

func NewMux(fallback Sender) *Mux {
	return &Mux{fallback: fallback}
}

// Handle registers sender for identities starting with prefix. Longer prefixes win.
func (m *Mux) Handle(prefix string, sender Sender) {
	m.routes = append(m.routes, route{prefix: prefix, sender: sender})
	for i := len(m.routes) - 1; i > 0 && len(m.routes[i].prefix) > len(m.routes[i-1].prefix); i-- {
		m.routes[i], m.routes[i-1] = m.routes[i-1], m.routes[i]
	}
}

func (m *Mux) Send(ctx context.Context, identity, text string) error {
	for _, r := range m.routes {
		if strings.HasPrefix(identity, r.prefix) {
			return r.sender.Send(ctx, identity, text)
		}
	}
	if m.fallback == nil {
		return fmt.Errorf("no transport for identity %q", identity)
	}
	return m.fallback.Send(ctx, identity, text)
}
