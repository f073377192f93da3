// Package channel holds the transport-independent half of the chat adapters.
package channel

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/interview"
	"github.com/spigell/hh-screener/internal/logger"
	"github.com/spigell/hh-screener/internal/utils"
)

// Sender pushes a text message to one chat identity.
type Sender interface {
	Send(ctx context.Context, identity, text string) error
}

const (
	MaxMessageLength      = 4000
	DefaultPlaceholder    = "[Incompetent candidate]"
	DefaultFailureMessage = "Something went wrong. Please try again later."
)

// Options tune the outbound wrapper. Zero values fall back to defaults.
type Options struct {
	Name           string
	Placeholder    string
	FailureMessage string
	MaxLength      int
}

// Outbound adapts a transport Sender to the interview Notifier contract: it
// never sends empty text, never exceeds the transport limit and never reports
// failures back to the state machine.
type Outbound struct {
	sender Sender
	opts   Options
	logger *zap.Logger
}

var _ interview.Notifier = (*Outbound)(nil)

func NewOutbound(sender Sender, opts Options, log *zap.Logger) *Outbound {
	if strings.TrimSpace(opts.Placeholder) == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	if strings.TrimSpace(opts.FailureMessage) == "" {
		opts.FailureMessage = DefaultFailureMessage
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = MaxMessageLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Outbound{sender: sender, opts: opts, logger: log}
}

// Prepare returns the text that would actually go over the wire.
func (o *Outbound) Prepare(text string) string {
	if strings.TrimSpace(text) == "" {
		text = o.opts.Placeholder
	}
	return utils.TruncateRunes(text, o.opts.MaxLength)
}

// Deliver sends text. If the transport refuses, one attempt is made to send the
// generic failure notice instead.
func (o *Outbound) Deliver(ctx context.Context, identity, text string) {
	log := logger.ForConversation(o.logger, o.opts.Name, identity)

	msg := o.Prepare(text)
	err := o.sender.Send(ctx, identity, msg)
	if err == nil {
		log.Debug("message sent", zap.Int("length", len([]rune(msg))))
		return
	}

	log.Error("sending message", zap.Error(err), zap.String("text", utils.TruncateForLog(msg, 120)))

	if err := o.sender.Send(ctx, identity, o.opts.FailureMessage); err != nil {
		log.Error("sending failure notice", zap.Error(err))
	}
}
