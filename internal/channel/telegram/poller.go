package telegram

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/interview"
	"github.com/spigell/hh-screener/internal/logger"
	"github.com/spigell/hh-screener/internal/utils"
)

const (
	ChannelName = "telegram"

	defaultPollTimeout = 30 * time.Second
	defaultBackoff     = 3 * time.Second
)

// Submitter accepts inbound events in arrival order.
type Submitter interface {
	Submit(ev interview.Event) (<-chan interview.Outcome, error)
}

type PollerOptions struct {
	Timeout time.Duration
	Backoff time.Duration
	// DropPending discards updates that queued up while the bot was offline.
	DropPending bool
}

// Poller feeds Telegram updates into the interview manager.
type Poller struct {
	client    *Client
	submitter Submitter
	logger    *zap.Logger
	opts      PollerOptions
	offset    int64
}

func NewPoller(client *Client, submitter Submitter, log *zap.Logger, opts PollerOptions) *Poller {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPollTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Poller{
		client:    client,
		submitter: submitter,
		logger:    log,
		opts:      opts,
	}
}

// Run polls until ctx is cancelled. Poll failures are logged and retried.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.client.DeleteWebhook(ctx, p.opts.DropPending); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	p.logger.Info("telegram polling started", zap.Duration("timeout", p.opts.Timeout))

	for {
		if ctx.Err() != nil {
			p.logger.Info("telegram polling stopped")
			return nil
		}

		if err := p.poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}

			wait := p.opts.Backoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = time.Duration(apiErr.RetryAfter) * time.Second
			}

			p.logger.Warn("polling updates failed", zap.Error(err), zap.Duration("retry_in", wait))
			_ = utils.WaitFor(ctx, wait)
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	updates, err := p.client.GetUpdates(ctx, p.offset, p.opts.Timeout)
	if err != nil {
		return err
	}

	for _, u := range updates {
		if u == nil {
			continue
		}
		if u.ID >= p.offset {
			p.offset = u.ID + 1
		}
		p.dispatch(u)
	}

	return nil
}

func (p *Poller) dispatch(u *Update) {
	msg := u.Payload()
	if msg == nil {
		p.logger.Debug("skipping update without message", zap.Int64("update_id", u.ID))
		return
	}

	ev := msg.Event()
	log := logger.ForConversation(p.logger, ChannelName, ev.Identity)

	if _, err := p.submitter.Submit(ev); err != nil {
		log.Error("submitting event", zap.Stringer("event", ev.Kind), zap.Error(err))
		return
	}

	log.Debug("event submitted", zap.Stringer("event", ev.Kind), zap.Int64("update_id", u.ID))
}
