package interview

import (
	"fmt"
	"strings"
	"time"
)

// EarlyFinish controls what happens when the interviewer model settles on a
// verdict before the turn budget is spent.
type EarlyFinish string

const (
	// EarlyFinishOff keeps the interviewer from looking for verdicts, so model
	// output is sent as a question. A finish flag that still arrives ends the
	// session silently.
	EarlyFinishOff EarlyFinish = "off"
	// EarlyFinishSilent detects verdicts and ends the session without sending anything.
	EarlyFinishSilent EarlyFinish = "silent"
	// EarlyFinishAnnounce detects verdicts and ends the session with the closing message.
	EarlyFinishAnnounce EarlyFinish = "announce"
)

// ParseEarlyFinish validates a policy name. Empty means EarlyFinishOff.
func ParseEarlyFinish(s string) (EarlyFinish, error) {
	switch policy := EarlyFinish(strings.ToLower(strings.TrimSpace(s))); policy {
	case "":
		return EarlyFinishOff, nil
	case EarlyFinishOff, EarlyFinishSilent, EarlyFinishAnnounce:
		return policy, nil
	default:
		return "", fmt.Errorf("unknown early finish policy %q (want off, silent or announce)", s)
	}
}

// Messages are the fixed texts the interviewer sends on its own.
type Messages struct {
	ClosingPrefix    string
	NonText          string
	FallbackQuestion string
}

// Config tunes the session state machine.
type Config struct {
	MaxTurns    int
	EarlyFinish EarlyFinish
	// BackendTimeout bounds every classifier, generator and finalizer call.
	BackendTimeout    time.Duration
	WorkerIdleTimeout time.Duration
	MailboxSize       int
	Messages          Messages
}

const (
	DefaultMaxTurns         = 10
	DefaultClosingPrefix    = "Thank you for your honest answers! "
	DefaultNonTextMessage   = "Please use text messages."
	DefaultFallbackQuestion = "Could you describe your most recent project?"
)

// DefaultConfig returns the reference interview settings.
func DefaultConfig() Config {
	return Config{
		MaxTurns:          DefaultMaxTurns,
		EarlyFinish:       EarlyFinishOff,
		BackendTimeout:    60 * time.Second,
		WorkerIdleTimeout: 5 * time.Minute,
		MailboxSize:       16,
		Messages: Messages{
			ClosingPrefix:    DefaultClosingPrefix,
			NonText:          DefaultNonTextMessage,
			FallbackQuestion: DefaultFallbackQuestion,
		},
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxTurns <= 0 {
		c.MaxTurns = def.MaxTurns
	}
	if c.EarlyFinish == "" {
		c.EarlyFinish = def.EarlyFinish
	}
	if c.BackendTimeout <= 0 {
		c.BackendTimeout = def.BackendTimeout
	}
	if c.WorkerIdleTimeout <= 0 {
		c.WorkerIdleTimeout = def.WorkerIdleTimeout
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = def.MailboxSize
	}
	if c.Messages.ClosingPrefix == "" {
		c.Messages.ClosingPrefix = def.Messages.ClosingPrefix
	}
	if strings.TrimSpace(c.Messages.NonText) == "" {
		c.Messages.NonText = def.Messages.NonText
	}
	if strings.TrimSpace(c.Messages.FallbackQuestion) == "" {
		c.Messages.FallbackQuestion = def.Messages.FallbackQuestion
	}
	return c
}
