package channel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubSender struct {
	sent  []string
	errs  []error
	calls int
}

func (s *stubSender) Send(_ context.Context, _ string, text string) error {
	s.calls++
	s.sent = append(s.sent, text)
	if len(s.errs) >= s.calls {
		return s.errs[s.calls-1]
	}
	return nil
}

func TestDeliverReplacesEmptyText(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "\n\t"} {
		sender := &stubSender{}
		NewOutbound(sender, Options{}, nil).Deliver(context.Background(), "1", text)

		if len(sender.sent) != 1 || sender.sent[0] != DefaultPlaceholder {
			t.Fatalf("expected placeholder for %q, got %v", text, sender.sent)
		}
	}
}

func TestDeliverTruncatesByRunes(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	long := strings.Repeat("ж", MaxMessageLength+10)

	NewOutbound(sender, Options{}, nil).Deliver(context.Background(), "1", long)

	got := sender.sent[0]
	if n := utf8.RuneCountInString(got); n != MaxMessageLength {
		t.Fatalf("expected %d runes, got %d", MaxMessageLength, n)
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation produced invalid utf-8")
	}
}

func TestDeliverSendsFailureNoticeOnce(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sender := &stubSender{errs: []error{errors.New("boom"), errors.New("still down")}}

	NewOutbound(sender, Options{Name: "test"}, zap.New(core)).Deliver(context.Background(), "99", "question")

	if sender.calls != 2 {
		t.Fatalf("expected exactly two send attempts, got %d", sender.calls)
	}
	if sender.sent[1] != DefaultFailureMessage {
		t.Fatalf("expected failure notice, got %q", sender.sent[1])
	}

	entries := logs.FilterMessage("sending message").All()
	if len(entries) != 1 {
		t.Fatalf("expected one send error log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["identity"] != "99" || fields["channel"] != "test" {
		t.Fatalf("unexpected log fields: %v", fields)
	}
	if logs.FilterMessage("sending failure notice").Len() != 1 {
		t.Fatal("expected failure notice error to be logged")
	}
}

func TestDeliverCustomOptions(t *testing.T) {
	t.Parallel()

	sender := &stubSender{errs: []error{errors.New("boom")}}
	out := NewOutbound(sender, Options{Placeholder: "[none]", FailureMessage: "oops", MaxLength: 3}, nil)

	if got := out.Prepare(""); got != "[no" {
		t.Fatalf("unexpected prepared text %q", got)
	}

	out.Deliver(context.Background(), "1", "hello")
	if sender.sent[0] != "hel" || sender.sent[1] != "oops" {
		t.Fatalf("unexpected sends: %v", sender.sent)
	}
}
