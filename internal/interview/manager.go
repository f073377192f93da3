package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/ai"
)

var ErrManagerClosed = errors.New("interview manager is closed")

// EventKind classifies inbound channel events.
type EventKind int

const (
	EventText EventKind = iota
	EventNonText
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventNonText:
		return "non_text"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one inbound message for a candidate identity.
type Event struct {
	Identity string
	Kind     EventKind
	Text     string
}

func TextEvent(identity, text string) Event {
	return Event{Identity: identity, Kind: EventText, Text: text}
}

func NonTextEvent(identity string) Event {
	return Event{Identity: identity, Kind: EventNonText}
}

func ResetEvent(identity string) Event {
	return Event{Identity: identity, Kind: EventReset}
}

// OutcomeKind names the single effect an event produced.
type OutcomeKind string

const (
	OutcomeSent             OutcomeKind = "sent"
	OutcomeFinishedSilently OutcomeKind = "finished_silently"
	OutcomeDropped          OutcomeKind = "dropped"
	OutcomeReset            OutcomeKind = "reset"
)

// Outcome reports what processing an event did.
type Outcome struct {
	Kind OutcomeKind
	// Text is the outbound message when Kind is OutcomeSent.
	Text   string
	Status Status
	Err    error
}

// Notifier carries outbound text to a candidate. It must never fail loudly:
// delivery problems are the channel's business.
type Notifier interface {
	Deliver(ctx context.Context, identity, text string)
}

// Deps are the collaborators of the Manager.
type Deps struct {
	Store      Store
	Classifier ai.Classifier
	Turns      ai.TurnGenerator
	Finalizer  ai.Finalizer
	Notifier   Notifier
	Logger     *zap.Logger
}

type job struct {
	event  Event
	result chan Outcome
}

type worker struct {
	identity string
	queue    chan job
	pending  int
}

// Manager runs the interview state machine. Every identity gets its own worker
// goroutine fed by a FIFO mailbox, so events of one identity are processed
// strictly one at a time and in submission order.
type Manager struct {
	cfg        Config
	store      Store
	classifier ai.Classifier
	turns      ai.TurnGenerator
	finalizer  ai.Finalizer
	notifier   Notifier
	logger     *zap.Logger

	mu      sync.Mutex
	workers map[string]*worker
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewManager(cfg Config, deps Deps) (*Manager, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("session store is required")
	case deps.Classifier == nil:
		return nil, errors.New("classifier is required")
	case deps.Turns == nil:
		return nil, errors.New("turn generator is required")
	case deps.Finalizer == nil:
		return nil, errors.New("finalizer is required")
	case deps.Notifier == nil:
		return nil, errors.New("notifier is required")
	}

	policy, err := ParseEarlyFinish(string(cfg.EarlyFinish))
	if err != nil {
		return nil, err
	}
	cfg.EarlyFinish = policy

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		cfg:        cfg.withDefaults(),
		store:      deps.Store,
		classifier: deps.Classifier,
		turns:      deps.Turns,
		finalizer:  deps.Finalizer,
		notifier:   deps.Notifier,
		logger:     logger,
		workers:    make(map[string]*worker),
		done:       make(chan struct{}),
	}, nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Submit enqueues ev behind any earlier events of the same identity. Callers that
// need arrival order must submit from a single goroutine. The returned channel
// yields exactly one Outcome.
func (m *Manager) Submit(ev Event) (<-chan Outcome, error) {
	ev.Identity = strings.TrimSpace(ev.Identity)
	if ev.Identity == "" {
		return nil, errors.New("event identity is required")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}

	w, ok := m.workers[ev.Identity]
	if !ok {
		w = &worker{identity: ev.Identity, queue: make(chan job, m.cfg.MailboxSize)}
		m.workers[ev.Identity] = w
		m.wg.Add(1)
		go m.run(w)
	}
	w.pending++
	m.mu.Unlock()

	result := make(chan Outcome, 1)
	w.queue <- job{event: ev, result: result}

	return result, nil
}

// Handle submits ev and waits for its outcome.
func (m *Manager) Handle(ctx context.Context, ev Event) (Outcome, error) {
	result, err := m.Submit(ev)
	if err != nil {
		return Outcome{}, err
	}

	select {
	case out := <-result:
		return out, out.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Session returns a snapshot of the identity's session.
func (m *Manager) Session(identity string) (*Session, bool) {
	return m.store.Get(identity)
}

// Close stops accepting events and waits until every queued event is processed.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Manager) run(w *worker) {
	defer m.wg.Done()

	idle := time.NewTimer(m.cfg.WorkerIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case j := <-w.queue:
			m.execute(w, j)
		case <-idle.C:
			if m.retire(w) {
				return
			}
		case <-m.done:
			if m.retire(w) {
				return
			}
			m.execute(w, <-w.queue)
		}

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(m.cfg.WorkerIdleTimeout)
	}
}

func (m *Manager) execute(w *worker, j job) {
	out := m.process(j.event)

	j.result <- out

	m.mu.Lock()
	w.pending--
	m.mu.Unlock()
}

// retire removes an idle worker. It refuses while events are pending.
func (m *Manager) retire(w *worker) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w.pending > 0 {
		return false
	}
	if m.workers[w.identity] == w {
		delete(m.workers, w.identity)
	}
	return true
}

func (m *Manager) process(ev Event) Outcome {
	logger := m.logger.With(zap.String("identity", ev.Identity), zap.Stringer("event", ev.Kind))

	out, err := m.dispatch(logger, ev)
	if err != nil {
		logger.Error("processing event failed", zap.Error(err))
		out = Outcome{Kind: OutcomeDropped, Err: err}
		if session, ok := m.store.Get(ev.Identity); ok {
			out.Status = session.Status
		}
	}

	logger.Debug("event processed", zap.String("outcome", string(out.Kind)), zap.String("status", string(out.Status)))
	return out
}

func (m *Manager) dispatch(logger *zap.Logger, ev Event) (Outcome, error) {
	if ev.Kind == EventReset {
		m.store.Upsert(NewSession(ev.Identity, m.cfg.MaxTurns))
		logger.Info("session reset")
		return Outcome{Kind: OutcomeReset, Status: StatusWaiting}, nil
	}

	session, ok := m.store.Get(ev.Identity)
	if ok && session.Finished() {
		logger.Debug("ignoring message for finished session")
		return Outcome{Kind: OutcomeDropped, Status: StatusFinished}, nil
	}

	switch ev.Kind {
	case EventNonText:
		var status Status
		if ok {
			status = session.Status
		}
		return m.send(ev.Identity, m.cfg.Messages.NonText, status), nil
	case EventText:
		if !ok || session.Status == StatusWaiting {
			return m.start(logger, ev)
		}
		return m.advance(logger, session, ev.Text)
	default:
		return Outcome{}, fmt.Errorf("unsupported event kind %s", ev.Kind)
	}
}

// start opens a new interview with the first candidate message.
func (m *Manager) start(logger *zap.Logger, ev Event) (Outcome, error) {
	session := NewSession(ev.Identity, m.cfg.MaxTurns)
	if err := session.Begin(ev.Text); err != nil {
		return Outcome{}, err
	}

	ctx, cancel := m.backendContext()
	role := m.classifier.Classify(ctx, ev.Text)
	cancel()

	if !role.IsRole() {
		role = ai.RoleUnknown
	}
	if err := session.SetRole(role); err != nil {
		return Outcome{}, err
	}

	logger.Info("interview started", zap.String("role", string(role)))

	if role == ai.RoleUnknown {
		verdict := ai.RoleIncompetent.Verdict()
		return m.conclude(logger, session, verdict, verdict)
	}

	if session.AtLimit() {
		return m.finalize(logger, session)
	}

	return m.respond(logger, session)
}

// advance records a follow-up candidate message and decides between the next
// question and forced finalization. Reaching the limit always finalizes; the
// intermediate question is skipped.
func (m *Manager) advance(logger *zap.Logger, session *Session, text string) (Outcome, error) {
	if err := session.RecordCandidate(text); err != nil {
		return Outcome{}, err
	}

	if session.AtLimit() {
		return m.finalize(logger, session)
	}

	return m.respond(logger, session)
}

func (m *Manager) respond(logger *zap.Logger, session *Session) (Outcome, error) {
	ctx, cancel := m.backendContext()
	result := m.turns.NextTurn(ctx, ai.TurnRequest{
		Role:       session.Role,
		Transcript: append([]ai.Turn(nil), session.Transcript...),
		Turn:       session.TurnCount,
		MaxTurns:   session.Limit,
	})
	cancel()

	// A finish flag always ends the session; only announce says so to the candidate.
	if result.Finish {
		verdict := ai.RoleIncompetent.Verdict()
		if result.Verdict.IsVerdict() {
			verdict = result.Verdict.Verdict()
		}
		logger.Info("interviewer settled early", zap.Int("turn", session.TurnCount), zap.String("verdict", verdict))

		if m.cfg.EarlyFinish == EarlyFinishAnnounce {
			return m.conclude(logger, session, m.cfg.Messages.ClosingPrefix+verdict, verdict)
		}

		if err := session.Finish(verdict); err != nil {
			return Outcome{}, err
		}
		m.store.Upsert(session)
		return Outcome{Kind: OutcomeFinishedSilently, Status: StatusFinished}, nil
	}

	question := strings.TrimSpace(result.Text)
	if question == "" {
		question = m.cfg.Messages.FallbackQuestion
	}

	if err := session.RecordInterviewer(question); err != nil {
		return Outcome{}, err
	}
	m.store.Upsert(session)

	logger.Debug("question asked", zap.Int("turn", session.TurnCount), zap.Bool("fallback", result.Fallback))

	return m.send(session.Identity, question, session.Status), nil
}

func (m *Manager) finalize(logger *zap.Logger, session *Session) (Outcome, error) {
	ctx, cancel := m.backendContext()
	verdict := strings.TrimSpace(m.finalizer.Finalize(ctx, append([]ai.Turn(nil), session.Transcript...)))
	cancel()

	if verdict == "" {
		verdict = ai.RoleIncompetent.Verdict()
	}

	return m.conclude(logger, session, m.cfg.Messages.ClosingPrefix+verdict, verdict)
}

// conclude sends the closing message and moves the session to its terminal state.
func (m *Manager) conclude(logger *zap.Logger, session *Session, message, verdict string) (Outcome, error) {
	if err := session.RecordInterviewer(message); err != nil {
		return Outcome{}, err
	}
	if err := session.Finish(verdict); err != nil {
		return Outcome{}, err
	}
	m.store.Upsert(session)

	logger.Info("interview finished",
		zap.String("role", string(session.Role)),
		zap.Int("turns", session.TurnCount),
		zap.String("verdict", verdict),
	)

	return m.send(session.Identity, message, StatusFinished), nil
}

func (m *Manager) send(identity, text string, status Status) Outcome {
	ctx, cancel := m.backendContext()
	defer cancel()

	m.notifier.Deliver(ctx, identity, text)
	return Outcome{Kind: OutcomeSent, Text: text, Status: status}
}

func (m *Manager) backendContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.cfg.BackendTimeout)
}
