package interview

import (
	"errors"
	"fmt"
	"time"

	"github.com/spigell/hh-screener/internal/ai"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

var (
	ErrSessionFinished   = errors.New("session is finished")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrTurnLimit         = errors.New("turn limit reached")
	ErrRoleAlreadySet    = errors.New("role hypothesis already set")
)

var transitions = map[Status][]Status{
	StatusWaiting: {StatusActive},
	StatusActive:  {StatusFinished},
}

// Session is the per-candidate interview record.
type Session struct {
	Identity   string    `json:"identity"`
	Status     Status    `json:"status"`
	TurnCount  int       `json:"turn_count"`
	Limit      int       `json:"limit"`
	Role       ai.Role   `json:"role,omitempty"`
	Transcript []ai.Turn `json:"transcript"`
	Verdict    string    `json:"verdict,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSession returns a waiting session with the given turn budget.
func NewSession(identity string, limit int) *Session {
	return &Session{
		Identity:   identity,
		Status:     StatusWaiting,
		Limit:      limit,
		Transcript: make([]ai.Turn, 0, 2*limit),
		UpdatedAt:  time.Now(),
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Transcript = make([]ai.Turn, len(s.Transcript))
	copy(clone.Transcript, s.Transcript)
	return &clone
}

// Finished reports whether the session reached its absorbing state.
func (s *Session) Finished() bool {
	return s.Status == StatusFinished
}

func (s *Session) transition(to Status) error {
	if s.Status == StatusFinished {
		return ErrSessionFinished
	}
	for _, allowed := range transitions[s.Status] {
		if allowed == to {
			s.Status = to
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
}

// Begin activates a waiting session with the first candidate message.
func (s *Session) Begin(text string) error {
	if err := s.transition(StatusActive); err != nil {
		return err
	}
	s.TurnCount = 1
	s.Transcript = append(s.Transcript[:0], ai.Turn{Speaker: ai.SpeakerCandidate, Text: text})
	return nil
}

// SetRole commits the role hypothesis. It can be set only once.
func (s *Session) SetRole(role ai.Role) error {
	if s.Status == StatusFinished {
		return ErrSessionFinished
	}
	if s.Role != "" {
		return ErrRoleAlreadySet
	}
	s.Role = role
	return nil
}

// RecordCandidate appends a candidate message and advances the turn counter.
func (s *Session) RecordCandidate(text string) error {
	if s.Status != StatusActive {
		return s.stateError()
	}
	if s.Limit > 0 && s.TurnCount >= s.Limit {
		return ErrTurnLimit
	}
	s.TurnCount++
	s.Transcript = append(s.Transcript, ai.Turn{Speaker: ai.SpeakerCandidate, Text: text})
	s.UpdatedAt = time.Now()
	return nil
}

// RecordInterviewer appends an interviewer turn that was (or is about to be) sent.
func (s *Session) RecordInterviewer(text string) error {
	if s.Status != StatusActive {
		return s.stateError()
	}
	s.Transcript = append(s.Transcript, ai.Turn{Speaker: ai.SpeakerInterviewer, Text: text})
	s.UpdatedAt = time.Now()
	return nil
}

// Finish stores the verdict and moves the session to its terminal state.
func (s *Session) Finish(verdict string) error {
	if err := s.transition(StatusFinished); err != nil {
		return err
	}
	s.Verdict = verdict
	return nil
}

// AtLimit reports whether the turn budget is spent.
func (s *Session) AtLimit() bool {
	return s.Limit > 0 && s.TurnCount >= s.Limit
}

func (s *Session) stateError() error {
	if s.Status == StatusFinished {
		return ErrSessionFinished
	}
	return fmt.Errorf("%w: session is %s", ErrInvalidTransition, s.Status)
}
