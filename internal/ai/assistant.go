package ai

import "context"

// TurnRequest carries everything the interviewer model is conditioned on.
type TurnRequest struct {
	Role       Role
	Transcript []Turn
	// Turn is the 1-based index of the candidate message being answered.
	Turn     int
	MaxTurns int
}

// TurnResult is the next interviewer move. When Finish is set, Verdict holds the
// label the model settled on and Text is the raw model output.
type TurnResult struct {
	Text     string
	Finish   bool
	Verdict  Role
	Fallback bool
}

// Classifier maps the first candidate message to a role hypothesis.
// Implementations never fail: any problem yields RoleUnknown.
type Classifier interface {
	Classify(ctx context.Context, text string) Role
}

// TurnGenerator produces the next interview question or an early verdict.
// Implementations never fail: any problem yields a fallback question.
type TurnGenerator interface {
	NextTurn(ctx context.Context, req TurnRequest) TurnResult
}

// Finalizer reduces a complete transcript to a bracketed verdict, never empty.
type Finalizer interface {
	Finalize(ctx context.Context, transcript []Turn) string
}
