package gemini

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/ai"
)

// DefaultFallbackQuestion is asked whenever the model cannot produce a turn.
const DefaultFallbackQuestion = "Could you describe your most recent project?"

// InterviewerConfig tunes turn generation.
type InterviewerConfig struct {
	// DetectVerdicts turns a bracketed verdict in the model output into a finish signal.
	DetectVerdicts   bool
	FallbackQuestion string
}

// Interviewer generates the next question of the interview.
type Interviewer struct {
	generator contentGenerator
	logger    *zap.Logger
	config    InterviewerConfig
}

var _ ai.TurnGenerator = (*Interviewer)(nil)

func NewInterviewer(generator contentGenerator, logger *zap.Logger, cfg InterviewerConfig) *Interviewer {
	if strings.TrimSpace(cfg.FallbackQuestion) == "" {
		cfg.FallbackQuestion = DefaultFallbackQuestion
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Interviewer{
		generator: generator,
		logger:    logger,
		config:    cfg,
	}
}

// NextTurn asks for a question conditioned on the fixed role hypothesis, the whole
// transcript and the turn index.
func (i *Interviewer) NextTurn(ctx context.Context, req ai.TurnRequest) ai.TurnResult {
	fields := []zap.Field{
		zap.String("role", string(req.Role)),
		zap.Int("turn", req.Turn),
	}

	raw, err := i.generator.GenerateContent(ctx,
		buildInterviewPrompt(req.Role, req.Turn, req.MaxTurns),
		ai.FormatTranscript(req.Transcript),
		WithTemperature(0.7),
		WithMaxOutputTokens(150),
	)
	raw = strings.TrimSpace(raw)
	if err != nil || raw == "" {
		i.logger.Warn("turn generation failed, using fallback question", append(fields, zap.Error(err))...)
		return ai.TurnResult{Text: i.config.FallbackQuestion, Fallback: true}
	}

	result := ai.TurnResult{Text: raw}
	if !i.config.DetectVerdicts {
		return result
	}

	if verdict, ok := ai.ParseVerdict(raw); ok {
		i.logger.Info("early verdict detected", append(fields, zap.String("verdict", string(verdict)))...)
		result.Finish = true
		result.Verdict = verdict
	}

	return result
}
