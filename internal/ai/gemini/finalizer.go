package gemini

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/ai"
	"github.com/spigell/hh-screener/internal/utils"
)

// Finalizer produces the terminal verdict once the turn budget is spent.
type Finalizer struct {
	generator contentGenerator
	logger    *zap.Logger
}

var _ ai.Finalizer = (*Finalizer)(nil)

func NewFinalizer(generator contentGenerator, logger *zap.Logger) *Finalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finalizer{generator: generator, logger: logger}
}

// Finalize always returns a bracketed label from the verdict set.
func (f *Finalizer) Finalize(ctx context.Context, transcript []ai.Turn) string {
	fallback := ai.RoleIncompetent.Verdict()

	raw, err := f.generator.GenerateContent(ctx, buildVerdictPrompt(), ai.FormatTranscript(transcript),
		WithTemperature(0.1),
		WithMaxOutputTokens(100),
	)
	if err != nil {
		f.logger.Warn("final verdict generation failed", zap.Error(err))
		return fallback
	}

	if verdict, ok := ai.ParseVerdict(raw); ok {
		return verdict.Verdict()
	}

	// The model sometimes drops the brackets around a valid label.
	if role := ai.ParseRole(raw); role.IsVerdict() {
		f.logger.Debug("final verdict parsed without brackets", zap.String("role", string(role)))
		return role.Verdict()
	}

	f.logger.Warn("final verdict not recognised",
		zap.String("raw", utils.TruncateForLog(raw, defaultLogLength)),
	)
	return fallback
}
