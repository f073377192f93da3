package gemini

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/ai"
	"github.com/spigell/hh-screener/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string, opts ...Option) (string, error)
}

const defaultClassifierInput = 500

// Classifier asks Gemini for a coarse role hypothesis of the first candidate message.
type Classifier struct {
	generator contentGenerator
	logger    *zap.Logger
	maxInput  int
}

var _ ai.Classifier = (*Classifier)(nil)

func NewClassifier(generator contentGenerator, logger *zap.Logger, maxInput int) *Classifier {
	if maxInput <= 0 {
		maxInput = defaultClassifierInput
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Classifier{
		generator: generator,
		logger:    logger,
		maxInput:  maxInput,
	}
}

// Classify returns a role from the fixed set or ai.RoleUnknown. Backend failures are logged, not returned.
func (c *Classifier) Classify(ctx context.Context, text string) ai.Role {
	text = utils.TruncateRunes(strings.TrimSpace(text), c.maxInput)
	if text == "" {
		return ai.RoleUnknown
	}

	raw, err := c.generator.GenerateContent(ctx, buildClassifyPrompt(), text,
		WithTemperature(0.1),
		WithMaxOutputTokens(50),
		WithStopSequences("\n"),
	)
	if err != nil {
		c.logger.Warn("role classification failed", zap.Error(err))
		return ai.RoleUnknown
	}

	role := ai.ParseRole(raw)
	c.logger.Debug("role classified",
		zap.String("role", string(role)),
		zap.String("raw", utils.TruncateForLog(raw, defaultLogLength)),
	)

	return role
}
