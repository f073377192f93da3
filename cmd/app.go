package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/ai/gemini"
	"github.com/spigell/hh-screener/internal/channel"
	"github.com/spigell/hh-screener/internal/interview"
	"github.com/spigell/hh-screener/internal/logger"
	"github.com/spigell/hh-screener/internal/secrets"
)

const providerGemini = "gemini"

// withSections makes every optional config section non-nil.
func (c *Config) withSections() *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Telegram == nil {
		c.Telegram = &TelegramConfig{}
	}
	if c.AI == nil {
		c.AI = &AIConfig{}
	}
	if c.AI.Gemini == nil {
		c.AI.Gemini = &GeminiConfig{}
	}
	if c.Interview == nil {
		c.Interview = &InterviewConfig{}
	}
	if c.Messages == nil {
		c.Messages = &MessagesConfig{}
	}
	if c.HTTP == nil {
		c.HTTP = &HTTPConfig{}
	}
	return c
}

func loadTelegramToken(cfg *TelegramConfig) (string, error) {
	token, err := secrets.Load(secrets.Source{
		Name:  "telegram bot token",
		File:  cfg.TokenFile,
		Value: cfg.Token,
		Env:   []string{"BOT_TOKEN"},
	})
	if err != nil {
		return "", fmt.Errorf("%w (set telegram.token-file, TELEGRAM_TOKEN_FILE or BOT_TOKEN)", err)
	}
	return token, nil
}

func loadGeminiKey(cfg *AIConfig) (string, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != providerGemini {
		return "", fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   []string{"GEMINI_API_KEY"},
	})
	if err != nil {
		return "", fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}
	return apiKey, nil
}

func interviewConfig(cfg *Config) (interview.Config, error) {
	policy, err := interview.ParseEarlyFinish(cfg.Interview.EarlyFinish)
	if err != nil {
		return interview.Config{}, err
	}

	return interview.Config{
		MaxTurns:          cfg.Interview.MaxTurns,
		EarlyFinish:       policy,
		BackendTimeout:    cfg.Interview.BackendTimeout,
		WorkerIdleTimeout: cfg.Interview.WorkerIdleTimeout,
		MailboxSize:       cfg.Interview.MailboxSize,
		Messages: interview.Messages{
			ClosingPrefix:    cfg.Messages.ClosingPrefix,
			NonText:          cfg.Messages.NonText,
			FallbackQuestion: cfg.Messages.FallbackQuestion,
		},
	}, nil
}

func outboundOptions(cfg *Config, name string) channel.Options {
	return channel.Options{
		Name:           name,
		Placeholder:    cfg.Messages.Placeholder,
		FailureMessage: cfg.Messages.SendFailure,
	}
}

// newInterviews wires the Gemini components, the session store and the state
// machine around the given outbound sender.
func newInterviews(ctx context.Context, cfg *Config, apiKey string, sender channel.Sender, senderName string, log *zap.Logger) (*interview.Manager, *interview.MemoryStore, error) {
	icfg, err := interviewConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	gcfg := cfg.AI.Gemini
	genLogger := log.With(zap.Int("ai_retry_attempts", gcfg.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, genLogger)
	if err != nil {
		return nil, nil, err
	}
	generator.SetMaxLogLength(gcfg.MaxLogLength)

	aiLogger := logger.WithCommonFields(log, providerGemini, generator.Model())

	store, err := interview.NewMemoryStore(cfg.Interview.SessionsCapacity)
	if err != nil {
		return nil, nil, err
	}

	manager, err := interview.NewManager(icfg, interview.Deps{
		Store:      store,
		Classifier: gemini.NewClassifier(generator, aiLogger, cfg.Interview.ClassifierInputLimit),
		Turns: gemini.NewInterviewer(generator, aiLogger, gemini.InterviewerConfig{
			DetectVerdicts:   icfg.EarlyFinish != interview.EarlyFinishOff,
			FallbackQuestion: cfg.Messages.FallbackQuestion,
		}),
		Finalizer: gemini.NewFinalizer(generator, aiLogger),
		Notifier:  channel.NewOutbound(sender, outboundOptions(cfg, senderName), log),
		Logger:    log,
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info("interviews ready",
		zap.String("model", generator.Model()),
		zap.Int("max_turns", manager.Config().MaxTurns),
		zap.String("early_finish", string(manager.Config().EarlyFinish)),
	)

	return manager, store, nil
}
