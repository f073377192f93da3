package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/channel"
	"github.com/spigell/hh-screener/internal/channel/telegram"
	"github.com/spigell/hh-screener/internal/channel/web"
	"github.com/spigell/hh-screener/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the screening bot",
	Run: func(_ *cobra.Command, _ []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "address for the http/websocket surface, e.g. :8080 (disabled when empty)")
	serveCmd.Flags().Bool("expose-sessions", false, "serve /api/sessions/{identity} transcripts (no auth, operators only)")
	serveCmd.Flags().String("early-finish", "", "what to do when the model settles early: off, silent or announce")

	viper.BindPFlag("http.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("http.expose-sessions", serveCmd.Flags().Lookup("expose-sessions"))
	viper.BindPFlag("interview.early-finish", serveCmd.Flags().Lookup("early-finish"))
}

func runServe() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hh-screener", zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, config, logger); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("stopped")
}

// serve runs the bot until ctx is done. Credentials are resolved before
// anything else is built, so a misconfigured process never accepts a message.
func serve(ctx context.Context, config *Config, logger *zap.Logger) error {
	config = config.withSections()

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	token, err := loadTelegramToken(config.Telegram)
	if err != nil {
		return fmt.Errorf("loading telegram token: %w", err)
	}

	apiKey, err := loadGeminiKey(config.AI)
	if err != nil {
		return fmt.Errorf("loading gemini api key: %w", err)
	}

	tg := telegram.New(logger.With(zap.String("channel", telegram.ChannelName)), token)
	if url := strings.TrimSpace(config.Telegram.APIURL); url != "" {
		tg.APIURL = url
	}

	hub := web.NewHub()
	sender := channel.NewMux(tg)
	sender.Handle(web.IdentityPrefix, hub)

	manager, _, err := newInterviews(ctx, config, apiKey, sender, "bot", logger)
	if err != nil {
		return fmt.Errorf("building interviews: %w", err)
	}
	defer manager.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	runners := 1

	poller := telegram.NewPoller(tg, manager, logger, telegram.PollerOptions{
		Timeout:     config.Telegram.PollTimeout,
		DropPending: config.Telegram.DropPending,
	})
	go func() {
		errCh <- poller.Run(ctx)
	}()

	if listen := strings.TrimSpace(config.HTTP.Listen); listen != "" {
		runners++
		srv := web.NewServer(manager, hub, logger)
		srv.ExposeSessions = config.HTTP.ExposeSessions
		go func() {
			errCh <- srv.ListenAndServe(ctx, listen)
		}()
	}

	var firstErr error
	for i := 0; i < runners; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	return firstErr
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) *Config {
	out := *config
	if config.Telegram != nil {
		tg := *config.Telegram
		if tg.Token != "" {
			tg.Token = "***"
		}
		out.Telegram = &tg
	}
	if config.AI != nil && config.AI.Gemini != nil {
		aiCfg := *config.AI
		g := *config.AI.Gemini
		if g.APIKey != "" {
			g.APIKey = "***"
		}
		aiCfg.Gemini = &g
		out.AI = &aiCfg
	}
	return &out
}
