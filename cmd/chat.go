package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/interview"
	"github.com/spigell/hh-screener/internal/logger"
)

const (
	consoleIdentity = "console"

	chatCommandStart = ":start"
	chatCommandFile  = ":file"
	chatCommandQuit  = ":quit"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interview in the terminal (needs only the Gemini key)",
	Run: func(_ *cobra.Command, _ []string) {
		runChat()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// consoleSender prints interviewer messages to the terminal.
type consoleSender struct {
	out io.Writer
}

func (s consoleSender) Send(_ context.Context, _ string, text string) error {
	_, err := fmt.Fprintf(s.out, "interviewer: %s\n", text)
	return err
}

func runChat() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	config = config.withSections()

	apiKey, err := loadGeminiKey(config.AI)
	if err != nil {
		logger.Fatal("loading gemini api key", zap.Error(err))
	}

	ctx := context.Background()

	manager, _, err := newInterviews(ctx, config, apiKey, consoleSender{out: os.Stdout}, "console", logger)
	if err != nil {
		logger.Fatal("building interviews", zap.Error(err))
	}
	defer manager.Close()

	fmt.Printf("Introduce yourself to start. Commands: %s, %s, %s\n", chatCommandStart, chatCommandFile, chatCommandQuit)

	prompt := promptui.Prompt{Label: "you"}
	for {
		line, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("reading input", zap.Error(err))
		}

		ev, quit := consoleEvent(line)
		if quit {
			return
		}
		if ev == nil {
			continue
		}

		out, err := manager.Handle(ctx, *ev)
		if err != nil {
			logger.Error("handling message", zap.Error(err))
			continue
		}

		switch out.Kind {
		case interview.OutcomeReset:
			fmt.Println("(new interview, introduce yourself)")
		case interview.OutcomeDropped, interview.OutcomeFinishedSilently:
			fmt.Printf("(interview finished, type %s to begin again)\n", chatCommandStart)
		}
	}
}

// consoleEvent maps a typed line onto an interview event.
func consoleEvent(line string) (*interview.Event, bool) {
	line = strings.TrimSpace(line)

	var ev interview.Event
	switch line {
	case "":
		return nil, false
	case chatCommandQuit:
		return nil, true
	case chatCommandStart:
		ev = interview.ResetEvent(consoleIdentity)
	case chatCommandFile:
		ev = interview.NonTextEvent(consoleIdentity)
	default:
		ev = interview.TextEvent(consoleIdentity, line)
	}

	return &ev, false
}
