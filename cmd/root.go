package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hh-screener"
)

type Config struct {
	Telegram  *TelegramConfig  `mapstructure:"telegram"`
	AI        *AIConfig        `mapstructure:"ai"`
	Interview *InterviewConfig `mapstructure:"interview"`
	Messages  *MessagesConfig  `mapstructure:"messages"`
	HTTP      *HTTPConfig      `mapstructure:"http"`
}

type TelegramConfig struct {
	TokenFile   string        `mapstructure:"token-file"`
	Token       string        `mapstructure:"token"`
	APIURL      string        `mapstructure:"api-url"`
	PollTimeout time.Duration `mapstructure:"poll-timeout"`
	DropPending bool          `mapstructure:"drop-pending"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	APIKey       string `mapstructure:"api-key"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type InterviewConfig struct {
	MaxTurns             int           `mapstructure:"max-turns"`
	EarlyFinish          string        `mapstructure:"early-finish"`
	ClassifierInputLimit int           `mapstructure:"classifier-input-limit"`
	BackendTimeout       time.Duration `mapstructure:"backend-timeout"`
	SessionsCapacity     int           `mapstructure:"sessions-capacity"`
	WorkerIdleTimeout    time.Duration `mapstructure:"worker-idle-timeout"`
	MailboxSize          int           `mapstructure:"mailbox-size"`
}

type MessagesConfig struct {
	ClosingPrefix    string `mapstructure:"closing-prefix"`
	NonText          string `mapstructure:"non-text"`
	SendFailure      string `mapstructure:"send-failure"`
	Placeholder      string `mapstructure:"placeholder"`
	FallbackQuestion string `mapstructure:"fallback-question"`
}

type HTTPConfig struct {
	Listen string `mapstructure:"listen"`
	// ExposeSessions serves candidate transcripts with no access control.
	// Enable it only on a listener reachable by operators, e.g. 127.0.0.1:8080.
	ExposeSessions bool `mapstructure:"expose-sessions"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-screener runs automated screening interviews in Telegram",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"telegram.token-file":    "TELEGRAM_TOKEN_FILE",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("telegram.poll-timeout", "30s")
	viper.SetDefault("interview.early-finish", "off")
	viper.SetDefault("http.expose-sessions", false)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Only the interview commands need configuration.
	if serveCmd.CalledAs() == "" && chatCmd.CalledAs() == "" {
		return
	}

	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit --config the file is optional: everything can come from the environment.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
