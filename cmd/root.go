package cmd

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/talenthub/internal/session"
	"github.com/spigell/talenthub/internal/storage"
)

const (
	app = "talenthub"
)

type Config struct {
	Server   *ServerConfig   `mapstructure:"server"`
	AI       *AIConfig       `mapstructure:"ai"`
	Identity *IdentityConfig `mapstructure:"identity"`
	Storage  *storage.Config `mapstructure:"storage"`
	Talent   *TalentConfig   `mapstructure:"talent"`
}

type ServerConfig struct {
	Address            string        `mapstructure:"address"`
	BodyLimitMB        int           `mapstructure:"body-limit-mb"`
	SessionIdleTimeout time.Duration `mapstructure:"session-idle-timeout"`
}

type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	Attachments string        `mapstructure:"attachments"`
	Gemini      *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string   `mapstructure:"api-key-file"`
	Model        string   `mapstructure:"model"`
	Temperature  *float32 `mapstructure:"temperature"`
	MaxLogLength int      `mapstructure:"max-log-length"`
}

type IdentityConfig struct {
	Provider string          `mapstructure:"provider"`
	Firebase *FirebaseConfig `mapstructure:"firebase"`
}

type FirebaseConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Endpoint   string `mapstructure:"endpoint"`
}

type TalentConfig struct {
	Directory string `mapstructure:"directory"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "talenthub rates resumes, finds skill gaps and helps recruiters with AI assisted flows",
		// Errors are reported through the logger by every command.
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talenthub.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("server.address", ":3000")
	viper.SetDefault("server.body-limit-mb", 16)
	viper.SetDefault("server.session-idle-timeout", session.DefaultIdleTimeout.String())
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.attachments", "inline")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("identity.provider", "firebase")
	viper.SetDefault("storage.type", storage.TypeNone)
	viper.SetDefault("storage.local.path", "./uploads")
	viper.SetDefault("storage.s3.region", "auto")
}

func initConfig() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Every key has a default, so only an explicitly requested or broken
	// config file is fatal.
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
