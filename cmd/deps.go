package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/ai/gemini"
	"github.com/spigell/talenthub/internal/document"
	"github.com/spigell/talenthub/internal/flows"
	"github.com/spigell/talenthub/internal/identity/firebase"
	"github.com/spigell/talenthub/internal/logger"
	"github.com/spigell/talenthub/internal/secrets"
	"github.com/spigell/talenthub/internal/session"
	"github.com/spigell/talenthub/internal/storage"
	"github.com/spigell/talenthub/internal/talent"
)

// setup builds the logger and reads the config. Failures here are fatal.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}
	if config.Server == nil {
		config.Server = &ServerConfig{Address: ":3000"}
	}

	return logger, config
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		cfg.Gemini = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or set ai.gemini.api-key-file)", err)
	}

	mode, err := gemini.ParseAttachmentMode(cfg.Attachments)
	if err != nil {
		return nil, err
	}

	return gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:        cfg.Gemini.Model,
		Temperature:  cfg.Gemini.Temperature,
		Attachments:  mode,
		MaxLogLength: cfg.Gemini.MaxLogLength,
		Logger:       log,
	})
}

func newFlows(ctx context.Context, cfg *Config, log *zap.Logger) (*flows.Service, error) {
	generator, err := newGenerator(ctx, cfg.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building ai generator: %w", err)
	}

	log.Info("model configured",
		logger.CommonFields(generator.Provider(), generator.Model())...,
	)
	return flows.New(generator, flows.WithLogger(log)), nil
}

func newIdentity(cfg *IdentityConfig, log *zap.Logger) (session.IdentityProvider, error) {
	if cfg == nil {
		cfg = &IdentityConfig{}
	}
	if p := strings.TrimSpace(strings.ToLower(cfg.Provider)); p != "" && p != "firebase" {
		return nil, fmt.Errorf("unsupported identity provider: %s", cfg.Provider)
	}
	if cfg.Firebase == nil {
		cfg.Firebase = &FirebaseConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "firebase web api key",
		File: cfg.Firebase.APIKeyFile,
		Env:  "FIREBASE_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or set identity.firebase.api-key-file)", err)
	}

	client := firebase.New(log.With(zap.String("component", "identity")), apiKey)
	if cfg.Firebase.Endpoint != "" {
		client.APIURL = cfg.Firebase.Endpoint
	}
	return client, nil
}

// newStore returns nil when archiving is disabled.
func newStore(ctx context.Context, cfg *storage.Config) (storage.Store, error) {
	if cfg != nil && cfg.S3 != nil && strings.EqualFold(cfg.Type, storage.TypeS3) {
		// Keys are optional: without them the default AWS credential chain applies.
		cfg.S3.AccessKey, _ = secrets.Load(secrets.Source{
			Name: "s3 access key",
			File: cfg.S3.AccessKeyFile,
			Env:  "S3_ACCESS_KEY_ID",
		})
		cfg.S3.SecretKey, _ = secrets.Load(secrets.Source{
			Name: "s3 secret key",
			File: cfg.S3.SecretKeyFile,
			Env:  "S3_SECRET_ACCESS_KEY",
		})
	}
	return storage.New(ctx, cfg)
}

func loadTalent(cfg *TalentConfig) (*talent.Candidates, error) {
	if cfg == nil {
		return talent.Default(), nil
	}
	return talent.Load(cfg.Directory)
}

// loadResume reads the resume from a path or from blob storage by reference.
func loadResume(ctx context.Context, cfg *Config, path, ref string) (document.Document, error) {
	path, ref = strings.TrimSpace(path), strings.TrimSpace(ref)
	switch {
	case path != "" && ref != "":
		return document.Document{}, fmt.Errorf("use either a resume path or a resume reference, not both")
	case ref != "":
		store, err := newStore(ctx, cfg.Storage)
		if err != nil {
			return document.Document{}, err
		}
		if store == nil {
			return document.Document{}, fmt.Errorf("document storage is not configured (storage.type is none)")
		}
		return store.Get(ctx, storage.Ref(ref))
	case path != "":
		return document.FromFile(path)
	}
	// Left empty for validation to report.
	return document.Document{}, nil
}
