// Package app wires configuration into a ready conversation engine for the binaries in cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"gardenDesignAi/internal/config"
	"gardenDesignAi/internal/conversation"
	"gardenDesignAi/internal/events"
	"gardenDesignAi/internal/intent"
	"gardenDesignAi/internal/llm"
	"gardenDesignAi/internal/media"
	"gardenDesignAi/internal/metrics"
	"gardenDesignAi/internal/vision"
)

const generativeLanguageScope = "https://www.googleapis.com/auth/generative-language"

// Runtime bundles the long-lived pieces shared by the HTTP server and the terminal client.
type Runtime struct {
	Engine  *conversation.Engine
	Store   *conversation.Store
	Events  *events.Broker
	Metrics *metrics.Recorder
}

// New builds the runtime. When cfgErr is set the engine only reports the configuration error,
// so the caller can still serve and show it to the user.
func New(ctx context.Context, cfg config.Config, cfgErr error, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{
		Events:  events.NewBroker(),
		Metrics: metrics.New(),
	}

	deps := conversation.Deps{
		Events:  rt.Events,
		Metrics: rt.Metrics,
		Logger:  logger,
		Config: conversation.EngineConfig{
			Lighting:     cfg.Lighting,
			HistoryLimit: cfg.Session.HistoryLimit,
		},
	}

	if cfgErr != nil {
		logger.Error("configuration invalid, every session will report it", zap.Error(cfgErr))
		deps.ConfigErr = cfgErr
	} else if err := wireProviders(ctx, cfg, logger, &deps); err != nil {
		return nil, err
	}

	rt.Engine = conversation.NewEngine(deps)
	rt.Store = conversation.NewStore(cfg.Session.TTL, cfg.Session.MaxSessions, func(s *conversation.Session) {
		rt.Engine.Discard(context.Background(), s)
		rt.Metrics.Sessions(rt.Store.Count())
		logger.Info("session discarded", zap.String("session_id", s.ID))
	})
	return rt, nil
}

func wireProviders(ctx context.Context, cfg config.Config, logger *zap.Logger, deps *conversation.Deps) error {
	gemini := cfg.AI.Gemini
	tokenSource, err := geminiTokenSource(ctx, gemini.ServiceAccountJSON)
	if err != nil {
		return err
	}

	var chat llm.Client
	interpretModel := gemini.InterpretModel
	if cfg.AI.Provider == "openai" && cfg.AI.OpenAI.APIKey != "" {
		chat = llm.NewOpenAIClient(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.Model, gemini.Timeout)
		interpretModel = ""
		logger.Info("chat ready", zap.String("provider", "openai"), zap.String("model", cfg.AI.OpenAI.Model))
	} else {
		chat = llm.NewGeminiClient(gemini.APIKey, gemini.ChatModel, gemini.Timeout, tokenSource)
		logger.Info("chat ready", zap.String("provider", "gemini"), zap.String("model", gemini.ChatModel))
	}
	deps.Chat = chat

	analysisModel := gemini.AnalysisModel
	if analysisModel == "" {
		analysisModel = gemini.ChatModel
	}
	deps.Analyzer = vision.NewGeminiAnalyzer(gemini.APIKey, analysisModel, gemini.Timeout, tokenSource)

	switch cfg.Interpreter {
	case "keyword":
		deps.Interpreter = intent.NewKeywordInterpreter()
	default:
		deps.Interpreter = intent.NewModelInterpreter(chat, interpretModel)
	}
	logger.Info("interpreter ready", zap.String("strategy", cfg.Interpreter))

	switch cfg.Renderer {
	case "imagen":
		deps.Renderer = vision.NewVertexImagen(vision.VertexImagenConfig{
			ProjectID:          cfg.Imagen.ProjectID,
			Location:           cfg.Imagen.Location,
			Model:              cfg.Imagen.Model,
			APIKey:             gemini.APIKey,
			ServiceAccount:     cfg.Imagen.ServiceAccount,
			ServiceAccountJSON: cfg.Imagen.ServiceAccountJSON,
		})
		logger.Info("renderer ready", zap.String("provider", "imagen"), zap.String("model", cfg.Imagen.Model))
	default:
		renderer, err := vision.NewGeminiRenderer(ctx, gemini.APIKey, gemini.ImageModel, gemini.Timeout)
		if err != nil {
			return err
		}
		deps.Renderer = renderer
		logger.Info("renderer ready", zap.String("provider", "gemini"), zap.String("model", gemini.ImageModel))
	}

	publisher, err := newPublisher(ctx, cfg.Media)
	if err != nil {
		return err
	}
	deps.Publisher = publisher
	return nil
}

func geminiTokenSource(ctx context.Context, serviceAccountJSON string) (oauth2.TokenSource, error) {
	if strings.TrimSpace(serviceAccountJSON) == "" {
		return nil, nil
	}
	creds, err := google.CredentialsFromJSON(ctx, []byte(serviceAccountJSON), generativeLanguageScope)
	if err != nil {
		return nil, fmt.Errorf("app: parse gemini service account: %w", err)
	}
	return creds.TokenSource, nil
}

// newPublisher prefers S3 and falls back to the local media directory.
func newPublisher(ctx context.Context, cfg config.MediaConfig) (media.Uploader, error) {
	s3cfg := media.Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		PublicURL:       cfg.PublicURL,
		KeyPrefix:       cfg.KeyPrefix,
		ForcePathStyle:  cfg.ForcePathStyle,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}
	if s3cfg.Enabled() {
		uploader, err := media.NewUploader(ctx, s3cfg)
		if err != nil {
			return nil, fmt.Errorf("app: init media uploader: %w", err)
		}
		return uploader, nil
	}
	local, err := media.NewLocalUploader(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("app: init local media storage: %w", err)
	}
	return local, nil
}

// IsConfigError reports whether err should be shown to the user instead of aborting startup.
func IsConfigError(err error) bool {
	return errors.Is(err, config.ErrMissingAPIKey)
}
