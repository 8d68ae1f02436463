package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned by Load when GOOGLE_API_KEY is not set. The rest of the
// configuration is still usable so the failure can be shown to the user.
var ErrMissingAPIKey = errors.New("config: GOOGLE_API_KEY is not set")

// Config holds runtime configuration values.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	AI          AIConfig
	Interpreter string
	Renderer    string
	Imagen      ImagenConfig
	Media       MediaConfig
	Auth        AuthConfig
	Session     SessionConfig

	Lighting         string
	HTTPWriteTimeout time.Duration
}

// AIConfig selects the text and image providers.
type AIConfig struct {
	Provider string
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
}

// GeminiConfig covers the Google Generative Language API.
type GeminiConfig struct {
	APIKey             string
	ChatModel          string
	ImageModel         string
	InterpretModel     string
	AnalysisModel      string
	Timeout            time.Duration
	ServiceAccountJSON string
}

// OpenAIConfig covers the optional OpenAI text provider.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// ImagenConfig describes the Vertex AI Imagen renderer.
type ImagenConfig struct {
	ProjectID          string
	Location           string
	Model              string
	ServiceAccount     string
	ServiceAccountJSON string
}

// MediaConfig describes where renders are published.
type MediaConfig struct {
	Dir             string
	Bucket          string
	Region          string
	Endpoint        string
	PublicURL       string
	KeyPrefix       string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
}

// AuthConfig enables the shared-password gate when PasswordHash is set.
type AuthConfig struct {
	PasswordHash  string
	SessionSecret string
	SecureCookie  bool
}

// SessionConfig bounds the in-memory conversation store.
type SessionConfig struct {
	TTL          time.Duration
	MaxSessions  int
	HistoryLimit int
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv loads configuration from environment variables and applies defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:      getenv("APP_PORT", "8080"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
		AI: AIConfig{
			Provider: strings.ToLower(getenv("AI_PROVIDER", "gemini")),
			Gemini: GeminiConfig{
				APIKey:             strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
				ChatModel:          getenv("GEMINI_CHAT_MODEL", "gemini-3-flash-preview"),
				ImageModel:         getenv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
				InterpretModel:     os.Getenv("GEMINI_INTERPRET_MODEL"),
				AnalysisModel:      os.Getenv("GEMINI_ANALYSIS_MODEL"),
				Timeout:            getenvDuration("GEMINI_TIMEOUT", 120*time.Second),
				ServiceAccountJSON: os.Getenv("GEMINI_SERVICE_ACCOUNT_JSON"),
			},
			OpenAI: OpenAIConfig{
				APIKey: os.Getenv("OPENAI_API_KEY"),
				Model:  getenv("OPENAI_MODEL", "gpt-4o-mini"),
			},
		},
		Interpreter: strings.ToLower(getenv("INTERPRETER", "model")),
		Renderer:    strings.ToLower(getenv("RENDERER", "gemini")),
		Imagen: ImagenConfig{
			ProjectID:          os.Getenv("IMAGEN_PROJECT_ID"),
			Location:           getenv("IMAGEN_LOCATION", "us-central1"),
			Model:              getenv("IMAGEN_MODEL", "imagen-3.0-capability-001"),
			ServiceAccount:     os.Getenv("IMAGEN_SERVICE_ACCOUNT"),
			ServiceAccountJSON: os.Getenv("IMAGEN_SERVICE_ACCOUNT_JSON"),
		},
		Media: MediaConfig{
			Dir:             os.Getenv("MEDIA_DIR"),
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          os.Getenv("S3_REGION"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			PublicURL:       os.Getenv("S3_PUBLIC_URL"),
			KeyPrefix:       strings.Trim(os.Getenv("S3_KEY_PREFIX"), "/"),
			ForcePathStyle:  getenvBool("S3_FORCE_PATH_STYLE", false),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Auth: AuthConfig{
			PasswordHash:  os.Getenv("ACCESS_PASSWORD_HASH"),
			SessionSecret: os.Getenv("SESSION_SECRET"),
			SecureCookie:  getenvBool("SECURE_COOKIE", false),
		},
		Session: SessionConfig{
			TTL:          getenvDuration("SESSION_TTL", 2*time.Hour),
			MaxSessions:  getenvInt("MAX_SESSIONS", 200),
			HistoryLimit: getenvInt("HISTORY_LIMIT", 40),
		},
		Lighting:         getenv("RENDER_LIGHTING", "golden hour, late afternoon"),
		HTTPWriteTimeout: getenvDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
	}

	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, fmt.Errorf("config: APP_PORT cannot be empty")
	}
	switch cfg.Interpreter {
	case "model", "keyword":
	default:
		return cfg, fmt.Errorf("config: INTERPRETER must be model or keyword, got %q", cfg.Interpreter)
	}
	switch cfg.Renderer {
	case "gemini", "imagen":
	default:
		return cfg, fmt.Errorf("config: RENDERER must be gemini or imagen, got %q", cfg.Renderer)
	}
	if cfg.AI.Gemini.APIKey == "" {
		return cfg, ErrMissingAPIKey
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getenvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}

	return parsed
}

func getenvInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(os.Getenv(key))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(os.Getenv(key))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
