package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP
	Port           string   `long:"port" env:"PORT" default:"3000" description:"HTTP server port"`
	AllowedOrigins []string `long:"allowed-origin" env:"ALLOWED_ORIGINS" env-delim:"," default:"http://localhost:5173" description:"Origins allowed to call the API"`
	PublicBaseURL  string   `long:"public-base-url" env:"PUBLIC_BASE_URL" default:"http://localhost:5173" description:"Base URL of the web app, used in embed and feed links"`
	APIBaseURL     string   `long:"api-base-url" env:"API_BASE_URL" description:"Externally visible origin of this API (derived from the request when empty)"`
	TrustedProxies []string `long:"trusted-proxy" env:"TRUSTED_PROXIES" env-delim:"," description:"Proxy addresses or CIDR ranges whose X-Forwarded-* headers are trusted"`

	// Logging
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"trace, debug, info, warn or error"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"console" choice:"console" choice:"json" description:"Log output format"`

	// Database
	DatabaseURL   string `long:"database-url" env:"DATABASE_URL" description:"Postgres DSN; when empty the Supabase REST API is used"`
	RunMigrations bool   `long:"migrate" env:"RUN_MIGRATIONS" description:"Apply embedded migrations on start"`

	// Supabase
	SupabaseURL       string `long:"supabase-url" env:"SUPABASE_URL" description:"Supabase project URL"`
	SupabaseKey       string `long:"supabase-key" env:"SUPABASE_SERVICE_ROLE_KEY" description:"Supabase service role key"`
	SupabaseJWTSecret string `long:"supabase-jwt-secret" env:"SUPABASE_JWT_SECRET" description:"Verify access tokens locally with this secret instead of calling GoTrue"`

	// Storage
	StorageBackend string `long:"storage" env:"STORAGE_BACKEND" default:"supabase" choice:"supabase" choice:"s3" choice:"gcs" description:"Object store for covers and audio"`
	Bucket         string `long:"bucket" env:"STORAGE_BUCKET" default:"podcasts" description:"Bucket name"`
	S3Region       string `long:"s3-region" env:"S3_REGION" default:"us-east-1"`
	S3Endpoint     string `long:"s3-endpoint" env:"S3_ENDPOINT" description:"Custom S3-compatible endpoint"`
	S3AccessKey    string `long:"s3-access-key" env:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string `long:"s3-secret-key" env:"S3_SECRET_ACCESS_KEY"`
	S3PublicBase   string `long:"s3-public-base" env:"S3_PUBLIC_BASE_URL" description:"Public URL prefix of the bucket"`
	GCSProjectID   string `long:"gcs-project" env:"GOOGLE_CLOUD_PROJECT"`
	GCSLocation    string `long:"gcs-location" env:"GCS_LOCATION" default:"US"`
	GCSPublicBase  string `long:"gcs-public-base" env:"GCS_PUBLIC_BASE_URL"`

	// AI
	OpenAIKey      string `long:"openai-key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `long:"openai-base-url" env:"OPENAI_BASE_URL"`
	ChatModel      string `long:"chat-model" env:"OPENAI_CHAT_MODEL" default:"gpt-4-turbo-preview"`
	ImageModel     string `long:"image-model" env:"OPENAI_IMAGE_MODEL" default:"dall-e-3"`
	SpeechModel    string `long:"speech-model" env:"OPENAI_SPEECH_MODEL" default:"gpt-4o-mini-tts"`
	Voice          string `long:"voice" env:"OPENAI_VOICE" default:"echo"`
	TextProvider   string `long:"text-provider" env:"TEXT_PROVIDER" default:"openai" choice:"openai" choice:"gemini" description:"Model used for concepts, image prompts and scripts"`
	GeminiKey      string `long:"gemini-key" env:"GOOGLE_AI_STUDIO_API_KEY"`
	GeminiModel    string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	PromptsFile    string `long:"prompts-file" env:"PROMPTS_FILE" description:"YAML file overriding the built-in prompts"`
	MaxPaperChars  int    `long:"max-paper-chars" env:"MAX_PAPER_CHARS" default:"120000"`
	MaxSpeechChars int    `long:"max-speech-chars" env:"MAX_SPEECH_CHARS" default:"4000"`

	// Cache
	RedisAddr     string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address; the in-process cache is used when empty"`
	RedisPassword string        `long:"redis-password" env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"5m"`

	// Jobs and limits
	SignedURLExpiry   time.Duration `long:"signed-url-expiry" env:"SIGNED_URL_EXPIRY" default:"1h"`
	MaxConcurrentJobs int           `long:"max-jobs" env:"MAX_CONCURRENT_JOBS" default:"2"`
	MaxPDFPages       int           `long:"max-pdf-pages" env:"MAX_PDF_PAGES" default:"100"`
	MaxUploadMB       int64         `long:"max-upload-mb" env:"MAX_UPLOAD_MB" default:"25"`
	RelayTimeout      time.Duration `long:"relay-timeout" env:"RELAY_TIMEOUT" default:"30s"`
	RelayMaxMB        int64         `long:"relay-max-mb" env:"RELAY_MAX_MB" default:"20"`
	RetryAttempts     int           `long:"retry-attempts" env:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay        time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"1s"`
}

// ErrHelp is returned when --help was requested and printed.
var ErrHelp = errors.New("help requested")

// Load reads .env files (missing files are ignored), then flags and
// environment. Flags win over the environment.
func Load(args []string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max concurrent jobs must be at least 1")
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("max upload size must be at least 1 MB")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	for i, o := range c.AllowedOrigins {
		c.AllowedOrigins[i] = strings.TrimRight(strings.TrimSpace(o), "/")
	}
	return nil
}

func (c *Config) SupabaseConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c *Config) RelayMaxBytes() int64 {
	return c.RelayMaxMB << 20
}
