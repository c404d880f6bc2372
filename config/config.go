package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Illustrations IllustrationConfig  `mapstructure:"illustrations"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Billing       BillingConfig       `mapstructure:"billing"`
	Quota         QuotaConfig         `mapstructure:"quota"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// ServerConfig controls the HTTP listener. MaxUploadBytes bounds every
// request body at the transport boundary.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	StaticDir       string        `mapstructure:"static_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig points at the profile store. Driver is "postgres" or
// "sqlite"; DSN wins over the discrete fields when set.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig describes the external identity provider. Tokens are HS256
// JWTs signed with JWTSecret; PublicURL and AnonKey are handed to clients.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	PublicURL string `mapstructure:"public_url"`
	AnonKey   string `mapstructure:"anon_key"`
}

type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Referer string        `mapstructure:"referer"`
	Title   string        `mapstructure:"title"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TranscriptionConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	LanguageCode string        `mapstructure:"language_code"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxWait      time.Duration `mapstructure:"max_wait"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type IllustrationConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	Size           string        `mapstructure:"size"`
	MaxImages      int           `mapstructure:"max_images"`
	PlaceholderURL string        `mapstructure:"placeholder_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// BillingConfig holds the payment provider credentials and one price
// identifier per paid plan.
type BillingConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	PublishableKey string `mapstructure:"publishable_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	SuccessURL     string `mapstructure:"success_url"`
	CancelURL      string `mapstructure:"cancel_url"`
	PriceBasic     string `mapstructure:"price_basic"`
	PricePro       string `mapstructure:"price_pro"`
	PricePremium   string `mapstructure:"price_premium"`
}

// PricePlans maps each configured price identifier to its plan name.
func (b BillingConfig) PricePlans() map[string]string {
	plans := make(map[string]string, 3)
	for price, plan := range map[string]string{
		b.PriceBasic:   "basic",
		b.PricePro:     "pro",
		b.PricePremium: "premium",
	} {
		if price != "" {
			plans[price] = plan
		}
	}
	return plans
}

type QuotaConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Window  time.Duration `mapstructure:"window"`
	Limit   int           `mapstructure:"limit"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// secretKeys are config keys that fall back to a Docker secret file of the
// same name (dots replaced by underscores) when no other source set them.
var secretKeys = []string{
	"database.password",
	"redis.password",
	"auth.jwt_secret",
	"llm.api_key",
	"transcription.api_key",
	"illustrations.api_key",
	"billing.secret_key",
	"billing.webhook_secret",
}

// LoadConfig builds the configuration from defaults, optional YAML files,
// environment variables and Docker secrets, then validates it for the
// current environment.
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "configs"
	}
	if err := mergeConfigFile(v, filepath.Join(dir, "config.yaml")); err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))); err != nil {
		return nil, err
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range secretKeys {
		if v.GetString(key) != "" {
			continue
		}
		if secret := readSecret(strings.ReplaceAll(key, ".", "_")); secret != "" {
			v.Set(key, secret)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.App.Env = string(env)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// mergeConfigFile merges a YAML file into v; a missing file is not an error.
func mergeConfigFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("failed to merge config file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "receitas-ia")
	v.SetDefault("app.env", string(Development))

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.static_dir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "receitas")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.public_url", "")
	v.SetDefault("auth.anon_key", "")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("llm.model", "qwen/qwen2.5-vl-32b-instruct:free")
	v.SetDefault("llm.referer", "https://receitas-com-ia.vercel.app")
	v.SetDefault("llm.title", "Receitas com IA")
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("transcription.api_key", "")
	v.SetDefault("transcription.base_url", "https://api.assemblyai.com/v2")
	v.SetDefault("transcription.language_code", "pt")
	v.SetDefault("transcription.poll_interval", "3s")
	v.SetDefault("transcription.max_wait", "2m")
	v.SetDefault("transcription.timeout", "30s")

	v.SetDefault("illustrations.enabled", false)
	v.SetDefault("illustrations.api_key", "")
	v.SetDefault("illustrations.base_url", "https://api.openai.com/v1/images/generations")
	v.SetDefault("illustrations.model", "dall-e-3")
	v.SetDefault("illustrations.size", "1024x1024")
	v.SetDefault("illustrations.max_images", 3)
	v.SetDefault("illustrations.placeholder_url", "/img/placeholder-receita.png")
	v.SetDefault("illustrations.timeout", "60s")

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.public_base_url", "")

	v.SetDefault("billing.secret_key", "")
	v.SetDefault("billing.publishable_key", "")
	v.SetDefault("billing.webhook_secret", "")
	v.SetDefault("billing.success_url", "http://localhost:3000/?checkout=success")
	v.SetDefault("billing.cancel_url", "http://localhost:3000/?checkout=cancel")
	v.SetDefault("billing.price_basic", "")
	v.SetDefault("billing.price_pro", "")
	v.SetDefault("billing.price_premium", "")

	v.SetDefault("quota.timezone", "America/Sao_Paulo")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.limit", 10)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// PostgresDSN renders the discrete database fields as a libpq DSN.
func (c DatabaseConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
