package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Session   SessionConfig    `json:"session"`
	Finance   FinanceConfig    `json:"finance"`
	Providers []ProviderConfig `json:"providers"`
	LLM       LLMConfig        `json:"llm"`
	Embedding EmbeddingConfig  `json:"embedding"`
	Retrieval RetrievalConfig  `json:"retrieval"`
	Database  DatabaseConfig   `json:"database"`
	Gateway   GatewayConfig    `json:"gateway"`
}

type ServerConfig struct {
	Port          int      `json:"port"`
	LogLevel      string   `json:"log_level"` // debug|info|warn|error|development
	SessionSecret string   `json:"session_secret"`
	CookieName    string   `json:"cookie_name"`
	CORSOrigins   []string `json:"cors_origins"`
	SecureCookies bool     `json:"secure_cookies"`
}

type SessionConfig struct {
	Backend string `json:"backend"` // memory|redis
	Window  int    `json:"window"`
}

type FinanceConfig struct {
	TaxRate        float64 `json:"tax_rate"`
	SavingsPercent float64 `json:"savings_percent"`
	DefaultHours   int     `json:"default_hours"`
}

type ProviderConfig struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	Name           string            `json:"name"`
	Endpoint       string            `json:"endpoint"`
	APIKey         string            `json:"api_key"`
	Model          string            `json:"model"`
	Extra          map[string]string `json:"extra,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
}

type LLMConfig struct {
	Default      string   `json:"default"`
	Fallbacks    []string `json:"fallbacks"`
	SystemPrompt string   `json:"system_prompt"`
	MaxTokens    int      `json:"max_tokens"`
}

type EmbeddingConfig struct {
	Provider  string `json:"provider"` // openai|ollama
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}

type RetrievalConfig struct {
	Backend    string        `json:"backend"` // chromem|qdrant
	Collection string        `json:"collection"`
	TopK       int           `json:"top_k"`
	Chromem    ChromemConfig `json:"chromem"`
	Qdrant     QdrantConfig  `json:"qdrant"`
}

type ChromemConfig struct {
	Path     string `json:"path"`
	Compress bool   `json:"compress"`
}

type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN           string `json:"dsn"`
	MigrationsDir string `json:"migrations_dir"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type GatewayConfig struct {
	Slack   SlackGatewayConfig   `json:"slack"`
	Discord DiscordGatewayConfig `json:"discord"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

type DiscordGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file, substitutes environment variable
// references, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every zero value that has a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.CookieName == "" {
		c.Server.CookieName = "smartmoney_session"
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.Window == 0 {
		c.Session.Window = 10
	}
	if c.Finance.TaxRate == 0 {
		c.Finance.TaxRate = 0.20
	}
	if c.Finance.SavingsPercent == 0 {
		c.Finance.SavingsPercent = 0.20
	}
	if c.Finance.DefaultHours == 0 {
		c.Finance.DefaultHours = 40
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Retrieval.Backend == "" {
		c.Retrieval.Backend = "chromem"
	}
	if c.Retrieval.Collection == "" {
		c.Retrieval.Collection = "documents"
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 4
	}
	if c.Retrieval.Qdrant.Host == "" {
		c.Retrieval.Qdrant.Host = "localhost"
	}
	if c.Retrieval.Qdrant.Port == 0 {
		c.Retrieval.Qdrant.Port = 6334
	}
	if c.Database.Postgres.MigrationsDir == "" {
		c.Database.Postgres.MigrationsDir = "migrations"
	}
}

// Validate reports every out-of-range value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error", "development":
	default:
		errs = append(errs, fmt.Errorf("server.log_level %q unknown", c.Server.LogLevel))
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Database.Redis.URL == "" {
			errs = append(errs, errors.New("session.backend redis needs database.redis.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.backend %q unknown", c.Session.Backend))
	}
	if c.Session.Window < 1 {
		errs = append(errs, fmt.Errorf("session.window %d must be positive", c.Session.Window))
	}
	if c.Finance.TaxRate < 0 || c.Finance.TaxRate >= 1 {
		errs = append(errs, fmt.Errorf("finance.tax_rate %v must be in [0, 1)", c.Finance.TaxRate))
	}
	if c.Finance.SavingsPercent < 0 || c.Finance.SavingsPercent >= 1 {
		errs = append(errs, fmt.Errorf("finance.savings_percent %v must be in [0, 1)", c.Finance.SavingsPercent))
	}
	if c.Finance.DefaultHours < 1 || c.Finance.DefaultHours > 168 {
		errs = append(errs, fmt.Errorf("finance.default_hours %d out of range", c.Finance.DefaultHours))
	}
	switch c.Retrieval.Backend {
	case "chromem", "qdrant":
	default:
		errs = append(errs, fmt.Errorf("retrieval.backend %q unknown", c.Retrieval.Backend))
	}
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q unknown", c.Embedding.Provider))
	}
	seen := make(map[string]bool)
	for i, p := range c.Providers {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("providers[%d] has no id", i))
		} else if seen[p.ID] {
			errs = append(errs, fmt.Errorf("providers[%d] duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
		switch p.Type {
		case "openai", "anthropic":
		default:
			errs = append(errs, fmt.Errorf("providers[%d] type %q unknown", i, p.Type))
		}
	}
	if c.LLM.Default != "" && !seen[c.LLM.Default] {
		errs = append(errs, fmt.Errorf("llm.default %q is not a configured provider", c.LLM.Default))
	}
	return errors.Join(errs...)
}
