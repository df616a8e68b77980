package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/chatrelay/internal/observability"
	"github.com/davidbz/chatrelay/internal/provider/openai"
)

// Config represents the relay configuration.
type Config struct {
	Server   ServerConfig
	CORS     CORSConfig
	Log      observability.Config
	OpenAI   openai.Config
	Chat     ChatConfig
	Access   AccessConfig
	Ledger   LedgerConfig
	Redis    RedisConfig
	Postgres PostgresConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int `env:"SERVER_PORT"             envDefault:"3002"`
	ReadTimeout     int `env:"SERVER_READ_TIMEOUT"     envDefault:"30"`
	WriteTimeout    int `env:"SERVER_WRITE_TIMEOUT"    envDefault:"600"`
	ShutdownTimeout int `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Authorization,Content-Type"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"false"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// ChatConfig contains settings of the completion pipeline.
type ChatConfig struct {
	Model           string `env:"OPENAI_API_MODEL"  envDefault:"gpt-3.5-turbo"`
	CostModel       string `env:"LEDGER_COST_MODEL" envDefault:"prompt_length"`
	ContextMaxTurns int    `env:"CONTEXT_MAX_TURNS" envDefault:"0"`
}

// AccessConfig contains shared secrets and request limits.
type AccessConfig struct {
	AuthSecretKey     string `env:"AUTH_SECRET_KEY"`
	MaxRequestPerHour int    `env:"MAX_REQUEST_PER_HOUR" envDefault:"0"`
	ResetPassword     string `env:"RESET_PASSWORD"`
	AdminPathPrefix   string `env:"ADMIN_PATH_PREFIX"    envDefault:"/admin"`
}

// LedgerConfig selects and configures the usage ledger backend.
type LedgerConfig struct {
	Backend       string `env:"LEDGER_BACKEND"   envDefault:"file"`
	MaxTokenLimit int64  `env:"MAX_TOKEN_LIMIT"  envDefault:"1000000"`
	FilePath      string `env:"LEDGER_FILE_PATH" envDefault:"./data/config.json"`
	BoltPath      string `env:"LEDGER_BOLT_PATH" envDefault:"./data/ledger.bolt"`
}

// RedisConfig contains the redis ledger connection.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"       envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"         envDefault:"0"`
	Key      string `env:"LEDGER_REDIS_KEY" envDefault:"chatrelay:ledger"`
}

// PostgresConfig contains the postgres ledger connection.
type PostgresConfig struct {
	DSN   string `env:"POSTGRES_DSN"`
	Table string `env:"LEDGER_POSTGRES_TABLE" envDefault:"chatrelay_ledger"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	LogConfig    *observability.Config
	OpenAIConfig *openai.Config
	*ChatConfig
	*AccessConfig
	*LedgerConfig
	*RedisConfig
	*PostgresConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Log,
		&cfg.OpenAI,
		&cfg.Chat,
		&cfg.Access,
		&cfg.Ledger,
		&cfg.Redis,
		&cfg.Postgres,
	}
}
