package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the whole server configuration, read from the environment.
type Config struct {
	Port           string   `env:"PORT"`
	Prod           bool     `env:"PROD"`
	UseHTTPS       bool     `env:"USE_HTTPS"`
	TLSCertFile    string   `env:"TLS_CERT_FILE"`
	TLSKeyFile     string   `env:"TLS_KEY_FILE"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	JWTSecret      string   `env:"JWT_SECRET"`

	Postgres PostgresConfig
	RedisURL string `env:"REDIS_URL"`
	NATS     NATSConfig

	Game   GameConfig
	Socket SocketConfig
}

type PostgresConfig struct {
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Host     string `env:"POSTGRES_HOST"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	Database string `env:"POSTGRES_DATABASE"`
	Verbose  bool   `env:"VERBOSE_POSTGRES"`
	Migrate  bool   `env:"MIGRATE_POSTGRES"`
}

// Enabled reports whether a database was configured at all
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s", p.User, p.Password, p.Host, p.Port, p.Database)
}

type NATSConfig struct {
	URL     string `env:"NATS_URL"`
	Subject string `env:"NATS_SUBJECT" envDefault:"arena.games.finished"`
}

type GameConfig struct {
	SearchTimeout     time.Duration `env:"SEARCH_TIMEOUT" envDefault:"60s"`
	InvitationTimeout time.Duration `env:"INVITATION_TIMEOUT" envDefault:"30s"`
	SessionReapDelay  time.Duration `env:"SESSION_REAP_DELAY" envDefault:"60s"`
	ForfeitTimeout    time.Duration `env:"FORFEIT_TIMEOUT" envDefault:"0s"` // 0 disables forfeits
	BrowseCount       int           `env:"BROWSE_COUNT" envDefault:"3"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"10s"`
}

type SocketConfig struct {
	PingInterval time.Duration `env:"SOCKET_PING_INTERVAL" envDefault:"25s"`
	PingTimeout  time.Duration `env:"SOCKET_PING_TIMEOUT" envDefault:"60s"`
	Debug        bool          `env:"SOCKET_DEBUG"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("No .env file loaded, using the environment only")
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
		if cfg.UseHTTPS {
			cfg.Port = "443"
		}
	}
	return cfg, nil
}
