package internal

import (
	"fmt"
	"strings"
	"time"
)

const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,default=8080"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	JWTIssuer         string        `env:"JWT_ISSUER,default=chat-hub"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	StorageDriver    string `env:"STORAGE_DRIVER,default=badger"`
	BadgerFilepath   string `env:"BADGER_FILEPATH,default=./data/badger"`
	BlugeFilepath    string `env:"BLUGE_FILEPATH,default=./data/bluge"`
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS,default=10"`

	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=1s"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=65536"`
	RateLimitBurst       int           `env:"RATE_LIMIT_BURST,default=20"`
	RateLimitInterval    time.Duration `env:"RATE_LIMIT_INTERVAL,default=1s"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`

	AwayAfter         time.Duration `env:"AWAY_AFTER,default=5m"`
	IdleCheckInterval time.Duration `env:"IDLE_CHECK_INTERVAL,default=30s"`

	ModerationWords           string `env:"MODERATION_WORDS"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	MaxContentLength          int    `env:"MAX_CONTENT_LENGTH,default=4096"`
	SearchLimit               int    `env:"SEARCH_LIMIT,default=20"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	GRPCHealthPort  int           `env:"GRPC_HEALTH_PORT,default=0"`
	DebugPort       int           `env:"DEBUG_PORT,default=0"`
}

// Validate reports the settings that cannot start a server.
func (c Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	switch c.StorageDriver {
	case DriverBadger:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with STORAGE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %s or %s, got %q", DriverBadger, DriverPostgres, c.StorageDriver)
	}
	if c.AwayAfter > 0 && c.IdleCheckInterval <= 0 {
		return fmt.Errorf("IDLE_CHECK_INTERVAL must be positive when AWAY_AFTER is set")
	}
	if c.RateLimitBurst <= 0 || c.RateLimitInterval <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST and RATE_LIMIT_INTERVAL must be positive")
	}
	return nil
}

func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func (c Config) CensoredWords() []string {
	return splitList(c.ModerationWords)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
