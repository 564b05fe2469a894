package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const wildcardOrigin = "*"

// Config is the server configuration, read from the environment.
type Config struct {
	Host            string        `env:"HOST,default=127.0.0.1" validate:"required"`
	Port            int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*"`
	OutboundBuffer  int           `env:"OUTBOUND_BUFFER,default=256" validate:"min=1"`
	HistoryLimit    int           `env:"HISTORY_LIMIT,default=0" validate:"min=0"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=4096" validate:"min=64"`
	MessageRate     float64       `env:"MESSAGE_RATE,default=5" validate:"min=0"`
	MessageBurst    int           `env:"MESSAGE_BURST,default=10" validate:"min=1"`
	APIRate         float64       `env:"API_RATE,default=30" validate:"min=0"`
	APIBurst        int           `env:"API_BURST,default=50" validate:"min=1"`
	AuditDBPath     string        `env:"AUDIT_DB_PATH"`
	AuditQueue      int           `env:"AUDIT_QUEUE,default=1024" validate:"min=1"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
}

// Load reads an optional .env file, then the process environment, and
// validates the result.
func Load(files ...string) (Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load(files...)

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, origin := range c.Origins() {
		if origin == wildcardOrigin {
			continue
		}
		if _, err := url.Parse(origin); err != nil {
			return fmt.Errorf("invalid config: allowed origin %q: %w", origin, err)
		}
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Origins returns the normalized allowed origins.
func (c Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := lo.FilterMap(parts, func(p string, _ int) (string, bool) {
		origin := normalizeOrigin(p)
		return origin, origin != ""
	})
	return lo.Uniq(origins)
}

// AllowOrigin reports whether a browser origin may open a websocket. An
// empty list or a "*" entry allows everything.
func (c Config) AllowOrigin(origin string) bool {
	origins := c.Origins()
	if len(origins) == 0 || lo.Contains(origins, wildcardOrigin) {
		return true
	}
	return lo.Contains(origins, normalizeOrigin(origin))
}

func (c Config) MessageLimit() rate.Limit {
	return rate.Limit(c.MessageRate)
}

func (c Config) APILimit() rate.Limit {
	return rate.Limit(c.APIRate)
}

func (c Config) AuditEnabled() bool {
	return c.AuditDBPath != ""
}

func normalizeOrigin(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == wildcardOrigin {
		return origin
	}
	return strings.ToLower(strings.TrimSuffix(origin, "/"))
}
