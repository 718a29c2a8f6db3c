package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// Config is the environment-driven configuration surface of the relay daemon
// and the client tooling.
type Config struct {
	BindAddr string `env:"SMARTLINK_BIND_ADDR" envDefault:"0.0.0.0"`
	BindPort int    `env:"SMARTLINK_BIND_PORT" envDefault:"8090"`
	DataDir  string `env:"SMARTLINK_DATA_DIR" envDefault:"./smartlink-data"`
	LogLevel string `env:"SMARTLINK_LOG_LEVEL" envDefault:"info"`

	// Client-side knobs, consumed by the reconnection state machine.
	RelayURL             string        `env:"SMARTLINK_RELAY_URL" envDefault:"ws://127.0.0.1:8090/ws"`
	HeartbeatInterval    time.Duration `env:"SMARTLINK_HEARTBEAT_INTERVAL" envDefault:"30s"`
	ReconnectDelay       time.Duration `env:"SMARTLINK_RECONNECT_DELAY" envDefault:"2s"`
	MaxReconnectAttempts int           `env:"SMARTLINK_MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, domain.ValidationErrorf("parse environment: %v", err)
	}
	if cfg.BindPort <= 0 || cfg.BindPort > 65535 {
		return Config{}, domain.ValidationErrorf("invalid bind port %d", cfg.BindPort)
	}
	return cfg, nil
}

// ListenAddr joins the bind address and port.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.BindPort)
}

// NewLogger builds a logrus logger at the configured level. An unparseable
// level falls back to info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
