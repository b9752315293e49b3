package dispatched

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds configuration for the Dispatched server.
type Config struct {
	// WebhookSecret is the shared secret. It is presented as a bearer
	// token on every outbound delivery and required on every inbound
	// management request.
	WebhookSecret string

	// ForwardURL is the destination for webhook deliveries.
	ForwardURL string

	// Port is the listen port for the management API.
	Port int

	// DispatchDelay is added to every job's scheduled time before the
	// scanner considers it ready. It simulates the latency a real
	// delivery platform would add.
	DispatchDelay time.Duration

	// ForwardTimeout bounds each outbound delivery call. Zero means
	// the transport's own timeout applies.
	ForwardTimeout time.Duration

	// ScanInterval is how often the scanner looks for ready jobs.
	ScanInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults. WebhookSecret
// and ForwardURL have no defaults and must be supplied.
func DefaultConfig() Config {
	return Config{
		Port:          8810,
		DispatchDelay: 30 * time.Second,
		ScanInterval:  1 * time.Second,
	}
}

// envConfig is the raw environment shape. Delays are plain seconds so
// the variables stay copy-pasteable between the CLI and the dashboard.
type envConfig struct {
	WebhookSecret     string `env:"DISPATCHED_WEBHOOK_SECRET,notEmpty"`
	ForwardURL        string `env:"DISPATCHED_FORWARD_URL,notEmpty"`
	Port              int    `env:"DISPATCHED_PORT" envDefault:"8810"`
	DelaySec          int    `env:"DISPATCHED_DELAY_SEC" envDefault:"30"`
	ForwardTimeoutSec int    `env:"DISPATCHED_FORWARD_TIMEOUT_SEC" envDefault:"0"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("dispatched: load config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.WebhookSecret = raw.WebhookSecret
	cfg.ForwardURL = raw.ForwardURL
	cfg.Port = raw.Port
	cfg.DispatchDelay = time.Duration(raw.DelaySec) * time.Second
	cfg.ForwardTimeout = time.Duration(raw.ForwardTimeoutSec) * time.Second
	return cfg, nil
}
