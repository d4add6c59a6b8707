package config

import "github.com/kelseyhightower/envconfig"

type Config struct {
	HttpPort    uint16 `envconfig:"THERAPY_HTTP_SERVER_PORT" default:"8080" required:"true"`
	Environment string `envconfig:"THERAPY_ENVIRONMENT" default:"production"`

	JwtSecret string `envconfig:"THERAPY_JWT_SECRET" required:"true"`

	// ChatEncryptionKey is a 32 byte secret, accepted as 64 hex characters
	// or base64. Chat endpoints fail with a configuration error when unset.
	ChatEncryptionKey string `envconfig:"THERAPY_CHAT_ENCRYPTION_KEY"`

	CalendlyClientId       string `envconfig:"THERAPY_CALENDLY_CLIENT_ID"`
	CalendlyClientSecret   string `envconfig:"THERAPY_CALENDLY_CLIENT_SECRET"`
	CalendlyRedirectUri    string `envconfig:"THERAPY_CALENDLY_REDIRECT_URI"`
	CalendlyConnectPageUrl string `envconfig:"THERAPY_CALENDLY_CONNECT_FRONTEND" default:"http://localhost:5173/connect-calendly"`

	ChatRateLimitPerMinute int `envconfig:"THERAPY_CHAT_RATE_LIMIT_PER_MINUTE" default:"45"`
	ChatRateLimitMaxKeys   int `envconfig:"THERAPY_CHAT_RATE_LIMIT_MAX_KEYS" default:"5000"`
}

func New() *Config {
	return &Config{}
}

func (c *Config) LoadFromEnv() error {
	return envconfig.Process("", c)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func NewConfig() (*Config, error) {
	cfg := New()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}
