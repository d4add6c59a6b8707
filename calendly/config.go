package calendly

import (
	"golang.org/x/oauth2"

	"github.com/solace-health/therapy/config"
)

const (
	defaultAuthUrl  = "https://auth.calendly.com/oauth/authorize"
	defaultTokenUrl = "https://auth.calendly.com/oauth/token"
	defaultApiUrl   = "https://api.calendly.com"
)

type Config struct {
	ClientId       string
	ClientSecret   string
	RedirectUri    string
	ConnectPageUrl string

	AuthUrl  string
	TokenUrl string
	ApiUrl   string
}

func NewConfig(cfg *config.Config) (*Config, error) {
	return &Config{
		ClientId:       cfg.CalendlyClientId,
		ClientSecret:   cfg.CalendlyClientSecret,
		RedirectUri:    cfg.CalendlyRedirectUri,
		ConnectPageUrl: cfg.CalendlyConnectPageUrl,
		AuthUrl:        defaultAuthUrl,
		TokenUrl:       defaultTokenUrl,
		ApiUrl:         defaultApiUrl,
	}, nil
}

func (c *Config) Configured() bool {
	return c.ClientId != "" && c.ClientSecret != "" && c.RedirectUri != ""
}

func (c *Config) OAuth() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientId,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectUri,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthUrl,
			TokenURL:  c.TokenUrl,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
