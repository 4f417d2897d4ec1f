package etsy

import (
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
)

// Config defines how the client reaches the Etsy Open API.
// Zero fields are filled from the default tags by New.
type Config struct {
	BaseURL        string        `default:"https://api.etsy.com/v3"`
	TokenURL       string        `default:"https://api.etsy.com/v3/public/oauth/token"`
	RequestTimeout time.Duration `default:"15s"`

	// PageLimit is the page size used when listing payments.
	PageLimit int `default:"100"`

	// RatePerSecond caps outbound requests across all callers of a Client.
	RatePerSecond float64 `default:"10"`
}

func (cfg *Config) setDefaults() error {
	if err := defaults.Set(cfg); err != nil {
		return fmt.Errorf("apply etsy config defaults: %w", err)
	}
	return nil
}

func (cfg *Config) validate() error {
	if cfg.BaseURL == "" || cfg.TokenURL == "" {
		return errors.New("etsy base and token URLs are required")
	}
	if cfg.PageLimit <= 0 {
		return errors.New("etsy page limit must be positive")
	}
	return nil
}
