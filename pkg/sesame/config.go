package sesame

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config carries the two connection settings a host application supplies, plus an
// optional request timeout.
type Config struct {
	URL        string        `mapstructure:"url" yaml:"url" json:"url"`
	Repository string        `mapstructure:"repository" yaml:"repository" json:"repository"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// Validate checks that URL is an absolute http(s) URL. Repository may be empty.
func (c Config) Validate() error {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return wrapError(KindInvalidConfig, "sesame connection url is not a valid url", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return newError(KindInvalidConfig, fmt.Sprintf("sesame connection url %q must be an absolute http(s) url", raw))
	}
	return nil
}

// NewFromConfig validates cfg and builds a Client. An empty URL selects DefaultURL.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		opts = append([]Option{WithTimeout(cfg.Timeout)}, opts...)
	}
	return New(cfg.URL, strings.TrimSpace(cfg.Repository), opts...), nil
}
