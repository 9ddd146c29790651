package config

import (
	"strings"
	"time"
)

const defaultAPITimeout = 15 * time.Second

// APIConfig configures the olympiad backend client.
type APIConfig struct {
	// BaseURL is the root of the backend REST API, e.g. "https://olimpiadas.example.edu/api".
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:8000/api"`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"15s"`

	// JMESPath expressions locating payloads in backend envelopes.
	// Empty values use the client's built-in defaults.
	Extraction ExtractionConfig `envPrefix:"EXTRACT_"`
}

// ExtractionConfig overrides the envelope expressions per endpoint.
type ExtractionConfig struct {
	LoginToken   string `env:"LOGIN_TOKEN"`
	LoginUser    string `env:"LOGIN_USER"`
	LoginMessage string `env:"LOGIN_MESSAGE"`
	Admin        string `env:"ADMIN_PROFILE"`
	Responsable  string `env:"RESPONSABLE_PROFILE"`
	Evaluador    string `env:"EVALUADOR_PROFILE"`
}

// Sanitize trims the base URL and restores a usable timeout.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultAPITimeout
	}
}
