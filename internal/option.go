package internal

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	version    string
	registry   *prometheus.Registry
	httpClient *http.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server and build info.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithRegistry sets the Prometheus registry metrics are registered on.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *application) {
		a.registry = reg
	}
}

// WithHTTPClient sets the client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *application) {
		a.httpClient = c
	}
}
