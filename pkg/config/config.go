// Package config provides unified configuration for the pforte server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PFORTE_ prefix)
//  4. Validation
package config

import "time"

// Config holds all configuration for the pforte server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Site          SiteConfig          `yaml:"site"`
	Auth          AuthConfig          `yaml:"auth"`
	Account       AccountConfig       `yaml:"account"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 60s
	TLS          TLSConfig     `yaml:"tls"`
}

// TLSConfig holds the certificate pair. Both fields must be set
// together; with neither set the server listens in plaintext and the
// account-request endpoint refuses all submissions.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SiteConfig holds the served content settings.
type SiteConfig struct {
	Root    string `yaml:"root"`    // default: "./site"
	Index   string `yaml:"index"`   // default: "index.html"
	Listing bool   `yaml:"listing"` // default: true
}

// AuthConfig holds access-control settings.
type AuthConfig struct {
	PasswdFile      string `yaml:"passwd_file"`       // default: "passwd"
	AccessFile      string `yaml:"access_file"`       // manifest name, default: ".access"
	ProtectedMarker string `yaml:"protected_marker"`  // default: "private"
	MaxAttempts     int    `yaml:"max_attempts"`      // default: 3
	MaxTrackedNames int    `yaml:"max_tracked_names"` // default: 1000
	Realm           string `yaml:"realm"`             // default: "pforte"
}

// AccountConfig holds account-request intake settings.
type AccountConfig struct {
	PendingFile string `yaml:"pending_file"` // default: "pending"
	MaxPending  int    `yaml:"max_pending"`  // default: 100
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Site: SiteConfig{
			Root:    "./site",
			Index:   "index.html",
			Listing: true,
		},
		Auth: AuthConfig{
			PasswdFile:      "passwd",
			AccessFile:      ".access",
			ProtectedMarker: "private",
			MaxAttempts:     3,
			MaxTrackedNames: 1000,
			Realm:           "pforte",
		},
		Account: AccountConfig{
			PendingFile: "pending",
			MaxPending:  100,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
