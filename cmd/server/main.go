// Command server runs the pforte web server.
//
// Configuration is loaded from a YAML file (see pkg/config for the
// discovery order) with PFORTE_* environment variable overrides:
//
//	PFORTE_CONFIG       - Config file path
//	PFORTE_PORT         - Listen port (default: 8080)
//	PFORTE_ROOT         - Site root directory (default: ./site)
//	PFORTE_PASSWD_FILE  - Credential file (default: passwd)
//	PFORTE_PENDING_FILE - Account request queue file (default: pending)
//	PFORTE_TLS_CERT     - TLS certificate file
//	PFORTE_TLS_KEY      - TLS key file
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pforte-dev/pforte/pkg/config"
	"github.com/pforte-dev/pforte/pkg/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.ListenAndServe()
}
