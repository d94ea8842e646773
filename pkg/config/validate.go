package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// TLS cert and key must be configured together.
	if (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		errs = append(errs, fmt.Errorf("server.tls.cert_file and server.tls.key_file must be set together"))
	}

	// site.root is required.
	if c.Site.Root == "" {
		errs = append(errs, fmt.Errorf("site.root is required"))
	}

	// auth.passwd_file is required.
	if c.Auth.PasswdFile == "" {
		errs = append(errs, fmt.Errorf("auth.passwd_file is required"))
	}

	// auth.access_file must be a bare file name; a path would break the
	// per-directory manifest lookup.
	if c.Auth.AccessFile == "" || strings.ContainsRune(c.Auth.AccessFile, '/') {
		errs = append(errs, fmt.Errorf("auth.access_file must be a plain file name, got %q", c.Auth.AccessFile))
	}

	// auth.protected_marker must be non-empty; an empty marker would
	// protect every path.
	if c.Auth.ProtectedMarker == "" {
		errs = append(errs, fmt.Errorf("auth.protected_marker is required"))
	}

	if c.Auth.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("auth.max_attempts must be > 0, got %d", c.Auth.MaxAttempts))
	}
	if c.Auth.MaxTrackedNames <= 0 {
		errs = append(errs, fmt.Errorf("auth.max_tracked_names must be > 0, got %d", c.Auth.MaxTrackedNames))
	}

	// account.pending_file is required.
	if c.Account.PendingFile == "" {
		errs = append(errs, fmt.Errorf("account.pending_file is required"))
	}
	if c.Account.MaxPending <= 0 {
		errs = append(errs, fmt.Errorf("account.max_pending must be > 0, got %d", c.Account.MaxPending))
	}

	return errors.Join(errs...)
}
