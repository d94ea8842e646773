// Package authz implements per-resource authorization through a
// filesystem convention: a directory containing a manifest file (one
// username per line) is restricted to exactly those users, and the
// restriction is inherited by everything beneath it. Directories with
// no manifest anywhere up to the served root stay open — restriction is
// opt-in, and the default is deliberately open rather than fail-closed.
package authz

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pforte-dev/pforte/pkg/auth"
	"github.com/pforte-dev/pforte/pkg/observability"
)

// Identifier resolves a request to an authenticated username, or the
// empty string when the request carries no valid credentials. The auth
// gate satisfies this.
type Identifier interface {
	Identify(r *http.Request) string
}

// Engine makes per-directory authorization decisions. Manifests are
// read fresh on every decision; nothing is cached, so an operator edit
// takes effect on the next request.
type Engine struct {
	root     string
	manifest string
	ids      Identifier
}

// New creates an engine bounded by root. manifest is the file name the
// upward walk looks for in each directory.
func New(root, manifest string, ids Identifier) *Engine {
	return &Engine{root: filepath.Clean(root), manifest: manifest, ids: ids}
}

// Authorize decides whether the request may see a resource inside dir.
// The walk starts at dir and climbs parent by parent until it finds a
// manifest or reaches the engine's root; it never escapes above it.
func (e *Engine) Authorize(dir string, r *http.Request) auth.Result {
	dir = filepath.Clean(dir)

	for {
		data, err := os.ReadFile(filepath.Join(dir, e.manifest))
		if err == nil {
			res := e.decide(string(data), dir, r)
			observability.AuthzDecisionsTotal.WithLabelValues(res.Decision.String()).Inc()
			return res
		}
		if !errors.Is(err, fs.ErrNotExist) {
			// A manifest that exists but cannot be read must not be
			// silently skipped: that would fail open on exactly the
			// directories someone tried to restrict.
			slog.Error("reading authorization manifest", "dir", dir, "error", err)
			return auth.Result{Decision: auth.Fault, Err: err}
		}

		if dir == e.root {
			// No manifest anywhere up to the boundary: open by default.
			return auth.Result{Decision: auth.Granted}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Filesystem root without passing e.root; dir was never
			// under the boundary. Stop rather than walk further up.
			return auth.Result{Decision: auth.Granted}
		}
		dir = parent
	}
}

// decide evaluates a manifest against the caller's identity.
func (e *Engine) decide(manifest, dir string, r *http.Request) auth.Result {
	ident := e.ids.Identify(r)
	if ident == "" {
		// Authorization without an identity is meaningless; degrade to
		// an authentication request rather than a flat reject.
		return auth.Result{Decision: auth.Challenge, Err: auth.ErrUnauthenticated}
	}

	for _, line := range strings.Split(manifest, "\n") {
		// Exact full-line match after trimming. A name that is a
		// prefix or suffix of an authorized name is not authorized.
		if strings.TrimSpace(line) == ident {
			return auth.Result{Decision: auth.Granted, Identity: ident}
		}
	}

	slog.Warn("authorization denied",
		"user", ident,
		"resource", r.URL.Path,
		"manifest_dir", dir,
	)
	return auth.Result{Decision: auth.Denied, Identity: ident, Err: auth.ErrForbidden}
}
