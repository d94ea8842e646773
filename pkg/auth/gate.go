package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pforte-dev/pforte/pkg/auth/passwd"
	"github.com/pforte-dev/pforte/pkg/observability"
)

// Gate is the per-request authentication decision point. It owns the
// global path policy (which paths need a login at all) and drives the
// store's attempt state machine.
type Gate struct {
	store  *Store
	marker string
}

// NewGate creates a gate over the given store. Any path segment
// containing marker as a substring requires authentication.
func NewGate(store *Store, marker string) *Gate {
	return &Gate{store: store, marker: marker}
}

// PathProtected reports whether the global policy demands a login for
// this path. The substring match is blunt on purpose: it is the
// conservative end of a filesystem-convention policy, and a resource
// whose path avoids the marker silently stays open. That risk is
// documented, not fixed here.
func (g *Gate) PathProtected(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg != "" && strings.Contains(seg, g.marker) {
			return true
		}
	}
	return false
}

// Authenticate runs the path-level authentication gate. Paths outside
// the protected policy are granted immediately with no identity check.
// Protected paths must carry valid Basic credentials.
func (g *Gate) Authenticate(r *http.Request) Result {
	if !g.PathProtected(r.URL.Path) {
		return Result{Decision: Granted}
	}
	res := g.check(r)
	observability.AuthAttemptsTotal.WithLabelValues(res.Decision.String()).Inc()
	return res
}

// Identify returns the username of a caller carrying valid Basic
// credentials, or the empty string. It walks the same credential state
// machine as Authenticate — shadow records, attempt counting, and
// lockout all apply — so probing through an authorization-gated
// resource is no softer than probing the login gate itself.
func (g *Gate) Identify(r *http.Request) string {
	res := g.check(r)
	if res.Decision == Granted {
		return res.Identity
	}
	return ""
}

// check validates the request's Basic credentials against the store.
// It writes nothing; callers translate the Result into a response.
func (g *Gate) check(r *http.Request) Result {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return Result{Decision: Challenge, Err: ErrUnauthenticated}
	}

	rec, err := g.store.Resolve(user)
	if err != nil {
		if errors.Is(err, ErrTooManyNames) {
			slog.Warn("refusing unknown username, tracking ceiling reached",
				"path", r.URL.Path, "remote_addr", r.RemoteAddr)
			return Result{Decision: Fault, Err: err}
		}
		return Result{Decision: Fault, Err: fmt.Errorf("resolving credentials: %w", err)}
	}

	// Derivation runs outside any lock; it is the one slow operation
	// on this path and must not stall unrelated requests.
	derived, err := passwd.Derive(pass, rec.Salt)
	if err != nil {
		// A derivation failure is an internal error, never to be
		// conflated with a mismatch.
		slog.Error("password derivation failed", "user", user, "error", err)
		return Result{Decision: Fault, Err: fmt.Errorf("deriving password hash: %w", err)}
	}

	match := subtle.ConstantTimeCompare([]byte(derived), []byte(rec.Hash)) == 1
	if g.store.Verdict(rec, match) {
		return Result{Decision: Granted, Identity: user}
	}

	slog.Warn("authentication failed",
		"user", user,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)
	return Result{Decision: Challenge, Err: ErrUnauthenticated}
}
