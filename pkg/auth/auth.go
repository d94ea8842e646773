package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Decision is the outcome of an authentication or authorization check.
type Decision int

const (
	// Granted means the request may proceed.
	Granted Decision = iota

	// Challenge means credentials are missing or invalid. The caller
	// should answer 401 with a Basic login challenge.
	Challenge

	// Denied means the caller is authenticated but not allowed to see
	// the resource. The caller should answer 403.
	Denied

	// Fault means an internal error or an abuse ceiling was hit. The
	// caller should answer 500 without a login challenge.
	Fault
)

// String returns the decision name for logging and metrics labels.
func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case Challenge:
		return "challenge"
	case Denied:
		return "denied"
	case Fault:
		return "fault"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// Result carries the outcome of a gate check.
type Result struct {
	Decision Decision

	// Identity is the authenticated username. Populated only when
	// Decision is Granted and credentials were actually presented;
	// a Granted result for an unprotected path carries no identity.
	Identity string

	// Err is populated for Challenge, Denied, and Fault results.
	Err error
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrTooManyNames    = errors.New("tracked username ceiling reached")
)

// WriteChallenge emits the Basic login challenge. Every
// missing-or-invalid-credentials outcome goes through here so callers
// cannot tell a wrong password, a locked account, and an unknown
// username apart from the response.
func WriteChallenge(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
	http.Error(w, "authentication required", http.StatusUnauthorized)
}
