// Package account implements the pending-account-request side door:
// a small form, a validator, and an append-only queue file an operator
// reviews out-of-band. A queued request becomes a real account only
// when the operator copies it into the credential file and restarts
// the server.
package account

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/pforte-dev/pforte/pkg/auth/passwd"
	"github.com/pforte-dev/pforte/pkg/observability"
)

// usernamePattern is the allow-pattern for requested usernames:
// letters and digits only, nothing an operator could mistake for a
// field separator or shell fragment.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// maxUsernameLength bounds requested usernames.
const maxUsernameLength = 64

// Intake accepts new-account requests and appends them to the pending
// file. The open-request counter is seeded from the file at startup
// and only ever grows during the process lifetime; the ceiling is a
// crude flood cap, not a queue that drains.
type Intake struct {
	path       string
	maxPending int

	mu      sync.Mutex
	pending int
}

// NewIntake creates the intake over the pending file, counting the
// lines already queued. A missing file means zero pending requests.
func NewIntake(path string, maxPending int) (*Intake, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading pending request file %s: %w", path, err)
	}

	pending := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			pending++
		}
	}

	slog.Info("account request intake ready", "path", path, "pending", pending)
	return &Intake{path: path, maxPending: maxPending, pending: pending}, nil
}

// Pending returns the current open-request count.
func (i *Intake) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pending
}

// ServeHTTP handles the account-request endpoint. Credentials must
// never travel in the clear, so a plaintext connection is rejected
// before anything else is looked at.
func (i *Intake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.TLS == nil {
		observability.AccountRequestsTotal.WithLabelValues("insecure").Inc()
		http.Error(w, "account requests require a secure connection", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, requestForm)
	case http.MethodPost:
		i.submit(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// submit validates and queues one request.
func (i *Intake) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		observability.AccountRequestsTotal.WithLabelValues("malformed").Inc()
		http.Error(w, "malformed form submission", http.StatusBadRequest)
		return
	}

	name := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if len(name) > maxUsernameLength || !usernamePattern.MatchString(name) {
		observability.AccountRequestsTotal.WithLabelValues("rejected").Inc()
		slog.Warn("rejecting account request with invalid username", "remote_addr", r.RemoteAddr)
		http.Error(w, "username must be 1-64 letters or digits", http.StatusBadRequest)
		return
	}
	if password == "" {
		observability.AccountRequestsTotal.WithLabelValues("rejected").Inc()
		http.Error(w, "password must not be empty", http.StatusBadRequest)
		return
	}

	// The ceiling check runs before any derivation work so a flood of
	// requests cannot buy CPU time with rejected submissions.
	i.mu.Lock()
	full := i.pending >= i.maxPending
	i.mu.Unlock()
	if full {
		observability.AccountRequestsTotal.WithLabelValues("overflow").Inc()
		slog.Warn("rejecting account request, queue ceiling reached", "pending", i.Pending())
		http.Error(w, "account requests are closed", http.StatusInternalServerError)
		return
	}

	salt, err := passwd.NewSalt()
	if err != nil {
		slog.Error("generating salt for account request", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	hash, err := passwd.Derive(password, salt)
	if err != nil {
		slog.Error("deriving hash for account request", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := i.append(name, salt, hash); err != nil {
		// The caller has not been acknowledged yet, so failing loudly
		// here never drops an accepted request silently.
		observability.AccountRequestsTotal.WithLabelValues("error").Inc()
		slog.Error("appending account request", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	observability.AccountRequestsTotal.WithLabelValues("accepted").Inc()
	slog.Info("account request queued", "user", name)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "account request received")
}

// append writes one record to the pending file and bumps the counter.
// The file is append-only and never rewritten in place.
func (i *Intake) append(name, salt, hash string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	f, err := os.OpenFile(i.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s %s %s\n", name, salt, hash); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	i.pending++
	return nil
}

// requestForm is the static account-request form served on GET.
const requestForm = `<!DOCTYPE html>
<html>
<head><title>Request an account</title></head>
<body>
<h1>Request an account</h1>
<p>Requests are reviewed by the site operator. Usernames may contain
letters and digits only.</p>
<form method="post">
<label>Username <input type="text" name="username" maxlength="64"></label><br>
<label>Password <input type="password" name="password"></label><br>
<input type="submit" value="Request account">
</form>
</body>
</html>
`
