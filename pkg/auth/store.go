package auth

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pforte-dev/pforte/pkg/auth/passwd"
	"github.com/pforte-dev/pforte/pkg/observability"
)

// shadowHash is the stored hash of every shadow record. Derived hashes
// are base64 text, so no submitted password can ever produce it.
const shadowHash = "!"

// Parsing limits for the credential file. Lines at or under the short
// limit are treated as blank noise; lines over the long limit are
// accepted but flagged, since they usually mean a missing line break.
const (
	shortLineLimit = 3
	longLineLimit  = 300
)

// Record holds one credential entry plus its in-memory attempt state.
// Salt and Hash are immutable after creation; Locked and Attempts are
// mutated only under the owning store's lock.
type Record struct {
	Name     string
	Salt     string
	Hash     string
	Locked   bool
	Attempts int

	// Shadow marks a record invented for a username the credential
	// file does not know. Its hash can never match.
	Shadow bool
}

// Store is the in-memory credential map. It is the single owner of all
// attempt and lockout state; request goroutines run in parallel, so
// every mutation goes through the mutex.
type Store struct {
	mu          sync.Mutex
	records     map[string]*Record
	maxTracked  int
	maxAttempts int
}

// Load reads the credential file and builds the store. A missing file
// is created empty and yields zero records. Any other filesystem error
// is returned so the caller can abort startup rather than run with an
// unknown credential state.
func Load(path string, maxTracked, maxAttempts int) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("credential file missing, creating empty", "path", path)
		if werr := os.WriteFile(path, nil, 0o600); werr != nil {
			return nil, fmt.Errorf("creating credential file %s: %w", path, werr)
		}
		data = nil
	} else if err != nil {
		return nil, fmt.Errorf("reading credential file %s: %w", path, err)
	}

	s := &Store{
		records:     make(map[string]*Record),
		maxTracked:  maxTracked,
		maxAttempts: maxAttempts,
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) <= shortLineLimit {
			continue
		}
		if len(line) > longLineLimit {
			slog.Warn("credential line unusually long", "path", path, "length", len(line))
		}
		fields := strings.Split(line, " ")
		if len(fields) < 3 {
			slog.Warn("skipping malformed credential line", "path", path, "fields", len(fields))
			continue
		}
		rec := &Record{
			Name: fields[0],
			Salt: strings.TrimSpace(fields[1]),
			Hash: strings.TrimSpace(fields[2]),
		}
		if len(fields) > 3 && fields[3] == "locked" {
			rec.Locked = true
		}
		s.records[rec.Name] = rec
	}

	slog.Info("credential store loaded", "path", path, "records", len(s.records))
	return s, nil
}

// Len returns the combined count of real and shadow records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Resolve returns the record for a username, inventing a shadow record
// on first sight of an unknown name. Once the combined population hits
// the ceiling, unknown names are refused with ErrTooManyNames instead;
// that bounds memory growth under scripted guessing and is surfaced to
// the client as an internal error, not a login challenge.
func (s *Store) Resolve(name string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[name]; ok {
		return rec, nil
	}
	if len(s.records) >= s.maxTracked {
		return nil, ErrTooManyNames
	}

	// A real random salt keeps derivation cost for shadow records in
	// the same timing class as real ones.
	salt, err := passwd.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("creating shadow record: %w", err)
	}
	rec := &Record{Name: name, Salt: salt, Hash: shadowHash, Shadow: true}
	s.records[name] = rec
	observability.ShadowRecords.Inc()
	return rec, nil
}

// Verdict folds a hash comparison into the record's attempt state and
// reports whether access is granted. Only a match against an unlocked
// record grants; everything else grows the attempt counter, and
// crossing the threshold locks the record for the rest of the process
// lifetime. A successful login does not reset the counter.
func (s *Store) Verdict(rec *Record, match bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if match && !rec.Locked {
		return true
	}

	rec.Attempts++
	if rec.Attempts > s.maxAttempts && !rec.Locked {
		rec.Locked = true
		observability.AuthLockoutsTotal.Inc()
		slog.Warn("account locked after repeated failures",
			"user", rec.Name,
			"attempts", rec.Attempts,
			"shadow", rec.Shadow,
		)
	}
	return false
}
