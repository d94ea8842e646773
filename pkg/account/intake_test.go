package account

import (
	"crypto/tls"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIntake(t *testing.T, maxPending int) (*Intake, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pending")
	i, err := NewIntake(path, maxPending)
	require.NoError(t, err)
	return i, path
}

func TestIntake_InsecureTransportRejected(t *testing.T) {
	i, path := newTestIntake(t, 100)

	// A perfectly valid submission still fails without TLS.
	form := url.Values{"username": {"bob123"}, "password": {"pw"}}
	r := httptest.NewRequest("POST", "/account", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	i.ServeHTTP(rec, r)

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, 0, i.Pending())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing should be appended")
}

func TestIntake_GetServesForm(t *testing.T) {
	i, _ := newTestIntake(t, 100)

	r := httptest.NewRequest("GET", "/account", nil)
	r.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	i.ServeHTTP(rec, r)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")
}

func TestIntake_ValidSubmissionQueued(t *testing.T) {
	i, path := newTestIntake(t, 100)

	rec := submit(t, i, "bob123", "hunter2")
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, 1, i.Pending())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	fields := strings.Split(line, " ")
	require.Len(t, fields, 3, "record must be `name salt hash`")
	assert.Equal(t, "bob123", fields[0])
	assert.NotEmpty(t, fields[1])
	assert.NotEmpty(t, fields[2])
}

func TestIntake_UsernameValidation(t *testing.T) {
	cases := []struct {
		username string
		wantCode int
	}{
		{"bob123", 200},
		{"Alice", 200},
		{"bob; rm -rf", 400},
		{"bob smith", 400},
		{"bob/../etc", 400},
		{"", 400},
		{strings.Repeat("a", 64), 200},
		{strings.Repeat("a", 65), 400},
	}

	for _, tc := range cases {
		i, _ := newTestIntake(t, 100)
		rec := submit(t, i, tc.username, "pw")
		assert.Equal(t, tc.wantCode, rec.Code, "username %q", tc.username)
	}
}

func TestIntake_EmptyPasswordRejected(t *testing.T) {
	i, _ := newTestIntake(t, 100)

	rec := submit(t, i, "bob123", "")
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, 0, i.Pending())
}

func TestIntake_CounterSeededFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending")
	existing := "a SALT HASH\nb SALT HASH\nc SALT HASH\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o600))

	i, err := NewIntake(path, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, i.Pending())
}

func TestIntake_CeilingRejectsWithoutAppending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending")
	var sb strings.Builder
	for n := 0; n < 100; n++ {
		sb.WriteString("queued SALT HASH\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))

	i, err := NewIntake(path, 100)
	require.NoError(t, err)
	require.Equal(t, 100, i.Pending())

	// The 101st open request is refused as an internal error.
	rec := submit(t, i, "bob123", "pw")
	assert.Equal(t, 500, rec.Code)
	assert.Equal(t, 100, i.Pending())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sb.String(), string(data), "queue file must be untouched")
}

func TestIntake_MethodNotAllowed(t *testing.T) {
	i, _ := newTestIntake(t, 100)

	r := httptest.NewRequest("PUT", "/account", nil)
	r.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	i.ServeHTTP(rec, r)

	assert.Equal(t, 405, rec.Code)
}

// submit posts a secure form submission to the intake.
func submit(t *testing.T, i *Intake, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	r := httptest.NewRequest("POST", "/account", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	i.ServeHTTP(rec, r)
	return rec
}
