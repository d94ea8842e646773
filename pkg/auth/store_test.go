package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pforte-dev/pforte/pkg/auth/passwd"
)

// writePasswd writes a credential file with the given lines.
func writePasswd(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passwd")
	content := strings.Join(lines, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// credLine builds a real credential line for a known password.
func credLine(t *testing.T, name, password string) string {
	t.Helper()
	salt, err := passwd.NewSalt()
	require.NoError(t, err)
	hash, err := passwd.Derive(password, salt)
	require.NoError(t, err)
	return name + " " + salt + " " + hash
}

func TestLoad_MissingFileCreatedEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passwd")

	s, err := Load(path, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	// The file must now exist so an operator can append to it.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoad_UnreadableFileIsFatal(t *testing.T) {
	// A directory in place of the credential file is an I/O error that
	// is not "missing", so startup must fail.
	dir := t.TempDir()

	_, err := Load(dir, 100, 3)
	assert.Error(t, err)
}

func TestLoad_ParsesRecords(t *testing.T) {
	path := writePasswd(t,
		credLine(t, "alice", "correct horse"),
		"bob SALT HASH locked",
		"", // blank
		"x", // short garbage, skipped
	)

	s, err := Load(path, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	rec, err := s.Resolve("alice")
	require.NoError(t, err)
	assert.False(t, rec.Locked)
	assert.False(t, rec.Shadow)
	assert.Equal(t, 0, rec.Attempts)

	rec, err = s.Resolve("bob")
	require.NoError(t, err)
	assert.True(t, rec.Locked)
}

func TestLoad_LongLineAcceptedWithWarning(t *testing.T) {
	long := "carol SALT " + strings.Repeat("A", 400)
	path := writePasswd(t, long)

	s, err := Load(path, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestResolve_UnknownNameGetsShadowRecord(t *testing.T) {
	path := writePasswd(t, credLine(t, "alice", "pw"))
	s, err := Load(path, 100, 3)
	require.NoError(t, err)

	rec, err := s.Resolve("mallory")
	require.NoError(t, err)
	assert.True(t, rec.Shadow)
	assert.Equal(t, shadowHash, rec.Hash)
	assert.NotEmpty(t, rec.Salt)
	assert.False(t, rec.Locked)
	assert.Equal(t, 0, rec.Attempts)

	// Second sight returns the same record, not a fresh one.
	again, err := s.Resolve("mallory")
	require.NoError(t, err)
	assert.Same(t, rec, again)

	assert.Equal(t, 2, s.Len())
}

func TestResolve_CeilingRefusesNewNames(t *testing.T) {
	path := writePasswd(t, credLine(t, "alice", "pw"))
	s, err := Load(path, 2, 3)
	require.NoError(t, err)

	_, err = s.Resolve("mallory")
	require.NoError(t, err)

	// Population is now 2 (alice + mallory) and at the ceiling.
	_, err = s.Resolve("eve")
	assert.ErrorIs(t, err, ErrTooManyNames)

	// Known names keep resolving past the ceiling.
	_, err = s.Resolve("alice")
	assert.NoError(t, err)
	_, err = s.Resolve("mallory")
	assert.NoError(t, err)
}

func TestVerdict_MatchGrants(t *testing.T) {
	path := writePasswd(t, credLine(t, "alice", "pw"))
	s, err := Load(path, 100, 3)
	require.NoError(t, err)
	rec, err := s.Resolve("alice")
	require.NoError(t, err)

	assert.True(t, s.Verdict(rec, true))
	assert.Equal(t, 0, rec.Attempts)
}

func TestVerdict_FailuresAccumulateAndLock(t *testing.T) {
	path := writePasswd(t, credLine(t, "alice", "pw"))
	s, err := Load(path, 100, 3)
	require.NoError(t, err)
	rec, err := s.Resolve("alice")
	require.NoError(t, err)

	// Three failures: counted but not locked.
	for i := 1; i <= 3; i++ {
		assert.False(t, s.Verdict(rec, false))
		assert.Equal(t, i, rec.Attempts)
		assert.False(t, rec.Locked, "locked after %d failures", i)
	}

	// Fourth failure crosses the threshold.
	assert.False(t, s.Verdict(rec, false))
	assert.True(t, rec.Locked)

	// A correct password no longer helps, and keeps counting.
	assert.False(t, s.Verdict(rec, true))
	assert.Equal(t, 5, rec.Attempts)
	assert.True(t, rec.Locked)
}

func TestVerdict_SuccessDoesNotResetCounter(t *testing.T) {
	path := writePasswd(t, credLine(t, "alice", "pw"))
	s, err := Load(path, 100, 3)
	require.NoError(t, err)
	rec, err := s.Resolve("alice")
	require.NoError(t, err)

	s.Verdict(rec, false)
	s.Verdict(rec, false)
	require.True(t, s.Verdict(rec, true))

	// The counter survives the successful login; two more failures
	// still lock the record.
	assert.Equal(t, 2, rec.Attempts)
	s.Verdict(rec, false)
	s.Verdict(rec, false)
	assert.True(t, rec.Locked)
}
