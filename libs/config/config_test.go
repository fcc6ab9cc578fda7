package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8080")
	p, err := Port("TEST_PORT", "1")
	require.NoError(t, err)
	assert.Equal(t, "8080", p)

	t.Setenv("TEST_PORT", "99999")
	_, err = Port("TEST_PORT", "1")
	assert.Error(t, err)
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "250ms")
	t.Setenv("TEST_LIST", " a, ,b ")

	n, err := Int("TEST_INT", 1)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	b, err := Bool("TEST_BOOL", false)
	require.NoError(t, err)
	assert.True(t, b)

	d, err := Duration("TEST_DURATION", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	assert.Equal(t, []string{"a", "b"}, List("TEST_LIST"))

	t.Setenv("TEST_FLOAT", "0.25")
	f, err := Float("TEST_FLOAT", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, f, 1e-9)
	t.Setenv("TEST_FLOAT", "quarter")
	_, err = Float("TEST_FLOAT", 1)
	assert.Error(t, err)

	d, err = Duration("TEST_DURATION_MISSING", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	t.Setenv("TEST_DURATION", "-1s")
	_, err = Duration("TEST_DURATION", time.Second)
	assert.Error(t, err)
}

func TestLoadDotenvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOTENV_A=from-file\nDOTENV_B=from-file\n"), 0o600))

	t.Setenv("DOTENV_A", "from-env")
	t.Setenv("DOTENV_B", "")
	require.NoError(t, os.Unsetenv("DOTENV_B"))
	t.Cleanup(func() { _ = os.Unsetenv("DOTENV_B") })

	LoadDotenv(path)
	assert.Equal(t, "from-env", String("DOTENV_A", ""))
	assert.Equal(t, "from-file", String("DOTENV_B", ""))
}
