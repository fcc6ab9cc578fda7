package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCtl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCatalogRoundTrip(t *testing.T) {
	t.Setenv("BOOKING_TZ_OFFSET", "+00:00")
	dbPath := filepath.Join(t.TempDir(), "ctl.db")
	base := []string{"--driver", "sqlite", "--sqlite-path", dbPath}

	out, err := runCtl(t, append(base, "migrate")...)
	require.NoError(t, err)
	assert.Contains(t, out, "schema applied")

	out, err = runCtl(t, append(base, "add-service", "--name", "Consult", "--duration", "30")...)
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out), "\t")
	require.Len(t, fields, 3)
	serviceID := fields[0]
	assert.Equal(t, "Consult", fields[1])

	_, err = runCtl(t, append(base, "add-window", "--service", serviceID, "--weekday", "1", "--start", "09:00", "--end", "10:00")...)
	require.NoError(t, err)

	out, err = runCtl(t, append(base, "services")...)
	require.NoError(t, err)
	assert.Contains(t, out, serviceID)

	out, err = runCtl(t, append(base, "slots", "--service", serviceID, "--date", "2026-01-26")...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2026-01-26T09:00:00Z"))
	assert.True(t, strings.HasPrefix(lines[1], "2026-01-26T09:30:00Z"))
}

func TestAddWindowRejectsBadWeekday(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ctl.db")
	base := []string{"--driver", "sqlite", "--sqlite-path", dbPath, "--migrate"}

	out, err := runCtl(t, append(base, "add-service", "--name", "Cut", "--duration", "20")...)
	require.NoError(t, err)
	serviceID := strings.Split(strings.TrimSpace(out), "\t")[0]

	_, err = runCtl(t, append(base, "add-window", "--service", serviceID, "--weekday", "9")...)
	require.Error(t, err)
}

func TestSetStatusNeedsArgs(t *testing.T) {
	_, err := runCtl(t, "--driver", "sqlite", "set-status", "only-one")
	require.Error(t, err)
}
