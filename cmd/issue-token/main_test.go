package main

import (
	"bytes"
	"flag"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodcart/internal/auth"
	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestReadConfig(t *testing.T) {
	cfg, err := readConfig(newFlagSet(), []string{"-user", " owner-1 ", "-role", "store", "-ttl", "1h"}, env(map[string]string{envJWTSecret: "from-env"}))
	require.NoError(t, err)
	assert.Equal(t, config{userID: "owner-1", role: "store", secret: "from-env", ttl: time.Hour}, cfg)

	cfg, err = readConfig(newFlagSet(), []string{"-user", "u", "-secret", "flag-secret"}, env(map[string]string{envJWTSecret: "from-env"}))
	require.NoError(t, err)
	assert.Equal(t, "flag-secret", cfg.secret)
	assert.Equal(t, string(domain.RoleConsumer), cfg.role)
}

func TestReadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "missing user", args: nil, env: map[string]string{envJWTSecret: "s"}},
		{name: "missing secret", args: []string{"-user", "u"}},
		{name: "non-positive ttl", args: []string{"-user", "u", "-ttl", "0s"}, env: map[string]string{envJWTSecret: "s"}},
		{name: "unknown flag", args: []string{"-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readConfig(newFlagSet(), tt.args, env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestRun_IssuesParsableToken(t *testing.T) {
	var out bytes.Buffer
	cfg := config{userID: "demo-owner", role: "store", secret: "secret", ttl: time.Hour}

	require.NoError(t, run(&out, cfg, time.Now))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "role=store")

	principal, err := auth.NewTokenManager("secret", time.Hour).Parse(lines[0])
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: "demo-owner", Role: domain.RoleStore}, principal)
}

func TestRun_InvalidRole(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, config{userID: "u", role: "root", secret: "secret", ttl: time.Hour}, time.Now)

	assert.ErrorIs(t, err, domain.ErrRoleInvalid)
	assert.Empty(t, out.String())
}
