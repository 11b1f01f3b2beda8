package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func newFlagSet() *flag.FlagSet {
	return flag.NewFlagSet("test", flag.ContinueOnError)
}

func TestParse_Defaults(t *testing.T) {
	opts, err := parse(newFlagSet(), []string{"-c", ""}, envMap(map[string]string{"SECRET_KEY": "s"}))
	require.NoError(t, err)

	assert.Equal(t, "localhost:5001", opts.Address)
	assert.Equal(t, "postgres", opts.DatabaseDriver)
	assert.Equal(t, time.Hour, opts.TokenTTL.Duration)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, "s", opts.JWTSecret)
}

func TestParse_FlagsAndEnv(t *testing.T) {
	args := []string{"-a", ":9000", "-d", "postgres://flag", "-ttl", "30m", "-cors", "http://a, http://b", "-c", ""}
	env := map[string]string{
		"SECRET_KEY":     "env-secret",
		"DATABASE_URL":   "postgres://env",
		"GEMINI_API_KEY": "g",
	}

	opts, err := parse(newFlagSet(), args, envMap(env))
	require.NoError(t, err)

	assert.Equal(t, ":9000", opts.Address)
	assert.Equal(t, "postgres://env", opts.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, opts.TokenTTL.Duration)
	assert.Equal(t, []string{"http://a", "http://b"}, opts.CORSOrigins)
	assert.Equal(t, "g", opts.GeminiAPIKey)
}

func TestParse_PortEnv(t *testing.T) {
	opts, err := parse(newFlagSet(), []string{"-c", ""}, envMap(map[string]string{"SECRET_KEY": "s", "PORT": "5001"}))
	require.NoError(t, err)
	assert.Equal(t, ":5001", opts.Address)
}

func TestParse_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "address: \":7000\"\ndatabase_driver: pgx\njwt_secret: from-file\ntoken_ttl: 2h\ncors_origins:\n  - https://tracker.example\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	opts, err := parse(newFlagSet(), []string{"-config", path}, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ":7000", opts.Address)
	assert.Equal(t, "pgx", opts.DatabaseDriver)
	assert.Equal(t, "from-file", opts.JWTSecret)
	assert.Equal(t, 2*time.Hour, opts.TokenTTL.Duration)
	assert.Equal(t, []string{"https://tracker.example"}, opts.CORSOrigins)
}

func TestParse_JSONFileViaEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"jwt_secret":"j","log_level":"debug","token_ttl":"15m"}`), 0o600))

	opts, err := parse(newFlagSet(), nil, envMap(map[string]string{"CONFIG": path}))
	require.NoError(t, err)

	assert.Equal(t, "j", opts.JWTSecret)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, 15*time.Minute, opts.TokenTTL.Duration)
}

func TestParse_Errors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))

	_, err := parse(newFlagSet(), []string{"-c", bad}, envMap(map[string]string{"SECRET_KEY": "s"}))
	assert.Error(t, err)

	_, err = parse(newFlagSet(), []string{"-c", ""}, envMap(nil))
	assert.ErrorContains(t, err, "jwt secret")

	_, err = parse(newFlagSet(), []string{"-c", "", "-tls-cert", "a.crt"}, envMap(map[string]string{"SECRET_KEY": "s"}))
	assert.ErrorContains(t, err, "tls")
}
