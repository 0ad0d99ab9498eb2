package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"quotestash/internal/config"
)

func writeCredsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeCredsFile(t, `AWS_ACCESS_KEY_ID=AKIAEXAMPLE
AWS_SECRET_ACCESS_KEY=secret
AWS_DEFAULT_REGION=eu-west-1
FINNHUB_API_KEY=fh-token
`)

	creds, err := config.LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, "AKIAEXAMPLE", creds.AWSAccessKeyID)
	require.Equal(t, "secret", creds.AWSSecretAccessKey)
	require.Equal(t, "eu-west-1", creds.Region)
	require.Equal(t, "fh-token", creds.FinnhubAPIKey)
}

func TestLoadCredentials_DefaultRegion(t *testing.T) {
	path := writeCredsFile(t, `AWS_ACCESS_KEY_ID=id
AWS_SECRET_ACCESS_KEY=secret
FINNHUB_API_KEY=token
`)

	creds, err := config.LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, "us-east-1", creds.Region)
}

func TestLoadCredentials_MissingAPIKey(t *testing.T) {
	path := writeCredsFile(t, `AWS_ACCESS_KEY_ID=id
AWS_SECRET_ACCESS_KEY=secret
`)

	_, err := config.LoadCredentials(path)
	require.ErrorIs(t, err, config.ErrMissingKey)
	require.Contains(t, err.Error(), "FINNHUB_API_KEY")
}

func TestLoadCredentials_FileAbsent(t *testing.T) {
	_, err := config.LoadCredentials(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
}

func TestLoadSettings_EnvOverrides(t *testing.T) {
	t.Setenv("QUOTESTASH_FUNCTION", "my-fn")
	t.Setenv("QUOTESTASH_SYMBOLS", "AAPL, MSFT ,")
	t.Setenv("QUOTESTASH_TIMEOUT_SEC", "60")
	t.Setenv("QUOTESTASH_MEMORY_MB", "bogus")

	s := config.LoadSettings("ap-south-1")
	require.Equal(t, "my-fn", s.FunctionName)
	require.Equal(t, "ap-south-1", s.Region)
	require.Equal(t, []string{"AAPL", "MSFT"}, s.Symbols)
	require.Equal(t, int32(60), s.TimeoutSeconds)
	require.Equal(t, int32(128), s.MemoryLimitMB) // bad override ignored
	require.Equal(t, "rate(1 hour)", s.ScheduleExpression)
}
