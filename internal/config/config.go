package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingKey marks a required key that is absent from the
// credentials file. Callers match it with errors.Is.
var ErrMissingKey = errors.New("missing required config key")

// Credentials holds the operator-edited secrets loaded from a flat
// key=value file. The file is never checked into version control.
type Credentials struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	Region             string
	FinnhubAPIKey      string
}

// Settings is the immutable deployment configuration shared by the
// provisioner and the handler packaging step. One value is built per
// run and passed down; nothing mutates it afterwards.
type Settings struct {
	FunctionName       string
	Region             string
	RoleName           string
	BucketName         string
	RuleName           string
	ScheduleExpression string
	TimeoutSeconds     int32
	MemoryLimitMB      int32
	Symbols            []string
	KeyPrefix          string
	HandlerDir         string
}

// Defaults returns the stock deployment settings. Env overrides are
// applied on top, flags on top of that where a command exposes them.
func Defaults() Settings {
	return Settings{
		FunctionName:       "finnhub-stock-data",
		Region:             "us-east-1",
		RoleName:           "lambda-finnhub-role",
		BucketName:         "finnhub-stock-data",
		RuleName:           "finnhub-data-schedule",
		ScheduleExpression: "rate(1 hour)",
		TimeoutSeconds:     30,
		MemoryLimitMB:      128,
		Symbols:            []string{"AAPL"},
		HandlerDir:         "./cmd/handler",
	}
}

// LoadCredentials reads the dotenv-format credentials file at path and
// validates that every required key is present. Validation happens
// here, before any cloud call is attempted.
func LoadCredentials(path string) (Credentials, error) {
	kv, err := godotenv.Read(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials file %s: %w", path, err)
	}
	creds := Credentials{
		AWSAccessKeyID:     kv["AWS_ACCESS_KEY_ID"],
		AWSSecretAccessKey: kv["AWS_SECRET_ACCESS_KEY"],
		Region:             kv["AWS_DEFAULT_REGION"],
		FinnhubAPIKey:      kv["FINNHUB_API_KEY"],
	}
	if creds.Region == "" {
		creds.Region = "us-east-1"
	}
	for _, req := range []struct{ key, val string }{
		{"AWS_ACCESS_KEY_ID", creds.AWSAccessKeyID},
		{"AWS_SECRET_ACCESS_KEY", creds.AWSSecretAccessKey},
		{"FINNHUB_API_KEY", creds.FinnhubAPIKey},
	} {
		if req.val == "" {
			return Credentials{}, fmt.Errorf("%w: %s (in %s)", ErrMissingKey, req.key, path)
		}
	}
	return creds, nil
}

// LoadSettings builds Settings from defaults plus env overrides.
// region, when non-empty, comes from the credentials file.
func LoadSettings(region string) Settings {
	s := Defaults()
	if region != "" {
		s.Region = region
	}
	applyEnv(&s)
	return s
}

func applyEnv(s *Settings) {
	if v := os.Getenv("QUOTESTASH_FUNCTION"); v != "" {
		s.FunctionName = v
	}
	if v := os.Getenv("QUOTESTASH_ROLE"); v != "" {
		s.RoleName = v
	}
	if v := os.Getenv("QUOTESTASH_BUCKET"); v != "" {
		s.BucketName = v
	}
	if v := os.Getenv("QUOTESTASH_RULE"); v != "" {
		s.RuleName = v
	}
	if v := os.Getenv("QUOTESTASH_SCHEDULE"); v != "" {
		s.ScheduleExpression = v
	}
	if v := os.Getenv("QUOTESTASH_SYMBOLS"); v != "" {
		if syms := SplitCSV(v); len(syms) > 0 {
			s.Symbols = syms
		}
	}
	if v := os.Getenv("QUOTESTASH_KEY_PREFIX"); v != "" {
		s.KeyPrefix = v
	}
	if v := os.Getenv("QUOTESTASH_HANDLER_DIR"); v != "" {
		s.HandlerDir = v
	}
	if v := os.Getenv("QUOTESTASH_TIMEOUT_SEC"); v != "" {
		if x, err := strconv.Atoi(v); err == nil && x > 0 {
			s.TimeoutSeconds = int32(x)
		}
	}
	if v := os.Getenv("QUOTESTASH_MEMORY_MB"); v != "" {
		if x, err := strconv.Atoi(v); err == nil && x > 0 {
			s.MemoryLimitMB = int32(x)
		}
	}
}

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
