package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays TEXTLI_* environment variables. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
func parseEnv(config *Config) error {
	_ = godotenv.Load()

	envString("TEXTLI_HTTP_ADDR", &config.HTTPAddr)
	envString("TEXTLI_HEALTH_ADDR_GRPC", &config.HealthAddrGRPC)
	envString("TEXTLI_DATABASE_DSN", &config.DatabaseDSN)
	envString("DATABASE_URL", &config.DatabaseDSN)
	envString("TEXTLI_ALLOW_ORIGIN", &config.AllowOrigin)
	envString("TEXTLI_LOG_LEVEL", &config.LogLevel)
	envString("TEXTLI_ADMIN_SECRET_KEY", &config.AdminSecretKey)
	envString("TEXTLI_S3_ROOT_USER", &config.S3RootUser)
	envString("TEXTLI_S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("TEXTLI_S3_BUCKET", &config.S3Bucket)
	envString("TEXTLI_S3_REGION", &config.S3Region)
	envString("TEXTLI_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	if err := envBool("TEXTLI_SECURE_COOKIES", &config.SecureCookies); err != nil {
		return err
	}

	for key, dst := range map[string]*time.Duration{
		"TEXTLI_SESSION_EXPIRY":        &config.SessionExpiry,
		"TEXTLI_NOTE_RETENTION":        &config.NoteRetention,
		"TEXTLI_TOKEN_SWEEP_INTERVAL":  &config.TokenSweepInterval,
		"TEXTLI_NOTE_SWEEP_INTERVAL":   &config.NoteSweepInterval,
		"TEXTLI_HEALTH_CHECK_INTERVAL": &config.HealthCheckInterval,
	} {
		if err := envDuration(key, dst); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*int64{
		"TEXTLI_DEFAULT_BALANCE":  &config.DefaultBalance,
		"TEXTLI_HOURLY_COST":      &config.HourlyCost,
		"TEXTLI_FUNDED_THRESHOLD": &config.FundedThreshold,
	} {
		if err := envInt64(key, dst); err != nil {
			return err
		}
	}

	if v, ok := os.LookupEnv("TEXTLI_BCRYPT_COST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TEXTLI_BCRYPT_COST: %w", err)
		}
		config.BcryptCost = n
	}

	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envInt64(key string, dst *int64) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
