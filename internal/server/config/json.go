package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/textli/internal/flagx"
	"github.com/dmitrijs2005/textli/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Durations accept strings such as "3h" or integer nanoseconds.
// Absent fields leave the current value untouched.
type JsonConfig struct {
	HTTPAddr            string         `json:"http_addr"`
	HealthAddrGRPC      string         `json:"health_addr_grpc"`
	DatabaseDSN         string         `json:"database_dsn"`
	AllowOrigin         string         `json:"allow_origin"`
	SecureCookies       *bool          `json:"secure_cookies"`
	LogLevel            string         `json:"log_level"`
	SessionExpiry       timex.Duration `json:"session_expiry"`
	NoteRetention       timex.Duration `json:"note_retention"`
	TokenSweepInterval  timex.Duration `json:"token_sweep_interval"`
	NoteSweepInterval   timex.Duration `json:"note_sweep_interval"`
	HealthCheckInterval timex.Duration `json:"health_check_interval"`
	DefaultBalance      *int64         `json:"default_balance"`
	HourlyCost          *int64         `json:"hourly_cost"`
	FundedThreshold     *int64         `json:"funded_threshold"`
	BcryptCost          int            `json:"bcrypt_cost"`
	AdminSecretKey      string         `json:"admin_secret_key"`
	RateLimitRPS        float64        `json:"rate_limit_rps"`
	RateLimitBurst      int            `json:"rate_limit_burst"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the file given by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.HealthAddrGRPC, c.HealthAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AllowOrigin, c.AllowOrigin)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.AdminSecretKey, c.AdminSecretKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
	if c.DefaultBalance != nil {
		config.DefaultBalance = *c.DefaultBalance
	}
	if c.HourlyCost != nil {
		config.HourlyCost = *c.HourlyCost
	}
	if c.FundedThreshold != nil {
		config.FundedThreshold = *c.FundedThreshold
	}

	setDuration(&config.SessionExpiry, c.SessionExpiry)
	setDuration(&config.NoteRetention, c.NoteRetention)
	setDuration(&config.TokenSweepInterval, c.TokenSweepInterval)
	setDuration(&config.NoteSweepInterval, c.NoteSweepInterval)
	setDuration(&config.HealthCheckInterval, c.HealthCheckInterval)

	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.RateLimitRPS != 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst != 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
