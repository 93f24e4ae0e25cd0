package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/flagx"
	"github.com/dmitrijs2005/worktrack/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// strings such as "15m" or integer nanoseconds. Fields that are absent keep
// the value already present in Config.
type JsonConfig struct {
	EndpointAddrHTTP                   *string         `json:"endpoint_addr_http"`
	DatabaseDSN                        *string         `json:"database_dsn"`
	SecretKey                          *string         `json:"secret_key"`
	AccessTokenValidityDuration        *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration       *timex.Duration `json:"refresh_token_validity_duration"`
	ConfirmationTokenValidityDuration  *timex.Duration `json:"confirmation_token_validity_duration"`
	PasswordResetTokenValidityDuration *timex.Duration `json:"password_reset_token_validity_duration"`
	RotateRefreshTokens                *bool           `json:"rotate_refresh_tokens"`
	StrictPasswords                    *bool           `json:"strict_passwords"`
	PublicBaseURL                      *string         `json:"public_base_url"`
	SMTPHost                           *string         `json:"smtp_host"`
	SMTPPort                           *int            `json:"smtp_port"`
	SMTPUsername                       *string         `json:"smtp_username"`
	SMTPPassword                       *string         `json:"smtp_password"`
	SMTPFrom                           *string         `json:"smtp_from"`
	S3RootUser                         *string         `json:"s3_root_user"`
	S3RootPassword                     *string         `json:"s3_root_password"`
	S3Bucket                           *string         `json:"s3_bucket"`
	S3Region                           *string         `json:"s3_region"`
	S3BaseEndpoint                     *string         `json:"s3_base_endpoint"`
	RateLimitRPS                       *int            `json:"rate_limit_rps"`
	LogLevel                           *string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config (or the
// WORKTRACK_CONFIG variable) onto config. Without a path nothing happens.
// An unreadable file or invalid JSON panics: the server must not start on a
// half-read configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.ConfirmationTokenValidityDuration, c.ConfirmationTokenValidityDuration)
	setDuration(&config.PasswordResetTokenValidityDuration, c.PasswordResetTokenValidityDuration)
	if c.RotateRefreshTokens != nil {
		config.RotateRefreshTokens = *c.RotateRefreshTokens
	}
	if c.StrictPasswords != nil {
		config.StrictPasswords = *c.StrictPasswords
	}
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.RateLimitRPS != nil {
		config.RateLimitRPS = *c.RateLimitRPS
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
