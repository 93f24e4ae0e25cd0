package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/flagx"
)

var flagNames = []string{
	"-a", "-d", "-s", "-t", "-r", "-rotate", "-strict-passwords", "-base", "-l", "-rps",
	"-smtp-host", "-smtp-port", "-smtp-user", "-smtp-password", "-smtp-from",
	"-u", "-p", "-b", "-g", "-e",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string        HTTP bind address (e.g., ":8080")
//	-d string        PostgreSQL DSN
//	-s string        access token HMAC secret (at least 32 bytes)
//	-t int           access token validity, minutes
//	-r int           refresh token validity, minutes
//	-rotate=bool     rotate refresh tokens on every refresh
//	-strict-passwords=bool  enforce length and entropy on new passwords
//	-base string     public base URL used in email links
//	-l string        log level
//	-rps int         auth route rate limit, requests per second
//	-smtp-host, -smtp-port, -smtp-user, -smtp-password, -smtp-from
//	-u, -p, -b, -g, -e   S3 user, password, bucket, region, endpoint
//
// Boolean flags must use the -flag=value form because os.Args is filtered
// with flagx.FilterArgs first.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.BoolVar(&config.RotateRefreshTokens, "rotate", config.RotateRefreshTokens, "rotate refresh tokens on refresh")
	fs.BoolVar(&config.StrictPasswords, "strict-passwords", config.StrictPasswords, "enforce password strength")
	fs.StringVar(&config.PublicBaseURL, "base", config.PublicBaseURL, "public base URL for email links")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.IntVar(&config.RateLimitRPS, "rps", config.RateLimitRPS, "auth rate limit (requests per second)")

	fs.StringVar(&config.SMTPHost, "smtp-host", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "smtp-port", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUsername, "smtp-user", config.SMTPUsername, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "smtp-password", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.SMTPFrom, "smtp-from", config.SMTPFrom, "sender address")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
