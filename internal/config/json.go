package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// jsonConfig is the file DTO. Duration fields take Go duration strings
// such as "15m" or "720h".
type jsonConfig struct {
	Addr            string `json:"addr"`
	StoreBackend    string `json:"store_backend"`
	DatabaseDSN     string `json:"database_dsn"`
	RedisAddr       string `json:"redis_addr"`
	RedisDB         *int   `json:"redis_db"`
	JWTSecret       string `json:"jwt_secret"`
	AccessTokenTTL  string `json:"access_token_ttl"`
	RefreshTokenTTL string `json:"refresh_token_ttl"`
	ResetTokenTTL   string `json:"reset_token_ttl"`
	RateLimitMax    *int   `json:"rate_limit_max"`
	RateLimitWindow string `json:"rate_limit_window"`
	SweepInterval   string `json:"sweep_interval"`
	SendGridKey     string `json:"sendgrid_key"`
	MailFrom        string `json:"mail_from"`
	MailFromName    string `json:"mail_from_name"`
	FrontendBaseURL string `json:"frontend_base_url"`
}

// applyJSON overlays values from the file named by the -config flag, if
// present in args. Runs before the env and flag overlays.
func (c *Config) applyJSON(args []string) error {
	path := configFileArg(args)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(raw, &jc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	overlayString(&c.Addr, jc.Addr)
	overlayString(&c.StoreBackend, jc.StoreBackend)
	overlayString(&c.DatabaseDSN, jc.DatabaseDSN)
	overlayString(&c.RedisAddr, jc.RedisAddr)
	overlayString(&c.JWTSecret, jc.JWTSecret)
	overlayString(&c.SendGridKey, jc.SendGridKey)
	overlayString(&c.MailFrom, jc.MailFrom)
	overlayString(&c.MailFromName, jc.MailFromName)
	overlayString(&c.FrontendBaseURL, jc.FrontendBaseURL)

	if jc.RedisDB != nil {
		c.RedisDB = *jc.RedisDB
	}
	if jc.RateLimitMax != nil {
		c.RateLimitMax = *jc.RateLimitMax
	}

	for _, d := range []struct {
		dst *time.Duration
		val string
	}{
		{&c.AccessTokenTTL, jc.AccessTokenTTL},
		{&c.RefreshTokenTTL, jc.RefreshTokenTTL},
		{&c.ResetTokenTTL, jc.ResetTokenTTL},
		{&c.RateLimitWindow, jc.RateLimitWindow},
		{&c.SweepInterval, jc.SweepInterval},
	} {
		if d.val == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.val)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		*d.dst = parsed
	}

	return nil
}

// configFileArg extracts the -config value without disturbing the main
// flag set.
func configFileArg(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "-config" || arg == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "-config="):
			return strings.TrimPrefix(arg, "-config=")
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

func overlayString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}
