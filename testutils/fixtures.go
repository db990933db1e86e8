package testutils

import (
	"time"

	"github.com/tech-arch1tect/authority/config"
)

// TestSecret passes config validation: long enough and free of weak patterns.
const TestSecret = "a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p6q7r8s9t0u1v2w3x4y5z6"

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Authority Test",
			URL:  "http://localhost:8080",
		},
		Server: config.ServerConfig{
			Host:        "localhost",
			Port:        "8080",
			APIPrefix:   "/api/auth",
			DocsEnabled: true,
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		JWT: config.JWTConfig{
			SecretKey:        TestSecret,
			Issuer:           "authority-test",
			AccessExpiry:     15 * time.Minute,
			RefreshExpiry:    24 * time.Hour,
			ActivationExpiry: 30 * 24 * time.Hour,
			ResetExpiry:      24 * time.Hour,
		},
		Auth: config.AuthConfig{
			Argon2Memory:           1024,
			Argon2Iterations:       1,
			Argon2Parallelism:      1,
			Argon2SaltLength:       16,
			Argon2KeyLength:        32,
			MaxDeviceLength:        256,
			MaxPageSize:            100,
			CookieName:             "refresh_token",
			CookieSecure:           false,
			CookiePath:             "/",
			SessionCleanupInterval: time.Hour,
		},
		Mail: config.MailConfig{
			Transport:   "log",
			Host:        "localhost",
			Port:        1025,
			Encryption:  "none",
			FromAddress: "noreply@authority.local",
			FromName:    "Authority",
			AMQPQueue:   "authority.mail",
		},
		Revocation: config.RevocationConfig{
			Store:         "memory",
			RedisPrefix:   "authority:consumed:",
			CleanupPeriod: time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:   false,
			Requests:  10,
			Period:    time.Minute,
			CountMode: config.CountAll,
			Store:     "memory",
		},
		Metrics: config.MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
		},
	}
}

var TestUsers = struct {
	Alice struct {
		Email    string
		Password string
	}
	Bob struct {
		Email    string
		Password string
	}
}{
	Alice: struct {
		Email    string
		Password string
	}{
		Email:    "a@x.io",
		Password: "pw1",
	},
	Bob: struct {
		Email    string
		Password string
	}{
		Email:    "b@x.io",
		Password: "hunter22",
	},
}
