package config

import (
	"context"
	"testing"
	"time"
)

const (
	testAccessSecret  = "test-access-secret-that-is-at-least-32-characters"
	testRefreshSecret = "test-refresh-secret-that-is-at-least-32-characters"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", testAccessSecret)
	t.Setenv("JWT_REFRESH_SECRET", testRefreshSecret)
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected Server.Port to be '8080', got '%s'", cfg.Server.Port)
	}

	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("Expected Server.ReadTimeout to be 15s, got %v", cfg.Server.ReadTimeout.Duration)
	}

	if cfg.Mongo.URI != "mongodb://localhost:27017" {
		t.Errorf("Expected Mongo.URI default, got '%s'", cfg.Mongo.URI)
	}

	if cfg.Mongo.Database != "account_service" {
		t.Errorf("Expected Mongo.Database to be 'account_service', got '%s'", cfg.Mongo.Database)
	}

	if cfg.Redis.Host != "localhost" {
		t.Errorf("Expected Redis.Host to be 'localhost', got '%s'", cfg.Redis.Host)
	}

	if cfg.Redis.DialTimeout.Duration != 5*time.Second {
		t.Errorf("Expected Redis.DialTimeout to be 5s, got %v", cfg.Redis.DialTimeout.Duration)
	}

	if cfg.JWT.AccessTokenExpiry.Duration != 15*time.Minute {
		t.Errorf("Expected JWT.AccessTokenExpiry to be 15m, got %v", cfg.JWT.AccessTokenExpiry.Duration)
	}

	if cfg.JWT.RefreshTokenExpiry.Duration != 10*24*time.Hour {
		t.Errorf("Expected JWT.RefreshTokenExpiry to be 10d, got %v", cfg.JWT.RefreshTokenExpiry.Duration)
	}

	if cfg.Security.BCryptCost != 10 {
		t.Errorf("Expected Security.BCryptCost to be 10, got %d", cfg.Security.BCryptCost)
	}

	if cfg.Security.MaxAvatarBytes != 2*1024*1024 {
		t.Errorf("Expected Security.MaxAvatarBytes to be 2MiB, got %d", cfg.Security.MaxAvatarBytes)
	}

	if !cfg.Cookie.Secure {
		t.Error("Expected Cookie.Secure to default to true")
	}

	if cfg.Storage.Bucket != "user-avatars" {
		t.Errorf("Expected Storage.Bucket to be 'user-avatars', got '%s'", cfg.Storage.Bucket)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be 'development', got '%s'", cfg.Env)
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		t.Error("Expected CORS.AllowedOrigins to have at least one value")
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MONGO_URI", "mongodb://mongo.example.com:27017")
	t.Setenv("JWT_REFRESH_TOKEN_EXPIRY", "30d")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("ENV", "production")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected Server.Port to be '9090', got '%s'", cfg.Server.Port)
	}

	if cfg.Mongo.URI != "mongodb://mongo.example.com:27017" {
		t.Errorf("Expected Mongo.URI override, got '%s'", cfg.Mongo.URI)
	}

	if cfg.JWT.RefreshTokenExpiry.Duration != 30*24*time.Hour {
		t.Errorf("Expected JWT.RefreshTokenExpiry to be 30d, got %v", cfg.JWT.RefreshTokenExpiry.Duration)
	}

	if cfg.Security.BCryptCost != 12 {
		t.Errorf("Expected Security.BCryptCost to be 12, got %d", cfg.Security.BCryptCost)
	}

	if cfg.Cookie.Secure {
		t.Error("Expected Cookie.Secure to be false")
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be 'production', got '%s'", cfg.Env)
	}
}

func TestLoadRejectsInvalidSecrets(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
	}{
		{name: "missing access secret", access: "", refresh: testRefreshSecret},
		{name: "short refresh secret", access: testAccessSecret, refresh: "short"},
		{name: "identical secrets", access: testAccessSecret, refresh: testAccessSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_ACCESS_SECRET", tt.access)
			t.Setenv("JWT_REFRESH_SECRET", tt.refresh)

			if _, err := Load(context.Background()); err == nil {
				t.Error("Expected error for invalid JWT secrets")
			}
		})
	}
}

func TestLoadRejectsLowBCryptCost(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BCRYPT_COST", "4")

	if _, err := Load(context.Background()); err == nil {
		t.Error("Expected error when BCRYPT_COST is below 10")
	}
}

func TestRedisAddress(t *testing.T) {
	redis := RedisConfig{Host: "localhost", Port: "6379"}

	if addr := redis.Address(); addr != "localhost:6379" {
		t.Errorf("Expected address to be 'localhost:6379', got '%s'", addr)
	}
}

func TestDurationDecode(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "15m", want: 15 * time.Minute},
		{in: "10d", want: 240 * time.Hour},
		{in: "", want: 0},
		{in: "xd", wantErr: true},
		{in: "-1h", wantErr: true},
		{in: "forever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.EnvDecode(context.Background(), tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tt.in, err)
			}
			if d.Duration != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, d.Duration)
			}
		})
	}
}
