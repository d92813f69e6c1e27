package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

const (
	minSecretLength = 32
	minBCryptCost   = 10
	maxBCryptCost   = 31
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Mongo    MongoConfig    `env:",prefix=MONGO_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Cookie   CookieConfig   `env:",prefix=COOKIE_"`
	Storage  StorageConfig  `env:",prefix=STORAGE_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type MongoConfig struct {
	URI            string   `env:"URI,default=mongodb://localhost:27017"`
	Database       string   `env:"DB,default=account_service"`
	ConnectTimeout Duration `env:"CONNECT_TIMEOUT,default=10s"`
	RunMigrations  bool     `env:"RUN_MIGRATIONS,default=true"`
}

type RedisConfig struct {
	Host        string   `env:"HOST,default=localhost"`
	Port        string   `env:"PORT,default=6379"`
	Password    string   `env:"PASSWORD,default="`
	DB          int      `env:"DB,default=0"`
	DialTimeout Duration `env:"DIAL_TIMEOUT,default=5s"`
}

type JWTConfig struct {
	AccessSecret       string   `env:"ACCESS_SECRET,required"`
	RefreshSecret      string   `env:"REFRESH_SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=10d"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=10"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	MaxAvatarBytes    int64    `env:"MAX_AVATAR_BYTES,default=2097152"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PATCH,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

type CookieConfig struct {
	Secure bool   `env:"SECURE,default=true"`
	Domain string `env:"DOMAIN,default="`
}

type StorageConfig struct {
	Bucket          string `env:"BUCKET,default=user-avatars"`
	CredentialsFile string `env:"CREDENTIALS_FILE,default="`
	AvatarPrefix    string `env:"AVATAR_PREFIX,default=avatars"`
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if len(c.JWT.AccessSecret) < minSecretLength {
		return fmt.Errorf("JWT_ACCESS_SECRET must be at least %d characters long", minSecretLength)
	}
	if len(c.JWT.RefreshSecret) < minSecretLength {
		return fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters long", minSecretLength)
	}
	// A shared secret would let a refresh token pass as an access token and vice versa.
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if c.Security.BCryptCost < minBCryptCost || c.Security.BCryptCost > maxBCryptCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", minBCryptCost, maxBCryptCost)
	}
	if c.Security.MaxAvatarBytes <= 0 {
		return errors.New("MAX_AVATAR_BYTES must be positive")
	}
	if c.Storage.Bucket == "" {
		return errors.New("STORAGE_BUCKET is required")
	}

	return nil
}
