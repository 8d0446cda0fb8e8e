package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	DB         `yaml:"db"`
	Auth       `yaml:"auth"`
	UserAPI    `yaml:"user_api"`
	S3         `yaml:"s3"`
	Jobs       `yaml:"jobs"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":3000"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type DB struct {
	URL         string        `yaml:"url" env:"TURSO_DB_URL" env-required:"true"`
	AuthToken   string        `yaml:"auth_token" env:"TURSO_AUTH_TOKEN" env-required:"true"`
	Timeout     time.Duration `yaml:"timeout" env:"TURSO_TIMEOUT" env-default:"30s"`
	AutoMigrate bool          `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer     string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"freshly"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"1h"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"720h"`
	Leeway     time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"30s"`
}

type UserAPI struct {
	URL     string        `yaml:"url" env:"USER_API_URL" env-required:"true"`
	APIKey  string        `yaml:"api_key" env:"USER_API_KEY" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"USER_API_TIMEOUT" env-default:"10s"`
}

// S3 configures product image uploads. An empty bucket disables them.
type S3 struct {
	Bucket          string        `yaml:"bucket" env:"S3_BUCKET"`
	Region          string        `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	Endpoint        string        `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKeyID     string        `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string        `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	PublicBaseURL   string        `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
	PresignTTL      time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL" env-default:"15m"`
}

type Jobs struct {
	TokenCleanupSchedule string `yaml:"token_cleanup_schedule" env:"TOKEN_CLEANUP_SCHEDULE" env-default:"@every 1h"`
}

func (s S3) Enabled() bool { return s.Bucket != "" }

func MustLoadConfig(configPath string) *Config {
	config, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	return config
}

// Load reads configuration from the YAML file at path, or from the
// environment alone when path is empty. A .env file in the working
// directory is applied first when it exists.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var config Config

	if path == "" {
		if err := cleanenv.ReadEnv(&config); err != nil {
			return nil, err
		}
	} else {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &config); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate rejects required settings that are present but blank.
func (c *Config) validate() error {
	required := []struct {
		name, value string
	}{
		{"TURSO_DB_URL", c.DB.URL},
		{"TURSO_AUTH_TOKEN", c.DB.AuthToken},
		{"JWT_SECRET", c.Auth.JWTSecret},
		{"USER_API_URL", c.UserAPI.URL},
		{"USER_API_KEY", c.UserAPI.APIKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s must not be empty", r.name)
		}
	}
	return nil
}
