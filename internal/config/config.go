package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	TOTP     TOTPConfig     `yaml:"totp"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret              string `yaml:"secret"`
	AccessExpireMinutes int    `yaml:"access_expire_minutes"`
	RefreshExpireHours  int    `yaml:"refresh_expire_hours"`
}

type TOTPConfig struct {
	Issuer string `yaml:"issuer"`
}

// OAuthConfig holds the 42 intranet OAuth application settings.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	ProfileURL   string `yaml:"profile_url"`
	FrontendURL  string `yaml:"frontend_url"`
}

// RedisConfig for the optional async stats queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "pongarena.db",
		},
		JWT: JWTConfig{
			Secret:              "pongarena-secret-key-change-in-production",
			AccessExpireMinutes: 30,
			RefreshExpireHours:  24,
		},
		TOTP: TOTPConfig{
			Issuer: "pongarena",
		},
		OAuth: OAuthConfig{
			AuthURL:     "https://api.intra.42.fr/oauth/authorize",
			TokenURL:    "https://api.intra.42.fr/oauth/token",
			ProfileURL:  "https://api.intra.42.fr/v2/me",
			FrontendURL: "http://localhost:3000",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if clientID := os.Getenv("FT_CLIENT_ID"); clientID != "" {
		c.OAuth.ClientID = clientID
	}
	if clientSecret := os.Getenv("FT_CLIENT_SECRET"); clientSecret != "" {
		c.OAuth.ClientSecret = clientSecret
	}
	if redirectURI := os.Getenv("FT_REDIRECT_URI"); redirectURI != "" {
		c.OAuth.RedirectURI = redirectURI
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		c.OAuth.FrontendURL = frontendURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.Redis.DB = n
		}
	}
}

// applyDefaults fills in zero values left by a partial config file.
func (c *Config) applyDefaults() {
	if c.JWT.AccessExpireMinutes <= 0 {
		c.JWT.AccessExpireMinutes = 30
	}
	if c.JWT.RefreshExpireHours <= 0 {
		c.JWT.RefreshExpireHours = 24
	}
	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = "pongarena"
	}
	if c.OAuth.AuthURL == "" {
		c.OAuth.AuthURL = "https://api.intra.42.fr/oauth/authorize"
	}
	if c.OAuth.TokenURL == "" {
		c.OAuth.TokenURL = "https://api.intra.42.fr/oauth/token"
	}
	if c.OAuth.ProfileURL == "" {
		c.OAuth.ProfileURL = "https://api.intra.42.fr/v2/me"
	}
	if c.OAuth.FrontendURL == "" {
		c.OAuth.FrontendURL = "http://localhost:3000"
	}
}
