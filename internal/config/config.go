package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Platform    PlatformConfig
	Verify      VerifyConfig
	Entitlement EntitlementConfig
	Auth        AuthConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// PlatformConfig describes the platform's own serving surface: which
// hosts are its own, where misrouted visitors are sent, and which path
// prefixes bypass tenant routing entirely.
type PlatformConfig struct {
	RootDomain     string
	CanonicalHost  string
	ServingIP      string
	LocalHosts     []string
	BypassPrefixes []string
	StorefrontURL  string
}

type VerifyConfig struct {
	ResolverAddr     string
	Timeout          time.Duration
	MaxAttempts      int
	ThrottleInterval time.Duration
	ThrottleBurst    int
}

type EntitlementConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("BOLT")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.maxidleconns", 5)
	viper.SetDefault("redis.cachettl", "1m")
	viper.SetDefault("platform.rootdomain", "boltshop.io")
	viper.SetDefault("platform.canonicalhost", "shops.boltshop.io")
	viper.SetDefault("platform.localhosts", []string{"localhost", "127.0.0.1"})
	viper.SetDefault("platform.bypassprefixes", []string{
		"/api/", "/auth/", "/dashboard", "/static/", "/assets/",
		"/health", "/ready", "/metrics", "/favicon.ico",
	})
	viper.SetDefault("verify.resolveraddr", "8.8.8.8:53")
	viper.SetDefault("verify.timeout", "5s")
	viper.SetDefault("verify.maxattempts", 10)
	viper.SetDefault("verify.throttleinterval", "10s")
	viper.SetDefault("verify.throttleburst", 3)
	viper.SetDefault("entitlement.timeout", "5s")

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if url := os.Getenv("ENTITLEMENT_URL"); url != "" {
		cfg.Entitlement.BaseURL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	return &cfg, nil
}
