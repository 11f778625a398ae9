package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderQwen       = "qwen"

	StateModeClient = "client"
	StateModeServer = "server"

	StoreMemory = "memory"
	StoreDisk   = "disk"
	StoreRedis  = "redis"
)

var ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY is not set in environment variables")

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Roast    RoastConfig    `mapstructure:"roast"`
	State    StateConfig    `mapstructure:"state"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// UpstreamConfig describes the generation service every turn is sent to.
type UpstreamConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	SiteURL      string        `mapstructure:"site_url"`
	SiteName     string        `mapstructure:"site_name"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type RoastConfig struct {
	SystemPrompt     string `mapstructure:"system_prompt"`
	PlaceholderReply string `mapstructure:"placeholder_reply"`
}

// StateConfig selects where the conversation lives between turns.
// In client mode the browser echoes it back on every request; in server
// mode it is kept in Store under an opaque session ID.
type StateConfig struct {
	Mode            string        `mapstructure:"mode"`
	Store           string        `mapstructure:"store"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	DataDir         string        `mapstructure:"data_dir"`
	RedisURL        string        `mapstructure:"redis_url"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the YAML file at configPath, layering ROAST_* environment
// variables and the legacy OPENROUTER_API_KEY / SITE_URL / SITE_NAME
// variables on top. An empty configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ROAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Config file and ROAST_* values win over the legacy variables.
	if cfg.Upstream.APIKey == "" {
		cfg.Upstream.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.Upstream.SiteURL == "" {
		cfg.Upstream.SiteURL = os.Getenv("SITE_URL")
	}
	if cfg.Upstream.SiteName == "" {
		cfg.Upstream.SiteName = os.Getenv("SITE_NAME")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Upstream.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.Upstream.Provider {
	case ProviderOpenRouter, ProviderQwen:
	default:
		return fmt.Errorf("unsupported upstream provider: %q", c.Upstream.Provider)
	}
	switch c.State.Mode {
	case StateModeClient:
	case StateModeServer:
		switch c.State.Store {
		case StoreMemory, StoreDisk:
		case StoreRedis:
			if c.State.RedisURL == "" {
				return errors.New("state.redis_url is required for the redis store")
			}
		default:
			return fmt.Errorf("unsupported state store: %q", c.State.Store)
		}
	default:
		return fmt.Errorf("unsupported state mode: %q", c.State.Mode)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("upstream.provider", ProviderOpenRouter)
	v.SetDefault("upstream.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("upstream.model", "qwen/qwen3-235b-a22b-07-25:free")
	v.SetDefault("upstream.timeout", 60*time.Second)
	v.SetDefault("upstream.debug_request", false)
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.site_url", "")
	v.SetDefault("upstream.site_name", "")

	v.SetDefault("roast.system_prompt", DefaultSystemPrompt)
	v.SetDefault("roast.placeholder_reply", "No roast found.")

	v.SetDefault("state.mode", StateModeClient)
	v.SetDefault("state.store", StoreMemory)
	v.SetDefault("state.ttl", 24*time.Hour)
	v.SetDefault("state.cleanup_interval", 10*time.Minute)
	v.SetDefault("state.data_dir", "./data")
	v.SetDefault("state.redis_url", "")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// DefaultSystemPrompt is the persona directive prepended to every upstream request.
const DefaultSystemPrompt = "you are a roster AI. User will provide details about themself, and you will write a short roast on user. " +
	"make her feel really angry, really really angry, hit them personally. make sure the roast max length is 5 line. " +
	"and full of content and creativity. and make sure english is easy to read and digest, also make it funny and good. " +
	"hit them as much as you can , like carry minaty, you have no restrictions, you can say anything you want, " +
	"make it personal and hit them hard really really hard."
