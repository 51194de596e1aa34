package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jlrickert/textpix/pkg/gateway"
	"github.com/jlrickert/textpix/pkg/internal"
	"github.com/jlrickert/textpix/pkg/textpix"
)

// AppName names the per-user configuration directory.
const AppName = "textpix"

// EnvPrefix namespaces environment overrides, e.g. TEXTPIX_DATA_DIR.
const EnvPrefix = "TEXTPIX"

// Config holds all application configuration.
type Config struct {
	// Storage
	DataDir   string `mapstructure:"data-dir"`
	URLPrefix string `mapstructure:"url-prefix"`
	Watch     bool   `mapstructure:"watch"`

	// HTTP server
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors-origins"`

	// AI service
	OpenAIAPIKey   string        `mapstructure:"openai-api-key"`
	OpenAIBaseURL  string        `mapstructure:"openai-base-url"`
	ChatModel      string        `mapstructure:"chat-model"`
	ImageModel     string        `mapstructure:"image-model"`
	ImageSize      string        `mapstructure:"image-size"`
	ImageQuality   string        `mapstructure:"image-quality"`
	GatewayTimeout time.Duration `mapstructure:"gateway-timeout"`

	// Image download
	DownloadAttempts int           `mapstructure:"download-attempts"`
	DownloadDelay    time.Duration `mapstructure:"download-delay"`
	DownloadTimeout  time.Duration `mapstructure:"download-timeout"`

	MaxDescribeBytes int `mapstructure:"max-describe-bytes"`
}

// LoadOptions control where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit config file path. When empty, textpix.yaml
	// is searched in the working directory and the user config directory
	// and skipped if absent.
	ConfigFile string

	// EnvFile is a dotenv file loaded before reading the environment.
	// Variables already set are never overridden. Empty means ".env"; a
	// missing file is ignored.
	EnvFile string

	// Flags, when set, override every other source for keys with a flag of
	// the same name.
	Flags *pflag.FlagSet
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data-dir", "uploads")
	v.SetDefault("url-prefix", "uploads/")
	v.SetDefault("watch", false)
	v.SetDefault("addr", ":8080")
	v.SetDefault("cors-origins", []string{"*"})
	v.SetDefault("openai-api-key", "")
	v.SetDefault("openai-base-url", gateway.DefaultBaseURL)
	v.SetDefault("chat-model", gateway.DefaultChatModel)
	v.SetDefault("image-model", gateway.DefaultImageModel)
	v.SetDefault("image-size", gateway.DefaultImageSize)
	v.SetDefault("image-quality", gateway.DefaultImageQuality)
	v.SetDefault("gateway-timeout", gateway.DefaultTimeout)
	v.SetDefault("download-attempts", gateway.DefaultRetryPolicy.MaxAttempts)
	v.SetDefault("download-delay", gateway.DefaultRetryPolicy.Delay)
	v.SetDefault("download-timeout", gateway.DefaultRetryPolicy.Timeout)
	v.SetDefault("max-describe-bytes", textpix.DefaultMaxDescribeBytes)
}

// Load reads configuration from defaults, the config file, the dotenv file,
// the environment and flags, in increasing order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The API key is also accepted under its conventional name.
	if err := v.BindEnv("openai-api-key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := internal.ConfigDir(AppName); err == nil {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		for _, key := range v.AllKeys() {
			if f := opts.Flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration for errors. The API key is not required
// here since read-only commands never reach the AI service.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data-dir cannot be empty")
	}
	if c.DownloadAttempts < 1 {
		return fmt.Errorf("download-attempts must be at least 1")
	}
	if c.DownloadDelay < 0 {
		return fmt.Errorf("download-delay must be non-negative")
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("download-timeout must be positive")
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("gateway-timeout must be positive")
	}
	if c.MaxDescribeBytes <= 0 {
		return fmt.Errorf("max-describe-bytes must be positive")
	}
	return nil
}

// OpenAI returns the AI client configuration.
func (c *Config) OpenAI() gateway.OpenAIConfig {
	return gateway.OpenAIConfig{
		APIKey:       c.OpenAIAPIKey,
		BaseURL:      c.OpenAIBaseURL,
		ChatModel:    c.ChatModel,
		ImageModel:   c.ImageModel,
		ImageSize:    c.ImageSize,
		ImageQuality: c.ImageQuality,
		Timeout:      c.GatewayTimeout,
	}
}

// RetryPolicy returns the image download policy.
func (c *Config) RetryPolicy() gateway.RetryPolicy {
	return gateway.RetryPolicy{
		MaxAttempts: c.DownloadAttempts,
		Delay:       c.DownloadDelay,
		Timeout:     c.DownloadTimeout,
	}
}
