package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/atelier-ops/workflow-hub/internal/gateway"
	"github.com/atelier-ops/workflow-hub/internal/notify"
	"github.com/atelier-ops/workflow-hub/internal/workflow"
)

// Config holds the configuration for the application. Workflow
// definitions, notification targets, and webhook source secrets are
// deployment configuration: loaded once here, read-only afterwards.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`

	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`

	Auth struct {
		Issuer       string `mapstructure:"issuer"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		RedirectURL  string `mapstructure:"redirect_url"`
	} `mapstructure:"auth"`

	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`

	Webhooks struct {
		Sources map[string]WebhookSource `mapstructure:"sources"`
	} `mapstructure:"webhooks"`

	Notifications struct {
		Retry         notify.Policy                 `mapstructure:"retry"`
		Timeout       time.Duration                 `mapstructure:"timeout"`
		Collaborators map[string]CollaboratorConfig `mapstructure:"collaborators"`
		// Targets maps workflow type -> state -> collaborator names.
		Targets map[string]map[string][]string `mapstructure:"targets"`
	} `mapstructure:"notifications"`

	Sync struct {
		Blocking bool   `mapstructure:"blocking"`
		Name     string `mapstructure:"name"`
		URL      string `mapstructure:"url"`
	} `mapstructure:"sync"`

	Workflows []workflow.Definition `mapstructure:"workflows"`
}

// WebhookSource configures one inbound webhook source: its shared
// secret and per-caller rate limit.
type WebhookSource struct {
	Secret string  `mapstructure:"secret"`
	Rate   float64 `mapstructure:"rate"`
	Burst  int     `mapstructure:"burst"`
}

// CollaboratorConfig configures one outbound notification collaborator.
type CollaboratorConfig struct {
	URL string `mapstructure:"url"`
}

// LoadConfig loads the configuration from a file and the environment.
// An empty path searches the working directory and ./config.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.applyDefaults()

	if err := config.Notifications.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notification retry policy: %w", err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Notifications.Retry == (notify.Policy{}) {
		c.Notifications.Retry = notify.DefaultPolicy()
	}
	if c.Notifications.Timeout == 0 {
		c.Notifications.Timeout = 10 * time.Second
	}
	if c.Sync.Name == "" {
		c.Sync.Name = "external"
	}
}

// Secret implements gateway.SecretSource over the configured sources.
func (c *Config) Secret(source string) (string, bool) {
	s, ok := c.Webhooks.Sources[source]
	if !ok || s.Secret == "" {
		return "", false
	}
	return s.Secret, true
}

// SourceLimits returns the per-source rate limits for the gateway.
func (c *Config) SourceLimits() map[string]gateway.SourceLimit {
	limits := make(map[string]gateway.SourceLimit, len(c.Webhooks.Sources))
	for name, s := range c.Webhooks.Sources {
		limits[name] = gateway.SourceLimit{Rate: s.Rate, Burst: s.Burst}
	}
	return limits
}

// NotificationTargets returns the configured targets as the dispatcher
// consumes them.
func (c *Config) NotificationTargets() notify.Targets {
	return notify.Targets(c.Notifications.Targets)
}
