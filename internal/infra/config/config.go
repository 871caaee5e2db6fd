// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Matchmaking MatchmakingConfig `yaml:"matchmaking"`
	Fleet       FleetConfig       `yaml:"fleet"`
	Bot         BotConfig         `yaml:"bot"`
	Reply       ReplyConfig       `yaml:"reply"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	Alert       AlertConfig       `yaml:"alert"`
	Presence    PresenceConfig    `yaml:"presence"`
	Messages    MessagesConfig    `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":2000"`
}

// MatchmakingConfig represents matchmaking queue configuration.
type MatchmakingConfig struct {
	WaitWindowSec int `yaml:"wait_window_sec" default:"30" validate:"gte=1,lte=600"`
	MaxQueueScan  int `yaml:"max_queue_scan" default:"0" validate:"gte=0"`
}

// FleetConfig represents virtual fleet configuration.
type FleetConfig struct {
	MinCount        int    `yaml:"min_count" default:"100" validate:"gte=0"`
	MaxCount        int    `yaml:"max_count" default:"2000" validate:"gte=0"`
	TickSec         int    `yaml:"tick_sec" default:"10" validate:"gte=1"`
	ProfileFile     string `yaml:"profile_file"`
	PadCooldownSec  int    `yaml:"pad_cooldown_sec" default:"120" validate:"gte=0"`
	PickCooldownSec int    `yaml:"pick_cooldown_sec" default:"180" validate:"gte=0"`
}

// BotConfig represents bot conversation configuration.
type BotConfig struct {
	MessageBudget int `yaml:"message_budget" default:"20" validate:"gte=1"`
	HistoryTurns  int `yaml:"history_turns" default:"4" validate:"gte=1"`
	IdleMinSec    int `yaml:"idle_min_sec" default:"12" validate:"gte=1"`
	IdleMaxSec    int `yaml:"idle_max_sec" default:"18" validate:"gte=1"`
	TypingMaxMs   int `yaml:"typing_max_ms" default:"3000" validate:"gte=0"`
	GraceDelayMs  int `yaml:"grace_delay_ms" default:"500" validate:"gte=0"`
}

// ReplyConfig represents the reply provider chain configuration.
type ReplyConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig represents a single reply provider configuration.
type ProviderConfig struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// OllamaConfig represents the generative backend configuration.
type OllamaConfig struct {
	Hosts      []string `yaml:"hosts"`
	Model      string   `yaml:"model" default:"tinyllama:chat"`
	TimeoutSec int      `yaml:"timeout_sec" default:"10" validate:"gte=1"`
}

// AlertConfig represents the waiting-alert notifier configuration.
type AlertConfig struct {
	WebhookURL  string `yaml:"webhook_url"`
	CooldownSec int    `yaml:"cooldown_sec" default:"120" validate:"gte=0"`
}

// PresenceConfig represents the presence reporter configuration.
type PresenceConfig struct {
	TickSec int `yaml:"tick_sec" default:"15" validate:"gte=1"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Waiting       string `yaml:"waiting" default:"Waiting for a compatible user..."`
	AlreadyQueued string `yaml:"already_queued" default:"You are already in the queue..."`
	Timeout       string `yaml:"timeout" default:"No user found! change your pref and try rejoin"`
	Rejoin        string `yaml:"rejoin" default:"No user found! change your pref and try rejoin"`
	DefaultError  string `yaml:"default_error" default:"Invalid data format."`
	Deflection    string `yaml:"deflection" default:"I don't share personal details online, hope you understand!"`
	Blocked       string `yaml:"blocked" default:"Links are not allowed in chat."`
	PeerLeft      string `yaml:"peer_left" default:"User left the chat"`
	PeerClosed    string `yaml:"peer_closed" default:"User closed the app"`
	Welcome       string `yaml:"welcome" default:"A random user joined the chat"`
	ChatEnded     string `yaml:"chat_ended" default:"Chat ended"`
}

// Load loads configuration from a YAML file. An empty path loads defaults
// only. Environment variables take precedence for deployment fields.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("OLLAMA_HOSTS"); v != "" {
		hosts := strings.Split(v, ",")
		for i := range hosts {
			hosts[i] = strings.TrimSpace(hosts[i])
		}
		c.Ollama.Hosts = hosts
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("ALERT_WEBHOOK_URL"); v != "" {
		c.Alert.WebhookURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Fleet.MaxCount < c.Fleet.MinCount {
		return errors.Newf("fleet max_count (%d) must be >= min_count (%d)", c.Fleet.MaxCount, c.Fleet.MinCount)
	}
	if c.Bot.IdleMaxSec < c.Bot.IdleMinSec {
		return errors.Newf("bot idle_max_sec (%d) must be >= idle_min_sec (%d)", c.Bot.IdleMaxSec, c.Bot.IdleMinSec)
	}

	return nil
}
