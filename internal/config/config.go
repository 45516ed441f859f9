package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for MemeBot. It is constructed once at
// startup and passed by reference into every component; nothing reads it
// through package globals.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Twilio   TwilioConfig   `json:"twilio"`
	Telegram TelegramConfig `json:"telegram"`
	Imgflip  ImgflipConfig  `json:"imgflip"`
	Gallery  GalleryConfig  `json:"gallery"`
	History  HistoryConfig  `json:"history"`
}

type GeneralConfig struct {
	Workspace string `json:"workspace"` // where images and the metadata log live
	LogLevel  string `json:"logLevel"`
	LogFile   string `json:"logFile,omitempty"`
	Channel   string `json:"channel"`   // "twilio" | "telegram"
	ListLimit int    `json:"listLimit"` // cap for the top/random commands
}

// TwilioConfig configures the Twilio Conversations gateway. Numbers are
// plain E.164; the gateway adds the whatsapp: address prefix itself.
type TwilioConfig struct {
	AccountSID          string `json:"accountSid"`
	APIKeySID           string `json:"apiKeySid"`
	APIKeySecret        string `json:"apiKeySecret"`
	ChatServiceSID      string `json:"chatServiceSid"`
	UserNumber          string `json:"userNumber"`
	BotNumber           string `json:"botNumber"`
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
}

// TelegramConfig configures the alternate Telegram gateway, bound to a
// single chat.
type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chatId"`
}

type ImgflipConfig struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	APIBase     string `json:"apiBase,omitempty"`
	NoWatermark bool   `json:"noWatermark"`
}

type GalleryConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

// DefaultConfigDir returns the default config directory (~/.memebot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".memebot"
	}
	return filepath.Join(home, ".memebot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.Workspace = ExpandPath(cfg.General.Workspace)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values. Credential presence is
// checked at startup by the command that needs them, not here.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.Channel {
	case "twilio", "telegram":
		// valid
	default:
		errs = append(errs, "general.channel must be one of: twilio, telegram")
	}
	if cfg.General.ListLimit < 1 || cfg.General.ListLimit > 100 {
		errs = append(errs, "general.listLimit must be between 1 and 100")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Twilio.PollIntervalSeconds < 1 {
		errs = append(errs, "twilio.pollIntervalSeconds must be >= 1")
	}
	if cfg.Gallery.Port < 0 || cfg.Gallery.Port > 65535 {
		errs = append(errs, "gallery.port must be between 0 and 65535")
	}
	if cfg.History.Enabled && cfg.History.DBPath == "" {
		errs = append(errs, "history.dbPath is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
