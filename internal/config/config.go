package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		Token         string  `yaml:"token"`
		Channel       string  `yaml:"channel"`
		BotUsername   string  `yaml:"bot_username"`
		APIURL        string  `yaml:"api_url"`
		WebhookURL    string  `yaml:"webhook_url"`
		WebhookSecret string  `yaml:"webhook_secret"`
		PollTimeout   string  `yaml:"poll_timeout"`
		Workers       int     `yaml:"workers"`
		AdminIDs      []int64 `yaml:"admin_ids"`
	} `yaml:"telegram"`
	Server struct {
		Port       string `yaml:"port"`
		AdminToken string `yaml:"admin_token"`
		WSSecret   string `yaml:"ws_secret"`
		WSTokenTTL string `yaml:"ws_token_ttl"`
	} `yaml:"server"`
	Store struct {
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Timezone string `yaml:"timezone"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Session struct {
		IdleTTL string `yaml:"idle_ttl"`
	} `yaml:"session"`
	Quiz struct {
		ID            string `yaml:"id"`
		TTL           string `yaml:"ttl"`
		Source        string `yaml:"source"`
		QuestionsFile string `yaml:"questions_file"`
	} `yaml:"quiz"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Questionnaire sources.
const (
	SourceBuiltin  = "builtin"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Load reads YAML config from path. A missing file yields an empty config so the bot can
// run from environment variables alone. Defaults and env overrides are applied afterwards.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables that are already set win; missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("BOT_TOKEN", &c.Telegram.Token)
	set("CHANNEL_USERNAME", &c.Telegram.Channel)
	set("WEBHOOK_URL", &c.Telegram.WebhookURL)
	set("WEBHOOK_SECRET", &c.Telegram.WebhookSecret)
	set("PORT", &c.Server.Port)
	set("ADMIN_TOKEN", &c.Server.AdminToken)
	set("WS_SECRET", &c.Server.WSSecret)
	set("REDIS_ADDR", &c.Redis.Addr)
	set("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			c.Store.Driver = "postgres"
		}
		c.Store.DSN = v
	}
	if v, ok := lookup("ADMIN_IDS"); ok && v != "" {
		c.Telegram.AdminIDs = parseIDs(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Telegram.Workers <= 0 {
		c.Telegram.Workers = 8
	}
	if c.Quiz.ID == "" {
		c.Quiz.ID = "anxiety"
	}
	if c.Quiz.Source == "" {
		switch {
		case c.Quiz.QuestionsFile != "":
			c.Quiz.Source = SourceFile
		default:
			c.Quiz.Source = SourceBuiltin
		}
	}
	if c.Log.Format == "" {
		c.Log.Format = "pretty"
	}
}

// Location resolves store.timezone; empty or unknown names fall back to local time.
func (c Config) Location() *time.Location {
	if c.Store.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Store.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsAdmin reports whether userID may use admin commands.
func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func parseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
