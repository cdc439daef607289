package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/strategy"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ErrUnknownAsset is returned for asset ids outside the configured catalogue.
var ErrUnknownAsset = errors.New("unknown asset")

// DefaultAssets is the catalogue used when the file lists none.
var DefaultAssets = []model.Asset{
	{ID: "bitcoin", Name: "Bitcoin"},
	{ID: "ethereum", Name: "Ethereum"},
	{ID: "solana", Name: "Solana"},
	{ID: "cardano", Name: "Cardano"},
	{ID: "polkadot", Name: "Polkadot"},
}

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"log"`
	DataSource struct {
		Provider    string        `yaml:"provider" default:"coingecko" validate:"oneof=coingecko mock"`
		BaseURL     string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3" validate:"url"`
		APIKey      string        `yaml:"api_key"`
		VsCurrency  string        `yaml:"vs_currency" default:"usd" validate:"alpha,lowercase"`
		HistoryDays int           `yaml:"history_days" default:"30" validate:"min=1,max=365"`
		Timeout     time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	} `yaml:"data_source"`
	Assets   []model.Asset `yaml:"assets" validate:"min=1,unique=ID,dive"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron" default:"0 */15 * * * *"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Cache struct {
		Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		RedisAddr     string        `yaml:"redis_addr" default:"localhost:6379"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
		HistoryMaxAge time.Duration `yaml:"history_max_age" default:"300s"`
		QuoteMaxAge   time.Duration `yaml:"quote_max_age" default:"60s"`
		TTL           time.Duration `yaml:"ttl" default:"1h"`
	} `yaml:"cache"`
	Database struct {
		Backend    string `yaml:"backend" default:"sqlite" validate:"oneof=memory sqlite"`
		SQLitePath string `yaml:"sqlite_path" default:"data/coin_sentinel.db"`
	} `yaml:"database"`
	Indicators calculator.Params   `yaml:"indicators"`
	Thresholds strategy.Thresholds `yaml:"thresholds"`
	Telegram   struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Email struct {
		Host     string   `yaml:"host"`
		Port     int      `yaml:"port" default:"587" validate:"min=1,max=65535"`
		Username string   `yaml:"username"`
		Password string   `yaml:"password"`
		From     string   `yaml:"from" validate:"omitempty,email"`
		To       []string `yaml:"to" validate:"dive,email"`
	} `yaml:"email"`
	API struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"api"`
	Proxy string `yaml:"proxy"`
}

// SetDefaults fills the asset catalogue; creasty/defaults calls it after the
// tag defaults are applied.
func (c *Config) SetDefaults() {
	if len(c.Assets) == 0 {
		c.Assets = append([]model.Asset(nil), DefaultAssets...)
	}
	for i := range c.Assets {
		if c.Assets[i].Name == "" {
			c.Assets[i].Name = c.Assets[i].ID
		}
	}
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields the defaults. Variables from
// a .env file in the working directory are loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"LOG_LEVEL":          &cfg.Log.Level,
		"LOG_FORMAT":         &cfg.Log.Format,
		"DATA_PROVIDER":      &cfg.DataSource.Provider,
		"COINGECKO_BASE_URL": &cfg.DataSource.BaseURL,
		"COINGECKO_API_KEY":  &cfg.DataSource.APIKey,
		"VS_CURRENCY":        &cfg.DataSource.VsCurrency,
		"REFRESH_CRON":       &cfg.Schedule.RefreshCron,
		"CACHE_BACKEND":      &cfg.Cache.Backend,
		"REDIS_ADDR":         &cfg.Cache.RedisAddr,
		"REDIS_PASSWORD":     &cfg.Cache.RedisPassword,
		"DATABASE_BACKEND":   &cfg.Database.Backend,
		"SQLITE_PATH":        &cfg.Database.SQLitePath,
		"TELEGRAM_BOT_TOKEN": &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &cfg.Telegram.ChatID,
		"SMTP_HOST":          &cfg.Email.Host,
		"SMTP_USERNAME":      &cfg.Email.Username,
		"SMTP_PASSWORD":      &cfg.Email.Password,
		"ALERT_EMAIL_FROM":   &cfg.Email.From,
		"API_ADDR":           &cfg.API.Addr,
		"HTTPS_PROXY":        &cfg.Proxy,
	}
	for name, dst := range str {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("HISTORY_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HISTORY_DAYS: %w", err)
		}
		cfg.DataSource.HistoryDays = n
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		cfg.Email.Port = n
	}
	if v := os.Getenv("ALERT_EMAIL_TO"); v != "" {
		cfg.Email.To = splitList(v)
	}
	if v := os.Getenv("ASSETS"); v != "" {
		cfg.Assets = nil
		for _, id := range splitList(v) {
			cfg.Assets = append(cfg.Assets, model.Asset{ID: id})
		}
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUN_ON_START: %w", err)
		}
		cfg.Schedule.RunOnStart = b
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks field constraints and the refresh schedule.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cronParser.Parse(c.Schedule.RefreshCron); err != nil {
		return fmt.Errorf("schedule.refresh_cron %q: %w", c.Schedule.RefreshCron, err)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	if c.EmailEnabled() && (c.Email.From == "" || len(c.Email.To) == 0) {
		return fmt.Errorf("email.from and email.to are required when email.host is set")
	}
	return nil
}

// TelegramEnabled reports whether Telegram delivery is configured.
func (c *Config) TelegramEnabled() bool { return c.Telegram.BotToken != "" }

// EmailEnabled reports whether SMTP delivery is configured.
func (c *Config) EmailEnabled() bool { return c.Email.Host != "" }

// Asset looks up an asset of the catalogue by id.
func (c *Config) Asset(id string) (model.Asset, error) {
	for _, a := range c.Assets {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Asset{}, fmt.Errorf("%w: %q", ErrUnknownAsset, id)
}

// AssetIDs returns the ids of the catalogue in configured order.
func (c *Config) AssetIDs() []string {
	ids := make([]string, len(c.Assets))
	for i, a := range c.Assets {
		ids[i] = a.ID
	}
	return ids
}
