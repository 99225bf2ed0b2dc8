package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Retry struct {
		Timeout     time.Duration `yaml:"timeout"`
		MaxAttempts int           `yaml:"max_attempts"`
	} `yaml:"retry"`
	DataSource struct {
		Kind    string `yaml:"kind"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Proxy   string `yaml:"proxy"`
	} `yaml:"data_source"`
	KDJ struct {
		N            int    `yaml:"n"`
		M1           int    `yaml:"m1"`
		M2           int    `yaml:"m2"`
		LookbackDays int    `yaml:"lookback_days"`
		Adjust       string `yaml:"adjust"`
	} `yaml:"kdj"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		TTL           time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron      string   `yaml:"cron"`
		Watchlist []string `yaml:"watchlist"`
	} `yaml:"schedule"`
	Alerts struct {
		BuyJ  *float64 `yaml:"buy_j"`
		SellJ *float64 `yaml:"sell_j"`
	} `yaml:"alerts"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
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

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"SERVER_ADDR":          &c.Server.Addr,
		"LOG_LEVEL":            &c.Log.Level,
		"DATA_SOURCE_KIND":     &c.DataSource.Kind,
		"DATA_SOURCE_BASE_URL": &c.DataSource.BaseURL,
		"DATA_SOURCE_API_KEY":  &c.DataSource.APIKey,
		"HTTPS_PROXY":          &c.DataSource.Proxy,
		"REDIS_ADDR":           &c.Cache.RedisAddr,
		"SQLITE_PATH":          &c.Database.SQLitePath,
		"TELEGRAM_BOT_TOKEN":   &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":     &c.Telegram.ChatID,
		"CRON_SCHEDULE":        &c.Schedule.Cron,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("RETRY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RETRY_TIMEOUT: %w", err)
		}
		c.Retry.Timeout = d
	}
	if v := os.Getenv("RETRY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RETRY_MAX_ATTEMPTS: %w", err)
		}
		c.Retry.MaxAttempts = n
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Schedule.Watchlist = nil
		for _, code := range strings.Split(v, ",") {
			if code = strings.TrimSpace(code); code != "" {
				c.Schedule.Watchlist = append(c.Schedule.Watchlist, code)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "0.0.0.0:8000"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.DataSource.Kind == "" {
		c.DataSource.Kind = "mock"
		if c.DataSource.BaseURL != "" {
			c.DataSource.Kind = "http"
		}
	}
	if c.Retry.Timeout == 0 {
		c.Retry.Timeout = 60 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.KDJ.N == 0 {
		c.KDJ.N = 9
	}
	if c.KDJ.M1 == 0 {
		c.KDJ.M1 = 3
	}
	if c.KDJ.M2 == 0 {
		c.KDJ.M2 = 3
	}
	if c.KDJ.LookbackDays == 0 {
		c.KDJ.LookbackDays = 180
	}
	if c.KDJ.Adjust == "" {
		c.KDJ.Adjust = "2"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 10 * time.Minute
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 30 15 * * 1-5"
	}
	if c.Alerts.BuyJ == nil {
		v := -5.0
		c.Alerts.BuyJ = &v
	}
	if c.Alerts.SellJ == nil {
		v := 105.0
		c.Alerts.SellJ = &v
	}
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	if c.Retry.Timeout <= 0 {
		return fmt.Errorf("retry.timeout must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	switch c.DataSource.Kind {
	case "http":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the http source")
		}
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.kind must be http, yahoo or mock, got %q", c.DataSource.Kind)
	}
	if c.KDJ.N < 1 || c.KDJ.M1 < 1 || c.KDJ.M2 < 1 {
		return fmt.Errorf("kdj.n, kdj.m1 and kdj.m2 must be at least 1")
	}
	if c.KDJ.LookbackDays < 1 {
		return fmt.Errorf("kdj.lookback_days must be at least 1")
	}
	switch c.KDJ.Adjust {
	case "1", "2", "3":
	default:
		return fmt.Errorf("kdj.adjust must be 1, 2 or 3, got %q", c.KDJ.Adjust)
	}
	if *c.Alerts.BuyJ >= *c.Alerts.SellJ {
		return fmt.Errorf("alerts.buy_j (%v) must be below alerts.sell_j (%v)", *c.Alerts.BuyJ, *c.Alerts.SellJ)
	}
	if len(c.Schedule.Watchlist) > 0 {
		if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether alerts and chat commands are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
