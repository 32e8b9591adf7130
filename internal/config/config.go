// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/campusfeed/notice-crawler/internal/notice"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Boards  []BoardConfig `mapstructure:"boards"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	DB      DBConfig      `mapstructure:"db"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BoardConfig names one notice board to crawl.
type BoardConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Category int    `mapstructure:"category"`
}

// CrawlerConfig governs fetch behavior and pipeline pacing.
type CrawlerConfig struct {
	UserAgent           string `mapstructure:"user_agent"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	Pages               int    `mapstructure:"pages"`
	PostingDelaySeconds int    `mapstructure:"posting_delay_seconds"`
	BoardDelaySeconds   int    `mapstructure:"board_delay_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
}

// OpenAIConfig configures the enrichment client.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// WebhookConfig governs fanout batching and the admin channel.
type WebhookConfig struct {
	BatchSize      int    `mapstructure:"batch_size"`
	BatchPauseMs   int    `mapstructure:"batch_pause_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	AdminURL       string `mapstructure:"admin_url"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. An empty path loads defaults
// plus environment overrides only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOTICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("boards", []map[string]any{
		{"name": "bachelor", "url": "https://computer.cnu.ac.kr/computer/notice/bachelor.do", "category": 0},
		{"name": "graduate", "url": "https://computer.cnu.ac.kr/computer/notice/graduate.do", "category": 1},
		{"name": "employment", "url": "https://computer.cnu.ac.kr/computer/notice/employment.do", "category": 2},
		{"name": "scholarship", "url": "https://computer.cnu.ac.kr/computer/notice/project.do", "category": 3},
	})
	v.SetDefault("crawler.user_agent", "notice-crawler/0.1")
	v.SetDefault("crawler.timeout_seconds", 10)
	v.SetDefault("crawler.pages", 1)
	v.SetDefault("crawler.posting_delay_seconds", 5)
	v.SetDefault("crawler.board_delay_seconds", 5)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "")
	v.SetDefault("webhook.batch_size", 50)
	v.SetDefault("webhook.batch_pause_ms", 100)
	v.SetDefault("webhook.timeout_seconds", 10)
	v.SetDefault("webhook.admin_url", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Boards) == 0 {
		return fmt.Errorf("boards must not be empty")
	}
	for i, b := range c.Boards {
		if b.URL == "" {
			return fmt.Errorf("boards[%d].url must be set", i)
		}
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.Pages <= 0 {
		return fmt.Errorf("crawler.pages must be > 0")
	}
	if c.Webhook.BatchSize <= 0 {
		return fmt.Errorf("webhook.batch_size must be > 0")
	}
	return nil
}

// BoardList converts the configured boards into domain records.
func (c Config) BoardList() []notice.Board {
	boards := make([]notice.Board, 0, len(c.Boards))
	for _, b := range c.Boards {
		boards = append(boards, notice.Board{Name: b.Name, URL: b.URL, Category: b.Category})
	}
	return boards
}

// FetchTimeout converts the crawler timeout into a duration.
func (c CrawlerConfig) FetchTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PostingDelay converts the per-posting pause into a duration.
func (c CrawlerConfig) PostingDelay() time.Duration {
	return time.Duration(c.PostingDelaySeconds) * time.Second
}

// BoardDelay converts the per-board pause into a duration.
func (c CrawlerConfig) BoardDelay() time.Duration {
	return time.Duration(c.BoardDelaySeconds) * time.Second
}

// ConnLifetime converts the pool connection lifetime into a duration.
func (c DBConfig) ConnLifetime() time.Duration {
	return time.Duration(c.ConnLifetimeMin) * time.Minute
}

// BatchPause converts the inter-batch pause into a duration.
func (c WebhookConfig) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseMs) * time.Millisecond
}

// Timeout converts the delivery timeout into a duration.
func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
