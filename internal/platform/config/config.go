package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Mode string `yaml:"mode"` // dev | release
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// MailConfig; Host が空なら送信無効（ログのみ）
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (m MailConfig) Enabled() bool { return m.Host != "" }

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LoanConfig struct {
	FinePerDay      int64 `yaml:"fine_per_day"`
	DefaultLoanDays int   `yaml:"default_loan_days"`
}

type OutboxConfig struct {
	DedupWindowHours    int `yaml:"dedup_window_hours"`
	LeaseTimeoutSeconds int `yaml:"lease_timeout_seconds"`
	MaxAttempts         int `yaml:"max_attempts"`
	BatchSize           int `yaml:"batch_size"`
}

func (o OutboxConfig) DedupWindow() time.Duration {
	return time.Duration(o.DedupWindowHours) * time.Hour
}

func (o OutboxConfig) LeaseTimeout() time.Duration {
	return time.Duration(o.LeaseTimeoutSeconds) * time.Second
}

// JobConfig; interval が 0 のジョブは起動しない（外部cronからAPI経由で叩く運用向け）
type JobConfig struct {
	OverdueScanIntervalMinutes int `yaml:"overdue_scan_interval_minutes"`
	DispatchIntervalMinutes    int `yaml:"dispatch_interval_minutes"`
	ReminderWindowHours        int `yaml:"reminder_window_hours"`
}

func (j JobConfig) OverdueScanInterval() time.Duration {
	return time.Duration(j.OverdueScanIntervalMinutes) * time.Minute
}

func (j JobConfig) DispatchInterval() time.Duration {
	return time.Duration(j.DispatchIntervalMinutes) * time.Minute
}

func (j JobConfig) ReminderWindow() time.Duration {
	return time.Duration(j.ReminderWindowHours) * time.Hour
}

type Config struct {
	Version string         `yaml:"version"`
	Server  ServerConfig   `yaml:"server"`
	DB      DatabaseConfig `yaml:"database"`
	Mail    MailConfig     `yaml:"mail"`
	Auth    AuthConfig     `yaml:"auth"`
	Loans   LoanConfig     `yaml:"loans"`
	Outbox  OutboxConfig   `yaml:"outbox"`
	Jobs    JobConfig      `yaml:"jobs"`
}

func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Loans.FinePerDay == 0 {
		c.Loans.FinePerDay = 5000
	}
	if c.Loans.DefaultLoanDays == 0 {
		c.Loans.DefaultLoanDays = 14
	}
	if c.Outbox.DedupWindowHours == 0 {
		c.Outbox.DedupWindowHours = 12
	}
	if c.Outbox.LeaseTimeoutSeconds == 0 {
		c.Outbox.LeaseTimeoutSeconds = 300
	}
	if c.Outbox.MaxAttempts == 0 {
		c.Outbox.MaxAttempts = 3
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 50
	}
	if c.Jobs.ReminderWindowHours == 0 {
		c.Jobs.ReminderWindowHours = 24
	}
}
