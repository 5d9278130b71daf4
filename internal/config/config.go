package config

import (
	"HealthScan/internal/domain"
	"HealthScan/internal/shared/constants"
	"HealthScan/pkg/validator"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const EnvPrefix = "HEALTHSCAN"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Runner     RunnerConfig     `mapstructure:"runner"`
	Report     ReportConfig     `mapstructure:"report"`
	History    HistoryConfig    `mapstructure:"history"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Probes     []ProbeConfig    `mapstructure:"probes"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RunnerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	CycleTimeout   time.Duration `mapstructure:"cycle_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	Interval       time.Duration `mapstructure:"interval"`
}

type ReportConfig struct {
	// Destination is a text/template path, empty to skip writing a file.
	Destination string `mapstructure:"destination"`
	Format      string `mapstructure:"format"`
	Stdout      bool   `mapstructure:"stdout"`
}

type HistoryConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	Keep       int    `mapstructure:"keep"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NotifyConfig struct {
	MinSeverity string        `mapstructure:"min_severity"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Sinks       []SinkConfig  `mapstructure:"sinks"`
}

type SinkConfig struct {
	Type     string        `mapstructure:"type"`
	URL      string        `mapstructure:"url"`
	Secret   string        `mapstructure:"secret"`
	Channel  string        `mapstructure:"channel"`
	List     string        `mapstructure:"list"`
	ListSize int           `mapstructure:"list_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ThresholdsConfig struct {
	Kinds map[string]RuleConfig `mapstructure:"kinds"`
}

type RuleConfig struct {
	WarnAt     *float64 `mapstructure:"warn_at"`
	CriticalAt *float64 `mapstructure:"critical_at"`
	Allowed    []string `mapstructure:"allowed"`
	Critical   []string `mapstructure:"critical"`
}

type ProbeConfig struct {
	Name      string                 `mapstructure:"name"`
	Kind      string                 `mapstructure:"kind"`
	Target    string                 `mapstructure:"target"`
	Timeout   time.Duration          `mapstructure:"timeout"`
	Params    map[string]interface{} `mapstructure:"params"`
	Threshold *RuleConfig            `mapstructure:"threshold"`
}

// Load reads configuration from path, or from healthscan.yaml in ./configs
// or the working directory when path is empty. Values from .env and
// HEALTHSCAN_* environment variables override the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("healthscan")
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Warn("config file not found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config, %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed, %w", err)
	}

	slog.Debug("configuration loaded successfully", "file", v.ConfigFileUsed(), "probes", len(config.Probes))
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// app defaults
	v.SetDefault("app.name", "healthscan")
	v.SetDefault("app.version", "dev")

	// logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// runner defaults
	v.SetDefault("runner.concurrency", constants.DefaultConcurrency)
	v.SetDefault("runner.probe_timeout", constants.DefaultProbeTimeout)
	v.SetDefault("runner.cycle_timeout", constants.DefaultCycleTimeout)
	v.SetDefault("runner.publish_timeout", constants.DefaultPublishTimeout)
	v.SetDefault("runner.interval", constants.DefaultInterval)

	// report defaults
	v.SetDefault("report.destination", "reports/healthscan-{{.Timestamp}}.{{.Ext}}")
	v.SetDefault("report.format", "text")
	v.SetDefault("report.stdout", false)

	// history defaults
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.sqlite_path", "reports/history.db")
	v.SetDefault("history.keep", 500)

	// database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "healthscan")
	v.SetDefault("database.password", "healthscan")
	v.SetDefault("database.dbname", "healthscan")
	v.SetDefault("database.sslmode", "disable")

	// redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// notify defaults
	v.SetDefault("notify.min_severity", "WARN")
	v.SetDefault("notify.timeout", "10s")

	// kind threshold defaults
	v.SetDefault("thresholds.kinds.service_status.allowed", []string{"active"})
	v.SetDefault("thresholds.kinds.service_status.critical", []string{"inactive", "failed"})
	v.SetDefault("thresholds.kinds.disk_usage.warn_at", 80)
	v.SetDefault("thresholds.kinds.disk_usage.critical_at", 90)
	v.SetDefault("thresholds.kinds.process_resource.warn_at", 80)
	v.SetDefault("thresholds.kinds.process_resource.critical_at", 95)
	v.SetDefault("thresholds.kinds.memory_available.warn_at", 15)
	v.SetDefault("thresholds.kinds.memory_available.critical_at", 5)
}

func validateConfig(cfg *Config) error {
	if cfg.Runner.Concurrency < 1 {
		return fmt.Errorf("%w: runner concurrency must be at least 1, got %d", ErrInvalidConfig, cfg.Runner.Concurrency)
	}

	if cfg.Runner.ProbeTimeout <= 0 || cfg.Runner.CycleTimeout <= 0 || cfg.Runner.PublishTimeout <= 0 {
		return fmt.Errorf("%w: runner timeouts must be positive", ErrInvalidConfig)
	}

	if cfg.Runner.Interval < constants.MinInterval {
		return fmt.Errorf("%w: runner interval must be at least %s", ErrInvalidConfig, constants.MinInterval)
	}

	switch cfg.Report.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: invalid report format %q", ErrInvalidConfig, cfg.Report.Format)
	}

	switch cfg.History.Driver {
	case "sqlite":
		if cfg.History.SQLitePath == "" {
			return fmt.Errorf("%w: history sqlite_path is required", ErrInvalidConfig)
		}
	case "postgres":
		if cfg.Database.Host == "" {
			return fmt.Errorf("%w: database host is required", ErrInvalidConfig)
		}
		if cfg.Database.DBName == "" {
			return fmt.Errorf("%w: database name is required", ErrInvalidConfig)
		}
	case "none":
	default:
		return fmt.Errorf("%w: invalid history driver %q", ErrInvalidConfig, cfg.History.Driver)
	}

	if _, err := domain.ParseSeverity(cfg.Notify.MinSeverity); err != nil {
		return fmt.Errorf("%w: notify min_severity: %w", ErrInvalidConfig, err)
	}

	for i, sink := range cfg.Notify.Sinks {
		if err := validateSink(sink); err != nil {
			return fmt.Errorf("%w: sink #%d: %w", ErrInvalidConfig, i+1, err)
		}
	}

	for kind, rule := range cfg.Thresholds.Kinds {
		k, err := domain.ParseKind(kind)
		if err != nil {
			return fmt.Errorf("%w: thresholds: %w", ErrInvalidConfig, err)
		}
		if err := validateRule(k, rule); err != nil {
			return fmt.Errorf("%w: thresholds for %s: %w", ErrInvalidConfig, kind, err)
		}
	}

	for i, p := range cfg.Probes {
		if !validator.ValidateProbeKind(p.Kind) {
			return fmt.Errorf("%w: probe #%d %q: %w: %q", ErrInvalidConfig, i+1, p.Name, domain.ErrUnknownKind, p.Kind)
		}
		if err := validator.ValidateTarget(p.Kind, p.Target); err != nil {
			return fmt.Errorf("%w: probe %q: %w", ErrInvalidConfig, p.Name, err)
		}
		if p.Timeout < 0 {
			return fmt.Errorf("%w: probe %q: negative timeout", ErrInvalidConfig, p.Name)
		}
		if p.Threshold != nil {
			if err := validateRule(domain.Kind(p.Kind), *p.Threshold); err != nil {
				return fmt.Errorf("%w: probe %q threshold: %w", ErrInvalidConfig, p.Name, err)
			}
		}
	}

	if err := domain.ValidateSpecs(cfg.ProbeSpecs()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

func validateSink(s SinkConfig) error {
	switch s.Type {
	case "log":
	case "webhook":
		if s.URL == "" {
			return errors.New("webhook url is required")
		}
	case "redis":
		if s.Channel == "" && s.List == "" {
			return errors.New("redis sink needs a channel or a list")
		}
	default:
		return fmt.Errorf("unknown sink type %q", s.Type)
	}
	return nil
}

// validateRule rejects warn and critical limits given in the wrong order
// for the kind's direction.
func validateRule(kind domain.Kind, r RuleConfig) error {
	if r.WarnAt == nil || r.CriticalAt == nil {
		return nil
	}
	switch kind.Direction() {
	case domain.Above:
		if *r.WarnAt > *r.CriticalAt {
			return fmt.Errorf("warn_at %v is above critical_at %v", *r.WarnAt, *r.CriticalAt)
		}
	case domain.Below:
		if *r.WarnAt < *r.CriticalAt {
			return fmt.Errorf("warn_at %v is below critical_at %v", *r.WarnAt, *r.CriticalAt)
		}
	}
	return nil
}

func (r RuleConfig) toRule() domain.ThresholdRule {
	return domain.ThresholdRule{
		WarnAt:     r.WarnAt,
		CriticalAt: r.CriticalAt,
		Allowed:    r.Allowed,
		Critical:   r.Critical,
	}
}

// ProbeSpecs converts the probe entries in configuration order.
func (c *Config) ProbeSpecs() []domain.ProbeSpec {
	specs := make([]domain.ProbeSpec, 0, len(c.Probes))
	for _, p := range c.Probes {
		spec := domain.ProbeSpec{
			Name:    strings.TrimSpace(p.Name),
			Kind:    domain.Kind(p.Kind),
			Target:  p.Target,
			Timeout: p.Timeout,
			Params:  p.Params,
		}
		if p.Threshold != nil {
			rule := p.Threshold.toRule()
			spec.Threshold = &rule
		}
		specs = append(specs, spec)
	}
	return specs
}

// KindRules returns the per-kind default threshold rules.
func (c *Config) KindRules() map[domain.Kind]domain.ThresholdRule {
	rules := make(map[domain.Kind]domain.ThresholdRule, len(c.Thresholds.Kinds))
	for kind, r := range c.Thresholds.Kinds {
		rules[domain.Kind(kind)] = r.toRule()
	}
	return rules
}

func (c *Config) RuleSet() domain.RuleSet {
	return domain.NewRuleSet(c.ProbeSpecs(), c.KindRules())
}

// возвращает DSN строку для PostgreSQL
func (d *DatabaseConfig) GetDNS() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// возвращает настройки для Redis клиента
func (r *RedisConfig) GetRedisOptions() *redis.Options {
	return &redis.Options{
		Addr:            r.Addr,
		Password:        r.Password,
		DB:              r.DB,
		DisableIdentity: true,
	}
}
