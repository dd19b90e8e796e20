package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// telemetry
	PrometheusMetricsHost   string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort   string `toml:"prometheus_metrics_port"`
	HoneycombTracingEnabled bool   `toml:"honeycomb_tracing_enabled"`

	// redis, used only to rate limit the meal photo analysis endpoint
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// allowed analyze requests per minute, guards the AI provider bill
	AnalyzeRateLimitAllowedPerMin int `toml:"analyze_rate_limit_allowed_per_min"`

	// spreadsheet backend
	SpreadsheetID    string `toml:"spreadsheet_id"`
	RunSheetName     string `toml:"run_sheet_name"`
	ProfileSheetName string `toml:"profile_sheet_name"`
	FoodSheetName    string `toml:"food_sheet_name"`
	DeficitSheetName string `toml:"deficit_sheet_name"`

	// AI meal photo analysis
	AIBaseURL string `toml:"ai_base_url"`
	AIModel   string `toml:"ai_model"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var tomlCfg Toml
	if _, err := toml.DecodeFile(path, &tomlCfg); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := tomlCfg.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env %s missing", env)
	}

	cfg.Environment = env

	if cfg.RunSheetName == "" {
		cfg.RunSheetName = "Run"
	}
	if cfg.ProfileSheetName == "" {
		cfg.ProfileSheetName = "Profile"
	}
	if cfg.FoodSheetName == "" {
		cfg.FoodSheetName = "Food"
	}
	if cfg.DeficitSheetName == "" {
		cfg.DeficitSheetName = "Deficit"
	}

	return cfg, nil
}
