package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Lark        LarkConfig        `mapstructure:"lark"`
	Validation  ValidationConfig  `mapstructure:"validation"`
	Propagation PropagationConfig `mapstructure:"propagation"`
	Report      ReportConfig      `mapstructure:"report"`
	Logger      LoggerConfig      `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LarkConfig holds Lark credentials for safety alerts. Alerts are only
// logged when any of app_id, app_secret or safety_chat_id is empty.
type LarkConfig struct {
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	SafetyChatID  string `mapstructure:"safety_chat_id"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
}

// ValidationConfig holds the validation thresholds
type ValidationConfig struct {
	TotalTolerance         float64  `mapstructure:"total_tolerance"`
	DurationToleranceHours float64  `mapstructure:"duration_tolerance_hours"`
	RelationshipTolerance  float64  `mapstructure:"relationship_tolerance"`
	HoleFillRatio          float64  `mapstructure:"hole_fill_ratio"`
	EmulsionDensityKgPerL  float64  `mapstructure:"emulsion_density_kg_per_l"`
	MaxDailyHours          float64  `mapstructure:"max_daily_hours"`
	ExpiryWarningDays      int      `mapstructure:"expiry_warning_days"`
	SafetyKeywords         []string `mapstructure:"safety_keywords"`
}

// PropagationConfig holds propagation settings
type PropagationConfig struct {
	MaxConflictRetries int `mapstructure:"max_conflict_retries"`
}

// ReportConfig holds daily report settings
type ReportConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Schedule  string   `mapstructure:"schedule"`
	Timezone  string   `mapstructure:"timezone"`
	Sites     []string `mapstructure:"sites"`
	OutputDir string   `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads .env (when present), the YAML file at configPath (when
// non-empty) and FIELDFORMS_* environment overrides
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/fieldforms.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("lark.receive_id_type", "chat_id")

	v.SetDefault("validation.total_tolerance", 0.01)
	v.SetDefault("validation.duration_tolerance_hours", 0.5)
	v.SetDefault("validation.relationship_tolerance", 50.0)
	v.SetDefault("validation.hole_fill_ratio", 1.2)
	v.SetDefault("validation.emulsion_density_kg_per_l", 1.25)
	v.SetDefault("validation.max_daily_hours", 16.0)
	v.SetDefault("validation.expiry_warning_days", 30)
	v.SetDefault("validation.safety_keywords", []string{"safety", "hazard", "injury"})

	v.SetDefault("propagation.max_conflict_retries", 3)

	v.SetDefault("report.enabled", false)
	v.SetDefault("report.schedule", "5 0 * * *")
	v.SetDefault("report.timezone", "Africa/Johannesburg")
	v.SetDefault("report.output_dir", "reports")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars maps FIELDFORMS_SECTION_KEY onto section.key and binds the
// Lark credentials to their conventional names
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("FIELDFORMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("lark.app_id", "FIELDFORMS_LARK_APP_ID", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "FIELDFORMS_LARK_APP_SECRET", "LARK_APP_SECRET")
	_ = v.BindEnv("lark.safety_chat_id", "FIELDFORMS_LARK_SAFETY_CHAT_ID", "LARK_SAFETY_CHAT_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Validation.RelationshipTolerance < 0 || c.Validation.TotalTolerance < 0 {
		return fmt.Errorf("validation tolerances must not be negative")
	}
	if c.Validation.HoleFillRatio <= 0 || c.Validation.EmulsionDensityKgPerL <= 0 {
		return fmt.Errorf("validation.hole_fill_ratio and validation.emulsion_density_kg_per_l must be positive")
	}
	if c.Propagation.MaxConflictRetries < 0 {
		return fmt.Errorf("propagation.max_conflict_retries must not be negative")
	}
	if c.Report.Enabled {
		if len(c.Report.Sites) == 0 {
			return fmt.Errorf("report.sites is required when report.enabled is set")
		}
		if c.Report.OutputDir == "" {
			return fmt.Errorf("report.output_dir is required when report.enabled is set")
		}
		if _, err := c.Report.Location(); err != nil {
			return err
		}
	}
	return nil
}

// Location resolves the report timezone
func (r ReportConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report.timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}
