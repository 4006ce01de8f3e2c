// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Bot           BotConfig          `mapstructure:"bot"`
	Surface       SurfaceConfig      `mapstructure:"surface"`
	Classifier    ClassifierConfig   `mapstructure:"classifier"`
	Export        ExportConfig       `mapstructure:"export"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// BotConfig holds every engine threshold. All values that used to be ambient
// module-level constants in earlier variants live here and are passed into
// each component at construction.
type BotConfig struct {
	MaxDailyApplications int `mapstructure:"max_daily_applications"`
	SessionTimeout       int `mapstructure:"session_timeout"`    // milliseconds
	FormFillTimeout      int `mapstructure:"form_fill_timeout"`  // milliseconds
	MaxFormSteps         int `mapstructure:"max_form_steps"`
	VerifyTimeout        int `mapstructure:"verify_timeout"`     // milliseconds
	SettleDelay          int `mapstructure:"settle_delay"`       // milliseconds
	CoolDown             int `mapstructure:"cool_down"`          // milliseconds
	CycleInterval        int `mapstructure:"cycle_interval"`     // milliseconds
	QuotaCacheTTL        int `mapstructure:"quota_cache_ttl"`    // milliseconds
}

// SurfaceConfig holds browser session settings.
type SurfaceConfig struct {
	Headless       bool   `mapstructure:"headless"`
	SlowMo         int    `mapstructure:"slow_mo"`          // milliseconds
	LoginURL       string `mapstructure:"login_url"`
	SelectorWait   int    `mapstructure:"selector_wait"`    // milliseconds
	LoginWait      int    `mapstructure:"login_wait"`       // milliseconds
}

// ClassifierConfig holds settings for the relevance classification service.
type ClassifierConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// NotificationConfig holds AWS settings for run summaries and fatal alerts.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
			ToEmail   string `mapstructure:"to_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled     bool   `mapstructure:"enabled"`
			PhoneNumber string `mapstructure:"phone_number"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
