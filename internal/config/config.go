// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"printer-service/internal/model"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Printer   PrinterConfig   `mapstructure:"printer"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Security  SecurityConfig  `mapstructure:"security"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLS             TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// PrinterConfig holds the printer settings applied at startup
type PrinterConfig struct {
	Settings          model.PrinterSettings `mapstructure:",squash"`
	RegisterID        string                `mapstructure:"register_id"`
	AutoConnect       bool                  `mapstructure:"auto_connect"`
	AutoMonitor       bool                  `mapstructure:"auto_monitor"`
	ReconnectAttempts int                   `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration         `mapstructure:"reconnect_delay"`
}

// DatabaseConfig represents the print job journal database
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"dbname"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	MigrationsPath string        `mapstructure:"migrations_path"`
	Retention      time.Duration `mapstructure:"retention"`
	MemoryCapacity int           `mapstructure:"memory_capacity"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
	RateLimitEnabled  bool     `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int      `mapstructure:"rate_limit_requests"`
	RateLimitBurst    int      `mapstructure:"rate_limit_burst"`
}

// DiscoveryConfig controls printer discovery
type DiscoveryConfig struct {
	MDNSEnabled    bool          `mapstructure:"mdns_enabled"`
	MDNSService    string        `mapstructure:"mdns_service"`
	MDNSTimeout    time.Duration `mapstructure:"mdns_timeout"`
	CIDRs          []string      `mapstructure:"cidrs"`
	Ports          []int         `mapstructure:"ports"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	ScanTimeout    time.Duration `mapstructure:"scan_timeout"`

	Announce        bool   `mapstructure:"announce"`
	AnnounceService string `mapstructure:"announce_service"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables.
// A missing config file is not an error; defaults and env apply.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./internal/config")

	v.SetEnvPrefix("PRINTER_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Printer.Settings = config.Printer.Settings.Normalize()

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Printer defaults
	d := model.DefaultSettings()
	v.SetDefault("printer.address", "")
	v.SetDefault("printer.port", d.Port)
	v.SetDefault("printer.device_id", d.DeviceID)
	v.SetDefault("printer.interface", string(d.Interface))
	v.SetDefault("printer.density", d.Density)
	v.SetDefault("printer.cut_type", string(d.CutType))
	v.SetDefault("printer.drawer_kick", false)
	v.SetDefault("printer.buzzer", false)
	v.SetDefault("printer.timeout", d.Timeout.String())
	v.SetDefault("printer.monitor_interval", d.MonitorInterval.String())
	v.SetDefault("printer.ssl", false)
	v.SetDefault("printer.baud_rate", d.BaudRate)
	v.SetDefault("printer.register_id", "01")
	v.SetDefault("printer.auto_connect", false)
	v.SetDefault("printer.auto_monitor", true)
	v.SetDefault("printer.reconnect_attempts", 3)
	v.SetDefault("printer.reconnect_delay", "2s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "printer_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "file://migrations")
	v.SetDefault("database.retention", "720h")
	v.SetDefault("database.memory_capacity", 500)

	// Security defaults
	v.SetDefault("security.rate_limit_enabled", true)
	v.SetDefault("security.rate_limit_requests", 10)
	v.SetDefault("security.rate_limit_burst", 20)

	// Discovery defaults
	v.SetDefault("discovery.mdns_enabled", true)
	v.SetDefault("discovery.mdns_service", "_pdl-datastream._tcp")
	v.SetDefault("discovery.mdns_timeout", "3s")
	v.SetDefault("discovery.ports", []int{model.DefaultPort})
	v.SetDefault("discovery.dial_timeout", "300ms")
	v.SetDefault("discovery.max_concurrency", 64)
	v.SetDefault("discovery.scan_timeout", "30s")
	v.SetDefault("discovery.announce", false)
	v.SetDefault("discovery.announce_service", "_printer-agent._tcp")

	// App defaults
	v.SetDefault("app.name", "printer-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required when the journal is enabled")
	}
	if config.Printer.AutoConnect {
		if err := config.Printer.Settings.Validate(); err != nil {
			return fmt.Errorf("printer: %w", err)
		}
	}
	if config.Printer.ReconnectAttempts < 0 {
		return fmt.Errorf("printer.reconnect_attempts must not be negative")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !slices.Contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.App.Environment == "development"
}
