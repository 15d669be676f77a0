package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"tableconfig-editor/internal/warehouse"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	Host string `mapstructure:"host"`
}

// StorageConfig selects which backend holds the configuration table:
// mysql, databricks or snowflake.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSL      string `mapstructure:"ssl"`
}

type WarehouseConfig struct {
	Databricks warehouse.DatabricksConfig `mapstructure:"databricks"`
	Snowflake  warehouse.SnowflakeConfig  `mapstructure:"snowflake"`
}

type SecurityConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	JWTExpiration      time.Duration `mapstructure:"jwt_expiration"`
	AdminUser          string        `mapstructure:"admin_user"`
	AdminPassword      string        `mapstructure:"admin_password"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	EnableAuth         bool          `mapstructure:"enable_auth"`
	EnableRateLimit    bool          `mapstructure:"enable_rate_limit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults and environment
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	switch config.Storage.Backend {
	case "mysql", "databricks", "snowflake":
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", config.Storage.Backend)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.host", "0.0.0.0")

	// Storage defaults
	viper.SetDefault("storage.backend", "mysql")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "3306")
	viper.SetDefault("database.database", "tableconfig_db")
	viper.SetDefault("database.username", "tableconfig_user")
	viper.SetDefault("database.ssl", "false")

	// Warehouse defaults
	viper.SetDefault("warehouse.databricks.catalog", "romy_demo")
	viper.SetDefault("warehouse.databricks.schema", "dlt_cdc_scd_demo")
	viper.SetDefault("warehouse.databricks.table", "2_table_config")
	viper.SetDefault("warehouse.snowflake.table", "TABLE_CONFIG")

	// Security defaults
	viper.SetDefault("security.jwt_secret", "your-secret-key")
	viper.SetDefault("security.jwt_expiration", "24h")
	viper.SetDefault("security.admin_user", "admin")
	viper.SetDefault("security.rate_limit_per_minute", 120)
	viper.SetDefault("security.rate_limit_burst", 20)
	viper.SetDefault("security.enable_auth", false)
	viper.SetDefault("security.enable_rate_limit", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
