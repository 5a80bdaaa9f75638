package db

import (
	"fmt"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config captures the connection parameters for the order-management database.
type Config struct {
	Driver   string `yaml:"driver"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	Params   string `yaml:"params"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// FromEnv populates a Config using sensible defaults that can be overridden via environment variables.
func FromEnv() Config {
	cfg := Config{Driver: getEnv("DB_DRIVER", DriverMySQL)}
	cfg.ApplyEnv()
	cfg.SetDefaults()
	return cfg
}

// ApplyEnv overrides fields from environment variables when they are set.
func (c *Config) ApplyEnv() {
	c.Driver = getEnv("DB_DRIVER", c.Driver)
	c.User = getEnv("DB_USER", getEnv("MYSQL_USER", c.User))
	c.Password = getEnv("DB_PASSWORD", getEnv("MYSQL_PASSWORD", c.Password))
	c.Host = getEnv("DB_HOST", getEnv("MYSQL_HOST", c.Host))
	c.Port = getEnv("DB_PORT", getEnv("MYSQL_PORT", c.Port))
	c.Database = getEnv("DB_NAME", getEnv("MYSQL_DATABASE", c.Database))
	c.Params = getEnv("DB_PARAMS", getEnv("MYSQL_PARAMS", c.Params))
}

// SetDefaults fills empty fields with driver-specific defaults.
func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = DriverMySQL
	}
	defaults := map[string]Config{
		DriverMySQL: {
			User: "shopfloor", Password: "shopfloor", Host: "127.0.0.1", Port: "3306",
			Database: "shopfloor", Params: "charset=utf8mb4&parseTime=True&loc=Local",
		},
		DriverPostgres: {
			User: "postgres", Password: "postgres", Host: "127.0.0.1", Port: "5432",
			Database: "shopfloor", Params: "sslmode=disable",
		},
	}[c.Driver]

	setString(&c.User, defaults.User)
	setString(&c.Password, defaults.Password)
	setString(&c.Host, defaults.Host)
	setString(&c.Port, defaults.Port)
	setString(&c.Database, defaults.Database)
	setString(&c.Params, defaults.Params)
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
}

// Dialector returns the gorm dialector for the configured driver.
func (c Config) Dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s",
			c.User,
			c.Password,
			c.Host,
			c.Port,
			c.Database,
			c.Params,
		)
		return mysql.Open(dsn), nil
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s %s",
			c.Host,
			c.Port,
			c.User,
			c.Password,
			c.Database,
			c.Params,
		)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// Open returns a gorm DB using the provided configuration.
func Open(cfg Config) (*gorm.DB, error) {
	dialector, err := cfg.Dialector()
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	return gdb, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func setString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}
