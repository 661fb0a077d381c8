package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads the API server configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadClient reads the command-line client configuration. It is not
// validated here because flags may still override it; call Validate after
// applying them.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := os.Getenv(envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = os.Getenv(alt)
		}

		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Storage.Driver) {
	case DriverPostgres:
		if c.Storage.URL == "" {
			errs = append(errs, "DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
		if c.Storage.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Storage.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Storage.MaxConns < c.Storage.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Storage.MaxConns, c.Storage.MinConns))
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required when STORAGE_DRIVER=sqlite")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_DRIVER (%q) must be one of: postgres, sqlite", c.Storage.Driver))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, "SERVER_MAX_BODY_SIZE must be positive")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.MutationLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_MUTATIONS must be positive when rate limiting is enabled")
	}

	errs = append(errs, validateLogging(c.Logging.Level, c.Logging.Format, "LOG_LEVEL", "LOG_FORMAT")...)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Validate checks the client configuration after flags were applied.
func (c *ClientConfig) Validate() error {
	var errs []string

	switch c.Backend {
	case BackendRemote:
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("SPRAYLOG_API_URL (%q) must be an http(s) URL", c.APIURL))
		}
		if c.Timeout <= 0 {
			errs = append(errs, "SPRAYLOG_TIMEOUT must be positive")
		}
	case BackendLocal:
	default:
		errs = append(errs, fmt.Sprintf("SPRAYLOG_BACKEND (%q) must be one of: remote, local", c.Backend))
	}

	if c.MaxWait <= 0 {
		errs = append(errs, "SPRAYLOG_MAX_WAIT must be positive")
	}

	errs = append(errs, validateLogging(c.LogLevel, "text", "SPRAYLOG_LOG_LEVEL", "")...)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func validateLogging(level, format, levelVar, formatVar string) []string {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(level)] {
		errs = append(errs, fmt.Sprintf("%s (%q) must be one of: debug, info, warn, error", levelVar, level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if formatVar != "" && !validFormats[strings.ToLower(format)] {
		errs = append(errs, fmt.Sprintf("%s (%q) must be one of: text, json", formatVar, format))
	}

	return errs
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	switch strings.ToLower(c.Storage.Driver) {
	case DriverPostgres:
		b.WriteString(fmt.Sprintf("Storage: {Driver: %q, URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
			c.Storage.Driver, c.Storage.MaxConns, c.Storage.MinConns))
	default:
		b.WriteString(fmt.Sprintf("Storage: {Driver: %q, SQLitePath: %q}, ",
			c.Storage.Driver, c.Storage.SQLitePath))
	}
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d, MutationLimit: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.MutationLimit))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
