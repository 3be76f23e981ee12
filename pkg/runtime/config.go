package runtime

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents database configuration.
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"dbname"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ApplicationName string        `yaml:"application_name"`
}

// requiredKeys are the keys every configuration file must define.
var requiredKeys = []string{"host", "port", "dbname", "user", "password"}

// Environment variables read by ConfigFromEnv.
const (
	EnvHost     = "STOREFRONT_DB_HOST"
	EnvPort     = "STOREFRONT_DB_PORT"
	EnvDatabase = "STOREFRONT_DB_NAME"
	EnvUser     = "STOREFRONT_DB_USER"
	EnvPassword = "STOREFRONT_DB_PASSWORD"
	EnvSSLMode  = "STOREFRONT_DB_SSLMODE"
)

// LoadConfig reads the connection parameters from a YAML file.
// Every failure is returned as a *ConfigError.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, &ConfigError{Path: path, Message: "file not found", Err: err}
		}
		return Config{}, &ConfigError{Path: path, Message: "failed to read file", Err: err}
	}
	return ParseConfig(path, data)
}

// ParseConfig decodes YAML content into a Config. The path is only used
// for error reporting.
func ParseConfig(path string, data []byte) (Config, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, &ConfigError{Path: path, Message: "malformed content", Err: err}
	}
	if raw == nil {
		return Config{}, &ConfigError{Path: path, Message: "empty configuration"}
	}

	var missing []string
	for _, key := range requiredKeys {
		node, ok := raw[key]
		if !ok || strings.TrimSpace(node.Value) == "" && key != "password" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Config{}, &ConfigError{Path: path, Message: "missing keys: " + strings.Join(missing, ", ")}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &ConfigError{Path: path, Message: "malformed content", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, &ConfigError{Path: path, Message: "invalid configuration", Err: err}
	}
	return cfg, nil
}

// ConfigFromEnv builds a Config from STOREFRONT_DB_* environment variables.
func ConfigFromEnv() (Config, error) {
	lookup := map[string]string{
		"host":     EnvHost,
		"port":     EnvPort,
		"dbname":   EnvDatabase,
		"user":     EnvUser,
		"password": EnvPassword,
	}

	var missing []string
	values := make(map[string]string, len(lookup))
	for _, key := range requiredKeys {
		v, ok := os.LookupEnv(lookup[key])
		if !ok {
			missing = append(missing, lookup[key])
			continue
		}
		values[key] = v
	}
	if len(missing) > 0 {
		return Config{}, &ConfigError{Path: "env", Message: "missing variables: " + strings.Join(missing, ", ")}
	}

	port, err := strconv.Atoi(values["port"])
	if err != nil {
		return Config{}, &ConfigError{Path: "env", Message: "port is not a number", Err: err}
	}

	cfg := Config{
		Host:     values["host"],
		Port:     port,
		Database: values["dbname"],
		User:     values["user"],
		Password: values["password"],
		SSLMode:  os.Getenv(EnvSSLMode),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, &ConfigError{Path: "env", Message: "invalid configuration", Err: err}
	}
	return cfg, nil
}

// Validate checks field values after decoding.
func (c Config) Validate() error {
	if c.Host == "" {
		return &ValidationError{Field: "host", Message: "must not be empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "port", Message: "must be between 1 and 65535"}
	}
	if c.Database == "" {
		return &ValidationError{Field: "dbname", Message: "must not be empty"}
	}
	if c.User == "" {
		return &ValidationError{Field: "user", Message: "must not be empty"}
	}
	switch c.SSLMode {
	case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return &ValidationError{Field: "sslmode", Message: fmt.Sprintf("unsupported mode %q", c.SSLMode)}
	}
	return nil
}

// ConnString builds a PostgreSQL connection URL from the config.
func (c Config) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	if c.ApplicationName != "" {
		q.Set("application_name", c.ApplicationName)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// String renders the config without the password.
func (c Config) String() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=%s", c.Host, c.Port, c.Database, c.User, c.SSLMode)
}
