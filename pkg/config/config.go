package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "NOTEFETCH_"

// Config holds all configuration options for notefetch
type Config struct {
	// Remote note service
	Service ServiceConfig `yaml:"service" json:"service"`

	// Account credentials (optional, usually given on the command line or stored)
	Account AccountConfig `yaml:"account" json:"account"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Retry policy for transient service errors
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServiceConfig holds note service connection settings
type ServiceConfig struct {
	Host           string `yaml:"host" json:"host"`
	ConsumerKey    string `yaml:"consumer_key" json:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret" json:"consumer_secret"`
	ClientName     string `yaml:"client_name" json:"client_name"`
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
}

// AccountConfig holds account credentials
type AccountConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
	PageSize            int           `yaml:"page_size" json:"page_size"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Host:       "https://sandbox.notestore.dev",
			ClientName: "notefetch",
		},
		Output: OutputConfig{
			Directory: "note_images",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 1,
			Timeout:             30 * time.Second,
			PageSize:            100,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv(envPrefix + "HOST"); host != "" {
		c.Service.Host = host
	}
	if key := os.Getenv(envPrefix + "CONSUMER_KEY"); key != "" {
		c.Service.ConsumerKey = key
	}
	if secret := os.Getenv(envPrefix + "CONSUMER_SECRET"); secret != "" {
		c.Service.ConsumerSecret = secret
	}
	if userAgent := os.Getenv(envPrefix + "USER_AGENT"); userAgent != "" {
		c.Service.UserAgent = userAgent
	}

	if username := os.Getenv(envPrefix + "USERNAME"); username != "" {
		c.Account.Username = username
	}
	if password := os.Getenv(envPrefix + "PASSWORD"); password != "" {
		c.Account.Password = password
	}

	if outputDir := os.Getenv(envPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}

	if concurrent := os.Getenv(envPrefix + "CONCURRENT_DOWNLOADS"); concurrent != "" {
		val, err := strconv.Atoi(concurrent)
		if err != nil {
			return fmt.Errorf("invalid %sCONCURRENT_DOWNLOADS: %w", envPrefix, err)
		}
		c.Download.ConcurrentDownloads = val
	}
	if pageSize := os.Getenv(envPrefix + "PAGE_SIZE"); pageSize != "" {
		val, err := strconv.Atoi(pageSize)
		if err != nil {
			return fmt.Errorf("invalid %sPAGE_SIZE: %w", envPrefix, err)
		}
		c.Download.PageSize = val
	}
	if attempts := os.Getenv(envPrefix + "MAX_RETRIES"); attempts != "" {
		val, err := strconv.Atoi(attempts)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_RETRIES: %w", envPrefix, err)
		}
		c.Retry.MaxAttempts = val
	}

	if logLevel := os.Getenv(envPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv(envPrefix + "LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".notefetch.yaml",
		".notefetch.yml",
		filepath.Join(home, ".config", "notefetch", "config.yaml"),
		filepath.Join(home, ".config", "notefetch", "config.yml"),
		filepath.Join(home, ".notefetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Service.Host == "" {
		errs = append(errs, errors.New("service host is required"))
	} else if !strings.HasPrefix(c.Service.Host, "http://") && !strings.HasPrefix(c.Service.Host, "https://") {
		errs = append(errs, fmt.Errorf("service host must be an http(s) URL, got %q", c.Service.Host))
	}
	if c.Service.ClientName == "" {
		errs = append(errs, errors.New("client name is required"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("retry delays cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy with secrets masked, for display
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Service.ConsumerSecret != "" {
		cp.Service.ConsumerSecret = "********"
	}
	if cp.Account.Password != "" {
		cp.Account.Password = "********"
	}
	return &cp
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Download.PageSize = pageSize
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries > 0 {
		c.Retry.MaxAttempts = maxRetries
	}
	if timeout, ok := flags["download-timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Service.Host = host
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".notefetch.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
