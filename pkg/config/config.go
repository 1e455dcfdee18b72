package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"feedbot/pkg/match"
)

// Config holds all configuration options for feedbot
type Config struct {
	// Account credentials for the web client
	Account AccountConfig `yaml:"account" json:"account"`

	// Browser automation settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Action rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Session loop settings
	Session SessionConfig `yaml:"session" json:"session"`

	// Targeting rules
	Filter match.FilterConfig `yaml:"filter" json:"filter"`

	// AI comment generation
	TextGen TextGenConfig `yaml:"textgen" json:"textgen"`

	// Export settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AccountConfig holds credentials for the automated account
type AccountConfig struct {
	Username  string `yaml:"username" json:"username"`
	AuthToken string `yaml:"auth_token" json:"auth_token"`
	CSRFToken string `yaml:"csrf_token" json:"csrf_token"`
}

// BrowserConfig holds remote browser settings
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	NavTimeout     time.Duration `yaml:"nav_timeout" json:"nav_timeout"`
	WaitTimeout    time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	ScrollPixels   int           `yaml:"scroll_pixels" json:"scroll_pixels"`
	RequestsPerMin int           `yaml:"requests_per_min" json:"requests_per_min"`
}

// RateLimitConfig holds the per-session and per-hour action caps
type RateLimitConfig struct {
	MaxPerSession  int           `yaml:"max_per_session" json:"max_per_session"`
	MaxPerHour     int           `yaml:"max_per_hour" json:"max_per_hour"`
	MinActionDelay time.Duration `yaml:"min_action_delay" json:"min_action_delay"`
	MaxActionDelay time.Duration `yaml:"max_action_delay" json:"max_action_delay"`
}

// SessionConfig holds the timed run loop settings
type SessionConfig struct {
	// Duration bounds the run; zero or negative means unbounded.
	Duration time.Duration `yaml:"duration" json:"duration"`

	// ActionProbability samples matched candidates; 1.0 acts on all.
	ActionProbability float64 `yaml:"action_probability" json:"action_probability"`

	// BatchLimit is the number of new items collected per loop iteration.
	BatchLimit int `yaml:"batch_limit" json:"batch_limit"`

	// StallRounds aborts collection after this many rounds without new items.
	StallRounds int `yaml:"stall_rounds" json:"stall_rounds"`

	// MaxRounds bounds collection regardless of stall state.
	MaxRounds int `yaml:"max_rounds" json:"max_rounds"`

	// PollInterval is the wait between collection rounds.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`

	// SideActionProbability rolls an optional secondary action (e.g. a
	// repost after a like) on each successful primary action.
	SideActionProbability float64 `yaml:"side_action_probability" json:"side_action_probability"`
}

// TextGenConfig holds settings for the AI comment provider
type TextGenConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	APIKey    string        `yaml:"api_key" json:"api_key"`
	Model     string        `yaml:"model" json:"model"`
	MaxTokens int           `yaml:"max_tokens" json:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// OutputConfig holds result export settings
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	PrettyJSON    bool   `yaml:"pretty_json" json:"pretty_json"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       true,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			NavTimeout:     30 * time.Second,
			WaitTimeout:    10 * time.Second,
			ScrollPixels:   1200,
			RequestsPerMin: 60,
		},
		RateLimit: RateLimitConfig{
			MaxPerSession:  50,
			MaxPerHour:     30,
			MinActionDelay: 3 * time.Second,
			MaxActionDelay: 10 * time.Second,
		},
		Session: SessionConfig{
			Duration:              30 * time.Minute,
			ActionProbability:     1.0,
			BatchLimit:            20,
			StallRounds:           5,
			MaxRounds:             50,
			PollInterval:          2 * time.Second,
			SideActionProbability: 0,
		},
		TextGen: TextGenConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 120,
			Timeout:   30 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: "./results",
			PrettyJSON:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if username := os.Getenv("FEEDBOT_USERNAME"); username != "" {
		c.Account.Username = username
	}
	if token := os.Getenv("FEEDBOT_AUTH_TOKEN"); token != "" {
		c.Account.AuthToken = token
	}
	if token := os.Getenv("FEEDBOT_CSRF_TOKEN"); token != "" {
		c.Account.CSRFToken = token
	}

	if v := os.Getenv("FEEDBOT_MAX_PER_SESSION"); v != "" {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val >= 0 {
			c.RateLimit.MaxPerSession = val
		}
	}
	if v := os.Getenv("FEEDBOT_MAX_PER_HOUR"); v != "" {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val >= 0 {
			c.RateLimit.MaxPerHour = val
		}
	}

	if v := os.Getenv("FEEDBOT_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) != "false"
	}
	if dir := os.Getenv("FEEDBOT_OUTPUT_DIR"); dir != "" {
		c.Output.BaseDirectory = dir
	}
	if key := os.Getenv("FEEDBOT_TEXTGEN_API_KEY"); key != "" {
		c.TextGen.APIKey = key
	}
	if level := os.Getenv("FEEDBOT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
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

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".feedbot.yaml",
		".feedbot.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "feedbot", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "feedbot", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".feedbot.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. A failure here is fatal
// and reported before any run starts.
func (c *Config) Validate() error {
	var errs []error

	// A cap of zero could never permit an action, so it is rejected here
	// rather than left to hang a run.
	if c.RateLimit.MaxPerSession < 1 {
		errs = append(errs, errors.New("max per session must be at least 1"))
	}
	if c.RateLimit.MaxPerHour < 1 {
		errs = append(errs, errors.New("max per hour must be at least 1"))
	}
	if c.RateLimit.MinActionDelay < 0 || c.RateLimit.MaxActionDelay < 0 {
		errs = append(errs, errors.New("action delays cannot be negative"))
	}
	if c.RateLimit.MaxActionDelay > 0 && c.RateLimit.MinActionDelay > c.RateLimit.MaxActionDelay {
		errs = append(errs, errors.New("min action delay greater than max action delay"))
	}

	if c.Session.ActionProbability < 0 || c.Session.ActionProbability > 1 {
		errs = append(errs, errors.New("action probability must be between 0 and 1"))
	}
	if c.Session.SideActionProbability < 0 || c.Session.SideActionProbability > 1 {
		errs = append(errs, errors.New("side action probability must be between 0 and 1"))
	}
	if c.Session.BatchLimit <= 0 {
		errs = append(errs, errors.New("batch limit must be positive"))
	}
	if c.Session.StallRounds <= 0 {
		errs = append(errs, errors.New("stall rounds must be positive"))
	}
	if c.Session.MaxRounds <= 0 {
		errs = append(errs, errors.New("max rounds must be positive"))
	}
	if c.Session.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}

	if err := c.Filter.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Browser.ScrollPixels <= 0 {
		errs = append(errs, errors.New("scroll pixels must be positive"))
	}
	if c.Browser.NavTimeout <= 0 || c.Browser.WaitTimeout <= 0 {
		errs = append(errs, errors.New("browser timeouts must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
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

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Account.Username = username
	}
	if maxSession, ok := flags["max-per-session"].(int); ok && maxSession >= 0 {
		c.RateLimit.MaxPerSession = maxSession
	}
	if maxHour, ok := flags["max-per-hour"].(int); ok && maxHour >= 0 {
		c.RateLimit.MaxPerHour = maxHour
	}
	if duration, ok := flags["duration"].(time.Duration); ok && duration > 0 {
		c.Session.Duration = duration
	}
	if prob, ok := flags["probability"].(float64); ok {
		c.Session.ActionProbability = prob
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".feedbot.env"))

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
