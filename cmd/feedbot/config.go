package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"feedbot/pkg/config"
	"feedbot/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage feedbot configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.feedbot.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources.

Sensitive values like credentials will be masked for security.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".feedbot.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# Feedbot Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with FEEDBOT_
# For example: FEEDBOT_AUTH_TOKEN, FEEDBOT_CSRF_TOKEN

# Account credentials
# Prefer 'feedbot auth login' over storing tokens in this file.
account:
  username: ""
  # auth_token cookie value from a logged-in browser session
  auth_token: ""
  # ct0 cookie value
  csrf_token: ""

# Browser automation settings
browser:
  headless: true
  scroll_pixels: 1200
  nav_timeout: 30s
  wait_timeout: 10s
  # Page operations per minute
  requests_per_min: 60

# Action rate limiting
rate_limit:
  max_per_session: 50
  max_per_hour: 30
  min_action_delay: 3s
  max_action_delay: 10s

# Session loop settings
session:
  duration: 30m
  action_probability: 1.0
  batch_limit: 20
  stall_rounds: 5
  max_rounds: 50
  poll_interval: 2s
  side_action_probability: 0

# Targeting rules
filter:
  # Act only on posts matching any of these; leave all empty to allow all.
  keywords: []
  hashtags: []
  target_users: []
  # Exclusions are checked first.
  blocked_users: []
  blocked_keywords: []
  exclude_reposts: false
  exclude_replies: false
  require_text: false

# AI comment generation (for the comment action)
textgen:
  base_url: "https://api.openai.com/v1"
  # Prefer FEEDBOT_TEXTGEN_API_KEY over storing the key here.
  api_key: ""
  model: "gpt-4o-mini"
  max_tokens: 120
  timeout: 30s

# Result export
output:
  base_directory: "./results"
  pretty_json: true

# Logging
logging:
  level: "info"
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to write configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nEdit the file to configure targeting and caps, then run:")
	fmt.Println("  feedbot run like")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	// Mask credentials before rendering.
	masked := *cfg
	masked.Account.AuthToken = maskValue(cfg.Account.AuthToken)
	masked.Account.CSRFToken = maskValue(cfg.Account.CSRFToken)
	masked.TextGen.APIKey = maskValue(cfg.TextGen.APIKey)

	data, err := yaml.Marshal(&masked)
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		ui.PrintError("No configuration file specified", "use --config")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		ui.PrintError("Configuration file is invalid", err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration is valid: " + path)
}

func maskValue(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
