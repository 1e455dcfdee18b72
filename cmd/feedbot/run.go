package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"feedbot/internal/runner"
	"feedbot/pkg/auth"
	"feedbot/pkg/config"
	"feedbot/pkg/logger"
	"feedbot/pkg/storage"
	"feedbot/pkg/textgen"
	"feedbot/pkg/ui"
)

var (
	// Run command flags
	runTargets  []string
	accountName string
	sessionCap  int
	hourlyCap   int
	duration    time.Duration
	probability float64
	sideAction  string
	resumeRun   bool
	workers     int
	outputDir   string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <action>",
	Short: "Run an engagement session",
	Long: `Run a timed engagement session performing one action type against one
or more feed targets.

Actions: like, repost, comment, follow

Targets are given as kind or kind:query
  home                the home timeline
  search:<query>      live search results
  profile:<username>  a user's posts
  followers:<username> a user's followers (for the follow action)

Credentials come from stored accounts ('feedbot auth login'), environment
variables (FEEDBOT_AUTH_TOKEN, FEEDBOT_CSRF_TOKEN) or the config file.`,
	Example: `  # Like posts from the home timeline
  feedbot run like

  # Comment on search results, at most 10 per session
  feedbot run comment --target search:golang --session-cap 10

  # Follow followers of an account, resuming previous progress
  feedbot run follow --target followers:some_user --resume

  # Like across several feeds concurrently
  feedbot run like --target search:golang --target search:kubernetes --workers 2`,
	Args: cobra.ExactArgs(1),
	Run:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVarP(&runTargets, "target", "t", []string{"home"}, "feed target, repeatable (kind or kind:query)")
	runCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	runCmd.Flags().IntVar(&sessionCap, "session-cap", -1, "maximum actions per session")
	runCmd.Flags().IntVar(&hourlyCap, "hourly-cap", -1, "maximum actions per hour")
	runCmd.Flags().DurationVar(&duration, "duration", 0, "session duration (0 uses the configured default)")
	runCmd.Flags().Float64Var(&probability, "probability", -1, "probability of acting on a matched item (0..1)")
	runCmd.Flags().StringVar(&sideAction, "side-action", "", "secondary action rolled on each success")
	runCmd.Flags().BoolVar(&resumeRun, "resume", false, "resume dedup state from the last checkpoint")
	runCmd.Flags().IntVarP(&workers, "workers", "w", 1, "concurrent sessions across targets")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for results")
}

func runRun(cmd *cobra.Command, args []string) {
	action := strings.ToLower(strings.TrimSpace(args[0]))

	targets, err := parseTargets(runTargets)
	if err != nil {
		ui.PrintError("Invalid target", err.Error())
		os.Exit(1)
	}

	cfg := loadConfig()
	log := initLogger(cfg)
	account := resolveAccount(cfg)

	var provider textgen.Provider
	if action == "comment" || sideAction == "comment" {
		client, err := textgen.NewClient(&cfg.TextGen, log)
		if err != nil {
			ui.PrintError("Comment generation unavailable", err.Error())
			fmt.Println("\nSet the API key via FEEDBOT_TEXTGEN_API_KEY or the config file.")
			os.Exit(1)
		}
		provider = client
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.PrettyJSON)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}

	svc, err := runner.NewService(runner.ServiceParams{
		Config:     cfg,
		Account:    account,
		Action:     action,
		SideAction: sideAction,
		Provider:   provider,
		Store:      store,
		Resume:     resumeRun,
		Logger:     log,
	})
	if err != nil {
		ui.PrintError("Failed to initialize runner", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Account", account.Username)
	ui.PrintInfo("Action", action)
	for _, target := range targets {
		ui.PrintInfo("Target", target.String())
	}
	ui.PrintHighlight("[SESSION STARTING]")

	result := runner.RunAll(ctx, svc, targets, workers, log)

	if notifications {
		notifier := ui.NewNotifier()
		if result.Cancelled {
			notifier.SendNotification("Feedbot", "Session cancelled")
		} else if len(result.Errors) > 0 && result.SuccessCount == 0 {
			notifier.SendError("Feedbot", "Session failed")
		} else {
			notifier.SendSuccess("Feedbot", fmt.Sprintf("%d actions completed", result.SuccessCount))
		}
	}

	fmt.Println()
	ui.PrintInfo("Succeeded", fmt.Sprintf("%d", result.SuccessCount))
	ui.PrintInfo("Failed", fmt.Sprintf("%d", result.FailedCount))
	ui.PrintInfo("Skipped", fmt.Sprintf("%d", result.SkippedCount))
	if result.Cancelled {
		ui.PrintWarning("Session cancelled before completion")
	}
	for _, msg := range result.Errors {
		ui.PrintWarning(msg)
	}

	if result.SuccessCount == 0 && len(result.Errors) > 0 {
		os.Exit(1)
	}
	ui.PrintSuccess("[SESSION COMPLETE]")
}

// parseTargets parses kind or kind:query target specs
func parseTargets(specs []string) ([]runner.Target, error) {
	targets := make([]runner.Target, 0, len(specs))
	for _, spec := range specs {
		kind, query, _ := strings.Cut(strings.TrimSpace(spec), ":")
		kind = strings.ToLower(kind)
		switch kind {
		case "home":
			if query != "" {
				return nil, fmt.Errorf("target %q takes no query", kind)
			}
		case "search", "profile", "followers":
			if query == "" {
				return nil, fmt.Errorf("target %q requires a query, e.g. %s:golang", kind, kind)
			}
		default:
			return nil, fmt.Errorf("unknown target kind %q", kind)
		}
		targets = append(targets, runner.Target{Kind: kind, Query: strings.TrimPrefix(query, "@")})
	}
	return targets, nil
}

// loadConfig builds the effective configuration from flags, env and file
func loadConfig() *config.Config {
	flags := make(map[string]interface{})
	if sessionCap >= 0 {
		flags["max-per-session"] = sessionCap
	}
	if hourlyCap >= 0 {
		flags["max-per-hour"] = hourlyCap
	}
	if duration > 0 {
		flags["duration"] = duration
	}
	if probability >= 0 {
		flags["probability"] = probability
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	return cfg
}

// initLogger configures the global logger from config
func initLogger(cfg *config.Config) logger.Logger {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("feedbot starting")
	return log
}

// resolveAccount finds credentials from stored accounts, config or env
func resolveAccount(cfg *config.Config) *auth.Account {
	credManager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if accountName != "" {
		account, err := credManager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "Use 'feedbot auth list' to see stored accounts")
			os.Exit(1)
		}
		return account
	}

	if cfg.Account.AuthToken != "" && cfg.Account.CSRFToken != "" {
		return &auth.Account{
			Username:  cfg.Account.Username,
			AuthToken: cfg.Account.AuthToken,
			CSRFToken: cfg.Account.CSRFToken,
			UserAgent: cfg.Browser.UserAgent,
		}
	}

	account, err := credManager.RetrieveDefault()
	if err != nil {
		ui.PrintError("No credentials found", "")
		fmt.Println("\nTo store credentials securely, run:")
		fmt.Println("  feedbot auth login")
		fmt.Println("\nOr set environment variables:")
		fmt.Println("  export FEEDBOT_AUTH_TOKEN=your_auth_token")
		fmt.Println("  export FEEDBOT_CSRF_TOKEN=your_ct0_token")
		os.Exit(1)
	}
	return account
}
