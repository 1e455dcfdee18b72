package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"feedbot/pkg/browser"
	"feedbot/pkg/collect"
	"feedbot/pkg/models"
	"feedbot/pkg/storage"
	"feedbot/pkg/twitter"
	"feedbot/pkg/ui"
)

var (
	// Collect command flags
	collectLimit int
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect <target>",
	Short: "Collect candidate posts without acting on them",
	Long: `Collect candidate posts from a feed target and export them as JSON.

No actions are performed; this is useful for tuning targeting rules
before running a session, and for auditing what a feed surfaces.`,
	Example: `  # Collect 50 posts from a live search
  feedbot collect search:golang --limit 50

  # Collect a user's recent posts
  feedbot collect profile:some_user

  # Collect followers of an account
  feedbot collect followers:some_user`,
	Args: cobra.ExactArgs(1),
	Run:  runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().IntVarP(&collectLimit, "limit", "l", 50, "maximum items to collect")
	collectCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	collectCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for results")
}

func runCollect(cmd *cobra.Command, args []string) {
	targets, err := parseTargets(args)
	if err != nil {
		ui.PrintError("Invalid target", err.Error())
		os.Exit(1)
	}
	target := targets[0]

	cfg := loadConfig()
	log := initLogger(cfg)
	account := resolveAccount(cfg)

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.PrettyJSON)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	page, err := browser.NewChromePage(cfg.Browser, log)
	if err != nil {
		ui.PrintError("Failed to launch browser", err.Error())
		os.Exit(1)
	}
	defer page.Close()

	scraper := twitter.NewScraper(page, cfg, log)
	if err := scraper.Authenticate(ctx, account); err != nil {
		ui.PrintError("Authentication failed", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Target", target.String())
	ui.PrintHighlight("[COLLECTING]")

	opts := collect.Options{
		Limit:        collectLimit,
		StallRounds:  cfg.Session.StallRounds,
		MaxRounds:    cfg.Session.MaxRounds,
		PollInterval: cfg.Session.PollInterval,
		OnProgress: func(count, limit int) {
			fmt.Printf("\r%s %d/%d", ui.Cyan("collected"), count, limit)
		},
	}

	var result models.CollectionResult
	switch target.Kind {
	case "home":
		result, err = scraper.CollectHome(ctx, opts)
	case "search":
		result, err = scraper.CollectSearch(ctx, target.Query, opts)
	case "profile":
		result, err = scraper.CollectProfile(ctx, target.Query, opts)
	case "followers":
		result, err = scraper.CollectFollowers(ctx, target.Query, opts)
	}
	fmt.Println()

	if err != nil {
		ui.PrintError("Collection failed", err.Error())
		os.Exit(1)
	}

	path, err := store.SaveCollection(account.Username, &result)
	if err != nil {
		ui.PrintError("Failed to export results", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Collected", fmt.Sprintf("%d items (%d found)", len(result.Items), result.TotalFound))
	ui.PrintInfo("Duration", result.CompletedAt.Sub(result.StartedAt).Round(time.Millisecond).String())
	ui.PrintInfo("Saved to", path)
	ui.PrintSuccess("[COLLECTION COMPLETE]")
}
