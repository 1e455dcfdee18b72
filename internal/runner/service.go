package runner

import (
	"context"
	"fmt"
	"strings"

	"feedbot/pkg/auth"
	"feedbot/pkg/browser"
	"feedbot/pkg/checkpoint"
	"feedbot/pkg/collect"
	"feedbot/pkg/config"
	errs "feedbot/pkg/errors"
	"feedbot/pkg/logger"
	"feedbot/pkg/models"
	"feedbot/pkg/session"
	"feedbot/pkg/storage"
	"feedbot/pkg/textgen"
	"feedbot/pkg/throttle"
	"feedbot/pkg/twitter"
	"feedbot/pkg/ui"
)

// The terminal display doubles as the session's progress sink.
var _ session.Progress = (*ui.ProgressDisplay)(nil)

// PageFactory opens a fresh browser page. Each session run gets its own.
type PageFactory func(ctx context.Context) (browser.Page, error)

// Service wires one account's configuration into runnable sessions: it
// opens a page per target, authenticates, builds the action stack and runs
// the session loop. It implements SessionRunner for the pool.
type Service struct {
	cfg      *config.Config
	account  *auth.Account
	action   string
	side     string
	provider textgen.Provider
	store       *storage.Manager
	newPage     PageFactory
	newProgress func(target string) session.Progress
	resume      bool
	logger      logger.Logger
}

// ServiceParams configures a Service
type ServiceParams struct {
	Config  *config.Config
	Account *auth.Account

	// Action names the primary action: "like", "repost", "comment" or
	// "follow". SideAction optionally names a secondary action rolled on
	// each success.
	Action     string
	SideAction string

	// Provider is required when Action or SideAction is "comment".
	Provider textgen.Provider

	// Store, when set, persists every run result.
	Store *storage.Manager

	// NewPage opens the browser page a session runs on. Defaults to a
	// chromedp page with the configured browser settings.
	NewPage PageFactory

	// NewProgress builds the per-session progress sink. Defaults to the
	// terminal progress display.
	NewProgress func(target string) session.Progress

	// Resume pre-seeds dedup state from the account's checkpoint.
	Resume bool

	Logger logger.Logger
}

// NewService validates the action stack and creates a service
func NewService(p ServiceParams) (*Service, error) {
	if p.Config == nil {
		return nil, errs.NewConfiguration("runner requires a configuration")
	}
	if p.Account == nil {
		return nil, errs.NewConfiguration("runner requires account credentials")
	}
	if !validAction(p.Action) {
		return nil, errs.NewConfiguration(fmt.Sprintf("unknown action %q", p.Action))
	}
	if p.SideAction != "" && !validAction(p.SideAction) {
		return nil, errs.NewConfiguration(fmt.Sprintf("unknown side action %q", p.SideAction))
	}
	if (p.Action == "comment" || p.SideAction == "comment") && p.Provider == nil {
		return nil, errs.NewConfiguration("comment action requires a text provider")
	}

	log := p.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	newPage := p.NewPage
	if newPage == nil {
		cfg := p.Config
		newPage = func(ctx context.Context) (browser.Page, error) {
			return browser.NewChromePage(cfg.Browser, log)
		}
	}
	newProgress := p.NewProgress
	if newProgress == nil {
		cfg := p.Config
		account := p.Account
		newProgress = func(target string) session.Progress {
			return ui.NewProgressDisplay(account.Username, target,
				cfg.RateLimit.MaxPerSession, cfg.RateLimit.MaxPerHour,
				strings.EqualFold(cfg.Logging.Level, "debug"))
		}
	}

	return &Service{
		cfg:         p.Config,
		account:     p.Account,
		action:      p.Action,
		side:        p.SideAction,
		provider:    p.Provider,
		store:       p.Store,
		newPage:     newPage,
		newProgress: newProgress,
		resume:      p.Resume,
		logger:      log,
	}, nil
}

// RunSession opens the target's feed and runs one full session over it
func (s *Service) RunSession(ctx context.Context, target Target) (*models.RunResult, error) {
	page, err := s.newPage(ctx)
	if err != nil {
		return nil, errs.NewSourceUnavailable("failed to open browser page", err)
	}
	defer page.Close()

	scraper := twitter.NewScraper(page, s.cfg, s.logger)
	if err := scraper.Authenticate(ctx, s.account); err != nil {
		return nil, err
	}

	engine, source, err := s.openTarget(ctx, scraper, target)
	if err != nil {
		return nil, err
	}

	cpManager, cp, seen, err := s.loadCheckpoint()
	if err != nil {
		s.logger.WithError(err).Warn("checkpoint unavailable, starting fresh")
	}

	controller, err := session.New(session.Params{
		Config:     s.cfg,
		Engine:     engine,
		Throttle:   throttle.New(s.cfg.RateLimit.MaxPerSession, s.cfg.RateLimit.MaxPerHour),
		Action:     s.buildAction(s.action, page),
		SideAction: s.buildAction(s.side, page),
		Refresh:    source.Refresh,
		Seen:       seen,
		Progress:   s.newProgress(target.String()),
		Logger:     s.logger.WithField("target", target.String()),
	})
	if err != nil {
		return nil, err
	}

	result, err := controller.Run(ctx)
	if err != nil {
		return nil, err
	}

	s.saveCheckpoint(cpManager, cp, result)
	if s.store != nil {
		if path, err := s.store.SaveRun(s.account.Username, s.action, result); err != nil {
			s.logger.WithError(err).Warn("failed to export run result")
		} else {
			s.logger.WithField("path", path).Debug("run result exported")
		}
	}

	return result, nil
}

// openTarget opens the feed for target and returns a collection engine
// over it plus the source used to refresh it.
func (s *Service) openTarget(ctx context.Context, scraper *twitter.Scraper, target Target) (*collect.Engine, *collect.PageSource, error) {
	switch target.Kind {
	case "home", "":
		if err := scraper.OpenHome(ctx); err != nil {
			return nil, nil, err
		}
		return scraper.TweetEngine(), scraper.TweetSource(), nil
	case "search":
		if err := scraper.OpenSearch(ctx, target.Query); err != nil {
			return nil, nil, err
		}
		return scraper.TweetEngine(), scraper.TweetSource(), nil
	case "profile":
		if err := scraper.OpenProfile(ctx, target.Query); err != nil {
			return nil, nil, err
		}
		return scraper.TweetEngine(), scraper.TweetSource(), nil
	case "followers":
		if err := scraper.OpenFollowers(ctx, target.Query); err != nil {
			return nil, nil, err
		}
		return scraper.UserEngine(), scraper.UserSource(), nil
	default:
		return nil, nil, errs.NewConfiguration(fmt.Sprintf("unknown target kind %q", target.Kind))
	}
}

func (s *Service) buildAction(name string, page browser.Page) session.Action {
	switch name {
	case "like":
		return twitter.NewLikeAction(page, s.logger)
	case "repost":
		return twitter.NewRepostAction(page, s.logger)
	case "comment":
		return twitter.NewCommentAction(page, s.provider, s.logger)
	case "follow":
		return twitter.NewFollowAction(page, s.logger)
	default:
		return nil
	}
}

// loadCheckpoint loads the account's checkpoint for the primary action and
// seeds the dedup set with everything already acted on.
func (s *Service) loadCheckpoint() (*checkpoint.Manager, *checkpoint.Checkpoint, *models.SeenSet, error) {
	if !s.resume {
		return nil, nil, nil, nil
	}

	manager, err := checkpoint.NewManager(s.account.Username, s.action)
	if err != nil {
		return nil, nil, nil, err
	}

	cp, err := manager.Load()
	if err != nil {
		return manager, nil, nil, err
	}
	if cp == nil {
		cp, err = manager.Create(s.account.Username, s.action)
		if err != nil {
			return manager, nil, nil, err
		}
	}

	seen := models.NewSeenSet()
	for _, id := range cp.ActedIDs {
		seen.Add(id)
	}
	return manager, cp, seen, nil
}

func (s *Service) saveCheckpoint(manager *checkpoint.Manager, cp *checkpoint.Checkpoint, result *models.RunResult) {
	if manager == nil || cp == nil {
		return
	}

	for _, id := range result.ActedIDs {
		if err := manager.RecordAction(cp, id); err != nil {
			s.logger.WithError(err).Warn("failed to record checkpoint action")
			return
		}
	}
	cp.SuccessCount += result.SuccessCount
	cp.FailedCount += result.FailedCount
	cp.SkippedCount += result.SkippedCount
	if err := manager.Save(cp); err != nil {
		s.logger.WithError(err).Warn("failed to save checkpoint")
	}
}

func validAction(name string) bool {
	switch name {
	case "like", "repost", "comment", "follow":
		return true
	}
	return false
}
