package twitter

import (
	"context"
	"time"

	"feedbot/pkg/auth"
	"feedbot/pkg/browser"
	"feedbot/pkg/collect"
	"feedbot/pkg/config"
	errs "feedbot/pkg/errors"
	"feedbot/pkg/logger"
	"feedbot/pkg/models"
)

// cookieSetter is implemented by pages that can inject session cookies
// (browser.ChromePage). The mock page does not need it.
type cookieSetter interface {
	SetCookies(ctx context.Context, domain string, cookies map[string]string) error
}

// Scraper drives one page through the web client: authenticating, opening
// feeds and collecting candidate items.
type Scraper struct {
	page   browser.Page
	cfg    *config.Config
	logger logger.Logger
}

// NewScraper creates a scraper over page
func NewScraper(page browser.Page, cfg *config.Config, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{page: page, cfg: cfg, logger: log}
}

// Page exposes the underlying page, for actions sharing the session
func (s *Scraper) Page() browser.Page {
	return s.page
}

// Authenticate injects the account's session cookies and verifies the
// client accepts them by loading the home timeline.
func (s *Scraper) Authenticate(ctx context.Context, account *auth.Account) error {
	if setter, ok := s.page.(cookieSetter); ok {
		err := setter.SetCookies(ctx, ".x.com", map[string]string{
			"auth_token": account.AuthToken,
			"ct0":        account.CSRFToken,
		})
		if err != nil {
			return errs.NewSourceUnavailable("failed to inject session cookies", err)
		}
	}

	if err := s.page.Navigate(ctx, HomeURL); err != nil {
		return err
	}

	found, err := s.page.WaitFor(ctx, SelectorPrimaryColumn, s.cfg.Browser.WaitTimeout)
	if err != nil {
		return errs.NewSourceUnavailable("home timeline did not render", err)
	}
	if !found {
		return errs.NewSourceUnavailable("session cookies were rejected", nil)
	}

	s.logger.InfoWithFields("authenticated", map[string]interface{}{
		"username": account.Username,
	})
	return nil
}

// CollectHome collects tweets from the home timeline
func (s *Scraper) CollectHome(ctx context.Context, opts collect.Options) (models.CollectionResult, error) {
	return s.collectTweets(ctx, HomeURL, opts)
}

// CollectSearch collects tweets from a live search for query
func (s *Scraper) CollectSearch(ctx context.Context, query string, opts collect.Options) (models.CollectionResult, error) {
	return s.collectTweets(ctx, SearchURL(query), opts)
}

// CollectProfile collects tweets from a user's profile page
func (s *Scraper) CollectProfile(ctx context.Context, username string, opts collect.Options) (models.CollectionResult, error) {
	return s.collectTweets(ctx, ProfileURL(username), opts)
}

// CollectFollowers collects user cells from a user's followers page
func (s *Scraper) CollectFollowers(ctx context.Context, username string, opts collect.Options) (models.CollectionResult, error) {
	if err := s.open(ctx, FollowersURL(username), SelectorUserCell); err != nil {
		return models.CollectionResult{Error: err.Error()}, err
	}

	engine := collect.New(s.source(SelectorUserCell), UserExtractor(s.page), s.logger)
	return engine.Collect(ctx, opts)
}

// TweetSource returns the home-timeline source for session runs. It also
// serves as the session's feed refresher.
func (s *Scraper) TweetSource() *collect.PageSource {
	return s.source(SelectorTweet)
}

// TweetEngine returns a collection engine over the currently open tweet feed
func (s *Scraper) TweetEngine() *collect.Engine {
	return collect.New(s.TweetSource(), TweetExtractor(s.page), s.logger)
}

// UserSource returns the user-cell source for followers pages
func (s *Scraper) UserSource() *collect.PageSource {
	return s.source(SelectorUserCell)
}

// UserEngine returns a collection engine over the currently open user list
func (s *Scraper) UserEngine() *collect.Engine {
	return collect.New(s.UserSource(), UserExtractor(s.page), s.logger)
}

// OpenHome navigates to the home timeline and waits for tweets to render
func (s *Scraper) OpenHome(ctx context.Context) error {
	return s.open(ctx, HomeURL, SelectorTweet)
}

// OpenSearch navigates to a live search and waits for tweets to render
func (s *Scraper) OpenSearch(ctx context.Context, query string) error {
	return s.open(ctx, SearchURL(query), SelectorTweet)
}

// OpenProfile navigates to a user's profile and waits for tweets to render
func (s *Scraper) OpenProfile(ctx context.Context, username string) error {
	return s.open(ctx, ProfileURL(username), SelectorTweet)
}

// OpenFollowers navigates to a user's followers list and waits for user
// cells to render
func (s *Scraper) OpenFollowers(ctx context.Context, username string) error {
	return s.open(ctx, FollowersURL(username), SelectorUserCell)
}

func (s *Scraper) collectTweets(ctx context.Context, url string, opts collect.Options) (models.CollectionResult, error) {
	if err := s.open(ctx, url, SelectorTweet); err != nil {
		return models.CollectionResult{Error: err.Error()}, err
	}

	engine := collect.New(s.source(SelectorTweet), TweetExtractor(s.page), s.logger)
	return engine.Collect(ctx, opts)
}

// open navigates to url and waits for the feed selector to appear. An empty
// feed is not an error; collection simply stalls out.
func (s *Scraper) open(ctx context.Context, url, selector string) error {
	if err := s.page.Navigate(ctx, url); err != nil {
		return err
	}

	timeout := s.cfg.Browser.WaitTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	found, err := s.page.WaitFor(ctx, selector, timeout)
	if err != nil {
		return errs.NewSourceUnavailable("feed did not render", err)
	}
	if !found {
		s.logger.WarnWithFields("feed rendered no candidates", map[string]interface{}{
			"url":      url,
			"selector": selector,
		})
	}
	return nil
}

func (s *Scraper) source(selector string) *collect.PageSource {
	return &collect.PageSource{
		Page:         s.page,
		Selector:     selector,
		ScrollPixels: s.cfg.Browser.ScrollPixels,
	}
}
