package runner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedbot/pkg/auth"
	"feedbot/pkg/browser"
	"feedbot/pkg/config"
	"feedbot/pkg/logger"
	"feedbot/pkg/session"
	"feedbot/pkg/storage"
	"feedbot/pkg/twitter"
	"feedbot/pkg/ui"
)

func TestMain(m *testing.M) {
	// Keep the default progress display from writing over test output.
	ui.SetQuietMode(true)
	os.Exit(m.Run())
}

func serviceTweet(id string) *browser.MockElement {
	return &browser.MockElement{
		ElemID: "tweet-" + id,
		HTML: `<article data-testid="tweet">` +
			`<a href="/someone/status/` + id + `"><time>1h</time></a>` +
			`<div data-testid="tweetText">post ` + id + `</div>` +
			`</article>`,
		Children: map[string]*browser.MockElement{
			twitter.SelectorPermalink: {
				ElemID: "link-" + id,
				Attrs:  map[string]string{"href": "/someone/status/" + id},
			},
			twitter.SelectorLikeButton: {ElemID: "like-" + id},
		},
	}
}

func serviceConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RateLimit.MaxPerSession = 2
	cfg.RateLimit.MinActionDelay = 0
	cfg.RateLimit.MaxActionDelay = 0
	cfg.Session.Duration = 0
	cfg.Session.BatchLimit = 10
	cfg.Session.StallRounds = 1
	cfg.Session.MaxRounds = 3
	cfg.Session.PollInterval = time.Millisecond
	cfg.Output.BaseDirectory = t.TempDir()
	return cfg
}

func testAccount() *auth.Account {
	return &auth.Account{Username: "tester", AuthToken: "tok", CSRFToken: "csrf"}
}

func TestServiceRunSessionLikesUpToCap(t *testing.T) {
	page := browser.NewMockPage([]*browser.MockElement{
		serviceTweet("1"), serviceTweet("2"), serviceTweet("3"),
	})

	svc, err := NewService(ServiceParams{
		Config:  serviceConfig(t),
		Account: testAccount(),
		Action:  "like",
		NewPage: func(ctx context.Context) (browser.Page, error) { return page, nil },
		Logger:  logger.NewTestLogger(),
	})
	require.NoError(t, err)

	result, err := svc.RunSession(context.Background(), Target{Kind: "home"})

	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, []string{"1", "2"}, result.ActedIDs)
	assert.Equal(t, []string{"like-1", "like-2"}, page.ClickedIDs)
	assert.True(t, page.Closed)
}

func TestServiceRunSessionExportsResult(t *testing.T) {
	page := browser.NewMockPage([]*browser.MockElement{serviceTweet("1")})
	cfg := serviceConfig(t)
	store, err := storage.NewManager(cfg.Output.BaseDirectory, false)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Config:  cfg,
		Account: testAccount(),
		Action:  "like",
		Store:   store,
		NewPage: func(ctx context.Context) (browser.Page, error) { return page, nil },
		Logger:  logger.NewTestLogger(),
	})
	require.NoError(t, err)

	_, err = svc.RunSession(context.Background(), Target{Kind: "home"})
	require.NoError(t, err)

	files, err := store.ListResults("tester")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestServiceSearchTargetNavigates(t *testing.T) {
	page := browser.NewMockPage([]*browser.MockElement{serviceTweet("1")})

	svc, err := NewService(ServiceParams{
		Config:  serviceConfig(t),
		Account: testAccount(),
		Action:  "like",
		NewPage: func(ctx context.Context) (browser.Page, error) { return page, nil },
		Logger:  logger.NewTestLogger(),
	})
	require.NoError(t, err)

	_, err = svc.RunSession(context.Background(), Target{Kind: "search", Query: "golang"})
	require.NoError(t, err)

	// Authenticate loads home first, then the search feed opens.
	require.Len(t, page.NavigatedURLs, 2)
	assert.Contains(t, page.NavigatedURLs[1], "q=golang")
}

// recordingProgress captures session progress notifications
type recordingProgress struct {
	completed []string
	skipped   []string
	finished  bool
}

func (p *recordingProgress) StartItem(id string)                 {}
func (p *recordingProgress) CompleteAction(id string)            { p.completed = append(p.completed, id) }
func (p *recordingProgress) SkipItem(id, reason string)          { p.skipped = append(p.skipped, id) }
func (p *recordingProgress) FailAction(id string, err error)     {}
func (p *recordingProgress) RateLimitWarning(wait time.Duration) {}
func (p *recordingProgress) Complete()                           { p.finished = true }

func TestServiceRunSessionReportsProgress(t *testing.T) {
	page := browser.NewMockPage([]*browser.MockElement{
		serviceTweet("1"), serviceTweet("2"),
	})

	progress := &recordingProgress{}
	var progressTarget string

	svc, err := NewService(ServiceParams{
		Config:  serviceConfig(t),
		Account: testAccount(),
		Action:  "like",
		NewPage: func(ctx context.Context) (browser.Page, error) { return page, nil },
		NewProgress: func(target string) session.Progress {
			progressTarget = target
			return progress
		},
		Logger: logger.NewTestLogger(),
	})
	require.NoError(t, err)

	_, err = svc.RunSession(context.Background(), Target{Kind: "home"})
	require.NoError(t, err)

	assert.Equal(t, "home", progressTarget)
	assert.Equal(t, []string{"1", "2"}, progress.completed)
	assert.True(t, progress.finished)
}

func TestNewServiceRejectsUnknownAction(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:  serviceConfig(t),
		Account: testAccount(),
		Action:  "poke",
		Logger:  logger.NewTestLogger(),
	})
	require.Error(t, err)
}

func TestNewServiceCommentNeedsProvider(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:  serviceConfig(t),
		Account: testAccount(),
		Action:  "comment",
		Logger:  logger.NewTestLogger(),
	})
	require.Error(t, err)
}
