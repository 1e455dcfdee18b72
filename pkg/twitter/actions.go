package twitter

import (
	"context"
	"strings"
	"time"

	"feedbot/pkg/browser"
	errs "feedbot/pkg/errors"
	"feedbot/pkg/logger"
	"feedbot/pkg/models"
	"feedbot/pkg/session"
	"feedbot/pkg/textgen"
)

const modalTimeout = 5 * time.Second

// LikeAction likes the tweet identified by the candidate item
type LikeAction struct {
	page   browser.Page
	logger logger.Logger
}

// NewLikeAction creates a like action over page
func NewLikeAction(page browser.Page, log logger.Logger) *LikeAction {
	if log == nil {
		log = logger.GetLogger()
	}
	return &LikeAction{page: page, logger: log}
}

func (a *LikeAction) Name() string { return "like" }

func (a *LikeAction) Perform(ctx context.Context, item models.CandidateItem) error {
	tweet, err := findTweet(ctx, a.page, item.ID)
	if err != nil {
		return err
	}

	button, found, err := a.page.QueryOne(ctx, tweet, SelectorLikeButton)
	if err != nil {
		return errs.NewAction("failed to locate like button", err)
	}
	if !found {
		// An unlike button in its place means the tweet is already liked.
		if _, liked, _ := a.page.QueryOne(ctx, tweet, SelectorUnlikeButton); liked {
			a.logger.DebugWithFields("already liked", map[string]interface{}{
				"item_id": item.ID,
			})
			return nil
		}
		return errs.NewAction("tweet has no like button", nil)
	}

	return a.page.Click(ctx, button)
}

// RepostAction reposts the tweet identified by the candidate item. The web
// client confirms reposts through a menu, so this is a two-click action.
type RepostAction struct {
	page   browser.Page
	logger logger.Logger
}

// NewRepostAction creates a repost action over page
func NewRepostAction(page browser.Page, log logger.Logger) *RepostAction {
	if log == nil {
		log = logger.GetLogger()
	}
	return &RepostAction{page: page, logger: log}
}

func (a *RepostAction) Name() string { return "repost" }

func (a *RepostAction) Perform(ctx context.Context, item models.CandidateItem) error {
	tweet, err := findTweet(ctx, a.page, item.ID)
	if err != nil {
		return err
	}

	button, found, err := a.page.QueryOne(ctx, tweet, SelectorRepostButton)
	if err != nil {
		return errs.NewAction("failed to locate repost button", err)
	}
	if !found {
		return errs.NewAction("tweet has no repost button", nil)
	}
	if err := a.page.Click(ctx, button); err != nil {
		return err
	}

	confirm, err := waitForModal(ctx, a.page, SelectorRepostConfirm)
	if err != nil {
		return err
	}
	return a.page.Click(ctx, confirm)
}

// CommentAction generates a reply with the configured text provider and
// posts it under the tweet.
type CommentAction struct {
	page     browser.Page
	provider textgen.Provider
	logger   logger.Logger
}

// NewCommentAction creates a comment action over page using provider
func NewCommentAction(page browser.Page, provider textgen.Provider, log logger.Logger) *CommentAction {
	if log == nil {
		log = logger.GetLogger()
	}
	return &CommentAction{page: page, provider: provider, logger: log}
}

func (a *CommentAction) Name() string { return "comment" }

func (a *CommentAction) Perform(ctx context.Context, item models.CandidateItem) error {
	// Generate before touching the UI so a provider failure leaves no
	// half-open reply dialog behind.
	comment, err := a.provider.GenerateComment(ctx, item)
	if err != nil {
		return err
	}

	tweet, err := findTweet(ctx, a.page, item.ID)
	if err != nil {
		return err
	}

	button, found, err := a.page.QueryOne(ctx, tweet, SelectorReplyButton)
	if err != nil {
		return errs.NewAction("failed to locate reply button", err)
	}
	if !found {
		return errs.NewAction("tweet has no reply button", nil)
	}
	if err := a.page.Click(ctx, button); err != nil {
		return err
	}

	input, err := waitForModal(ctx, a.page, SelectorReplyInput)
	if err != nil {
		return err
	}
	if err := a.page.Type(ctx, input, comment); err != nil {
		return err
	}

	submit, err := waitForModal(ctx, a.page, SelectorReplySubmit)
	if err != nil {
		return err
	}
	if err := a.page.Click(ctx, submit); err != nil {
		return err
	}

	a.logger.InfoWithFields("posted comment", map[string]interface{}{
		"item_id": item.ID,
		"length":  len(comment),
	})
	return nil
}

// FollowAction follows the user identified by the candidate item, from a
// followers-page user cell.
type FollowAction struct {
	page   browser.Page
	logger logger.Logger
}

// NewFollowAction creates a follow action over page
func NewFollowAction(page browser.Page, log logger.Logger) *FollowAction {
	if log == nil {
		log = logger.GetLogger()
	}
	return &FollowAction{page: page, logger: log}
}

func (a *FollowAction) Name() string { return "follow" }

func (a *FollowAction) Perform(ctx context.Context, item models.CandidateItem) error {
	cells, err := a.page.QueryAll(ctx, SelectorUserCell)
	if err != nil {
		return errs.NewAction("failed to query user cells", err)
	}

	for _, cell := range cells {
		link, found, err := a.page.QueryOne(ctx, cell, SelectorUserLink)
		if err != nil || !found {
			continue
		}
		href, ok, err := a.page.Attribute(ctx, link, "href")
		if err != nil || !ok || strings.TrimPrefix(href, "/") != item.ID {
			continue
		}

		button, found, err := a.page.QueryOne(ctx, cell, SelectorFollowButton)
		if err != nil {
			return errs.NewAction("failed to locate follow button", err)
		}
		if !found {
			// No follow button means the account is already followed.
			a.logger.DebugWithFields("already following", map[string]interface{}{
				"item_id": item.ID,
			})
			return nil
		}
		return a.page.Click(ctx, button)
	}

	return errs.NewAction("user cell not visible: "+item.ID, nil)
}

// findTweet locates the visible tweet article whose permalink carries the
// given status ID.
func findTweet(ctx context.Context, page browser.Page, id string) (browser.Element, error) {
	tweets, err := page.QueryAll(ctx, SelectorTweet)
	if err != nil {
		return nil, errs.NewAction("failed to query tweets", err)
	}

	marker := "/status/" + id
	for _, tweet := range tweets {
		link, found, err := page.QueryOne(ctx, tweet, SelectorPermalink)
		if err != nil || !found {
			continue
		}
		href, ok, err := page.Attribute(ctx, link, "href")
		if err != nil || !ok {
			continue
		}
		if strings.HasSuffix(href, marker) || strings.Contains(href, marker+"/") {
			return tweet, nil
		}
	}

	return nil, errs.NewAction("tweet not visible: "+id, nil)
}

// waitForModal waits for a modal element like a confirm dialog or reply
// composer and returns its handle.
func waitForModal(ctx context.Context, page browser.Page, selector string) (browser.Element, error) {
	found, err := page.WaitFor(ctx, selector, modalTimeout)
	if err != nil {
		return nil, errs.NewAction("failed waiting for "+selector, err)
	}
	if !found {
		return nil, errs.NewAction("element did not appear: "+selector, nil)
	}

	elements, err := page.QueryAll(ctx, selector)
	if err != nil || len(elements) == 0 {
		return nil, errs.NewAction("element did not appear: "+selector, err)
	}
	return elements[0], nil
}

var (
	_ session.Action = (*LikeAction)(nil)
	_ session.Action = (*RepostAction)(nil)
	_ session.Action = (*CommentAction)(nil)
	_ session.Action = (*FollowAction)(nil)
)
