package twitter

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"feedbot/pkg/browser"
	"feedbot/pkg/collect"
	errs "feedbot/pkg/errors"
	"feedbot/pkg/models"
)

// TweetExtractor returns a collect.Extractor that serializes each tweet
// article and parses it with goquery.
func TweetExtractor(page browser.Page) collect.Extractor {
	return func(ctx context.Context, el browser.Element) (models.CandidateItem, error) {
		html, err := page.OuterHTML(ctx, el)
		if err != nil {
			return models.CandidateItem{}, errs.NewExtraction("failed to serialize tweet element", err)
		}
		return ParseTweet(html)
	}
}

// UserExtractor returns a collect.Extractor for user cells on followers and
// following pages.
func UserExtractor(page browser.Page) collect.Extractor {
	return func(ctx context.Context, el browser.Element) (models.CandidateItem, error) {
		html, err := page.OuterHTML(ctx, el)
		if err != nil {
			return models.CandidateItem{}, errs.NewExtraction("failed to serialize user cell", err)
		}
		return ParseUserCell(html)
	}
}

// ParseTweet extracts a candidate item from a tweet article's HTML. The
// tweet's status ID is the item ID.
func ParseTweet(html string) (models.CandidateItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.CandidateItem{}, errs.NewExtraction("unparseable tweet HTML", err)
	}

	permalink, id := findPermalink(doc)
	if id == "" {
		return models.CandidateItem{}, errs.NewExtraction("tweet has no status permalink", nil)
	}

	item := models.CandidateItem{
		ID:          id,
		Text:        strings.TrimSpace(doc.Find(SelectorTweetText).First().Text()),
		Author:      findAuthor(doc),
		URL:         BaseURL + permalink,
		Metrics:     map[string]int{},
		Flags:       map[string]bool{},
		CollectedAt: time.Now(),
	}

	doc.Find(`a[href^="/hashtag/"]`).Each(func(_ int, s *goquery.Selection) {
		tag := strings.TrimPrefix(strings.TrimSpace(s.Text()), "#")
		if tag != "" {
			item.Hashtags = append(item.Hashtags, tag)
		}
	})

	item.Metrics[models.MetricLikes] = parseCount(doc.Find(SelectorLikeButton).First().Text())
	item.Metrics[models.MetricReplies] = parseCount(doc.Find(SelectorReplyButton).First().Text())
	item.Metrics[models.MetricReposts] = parseCount(doc.Find(SelectorRepostButton).First().Text())

	if ctxText := doc.Find(SelectorSocialContext).First().Text(); ctxText != "" {
		item.Flags[models.FlagRepost] = strings.Contains(strings.ToLower(ctxText), "repost")
	}
	if strings.Contains(doc.Text(), "Replying to") {
		item.Flags[models.FlagReply] = true
	}
	if doc.Find(`div[data-testid="tweetPhoto"], div[data-testid="videoPlayer"]`).Length() > 0 {
		item.Flags[models.FlagHasMedia] = true
	}
	if doc.Find(`svg[data-testid="icon-verified"]`).Length() > 0 {
		item.Flags[models.FlagVerified] = true
	}

	return item, nil
}

// ParseUserCell extracts a candidate item from a followers-page user cell.
// The username (without @) is the item ID and author.
func ParseUserCell(html string) (models.CandidateItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.CandidateItem{}, errs.NewExtraction("unparseable user cell HTML", err)
	}

	href, ok := doc.Find(SelectorUserLink).First().Attr("href")
	if !ok {
		return models.CandidateItem{}, errs.NewExtraction("user cell has no profile link", nil)
	}
	username := strings.TrimPrefix(href, "/")
	if username == "" || strings.Contains(username, "/") {
		return models.CandidateItem{}, errs.NewExtraction("user cell link is not a profile", nil)
	}

	item := models.CandidateItem{
		ID:          username,
		Author:      username,
		URL:         BaseURL + href,
		Metrics:     map[string]int{},
		Flags:       map[string]bool{},
		CollectedAt: time.Now(),
	}

	// The bio, when present, is the cell text after the display name and
	// handle lines.
	if bio := strings.TrimSpace(doc.Find(`div[dir="auto"]`).Last().Text()); bio != "@"+username {
		item.Text = bio
	}
	if doc.Find(`svg[data-testid="icon-verified"]`).Length() > 0 {
		item.Flags[models.FlagVerified] = true
	}

	return item, nil
}

// findPermalink returns the status permalink path and the status ID
func findPermalink(doc *goquery.Document) (string, string) {
	var permalink, id string
	doc.Find(SelectorPermalink).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		idx := strings.Index(href, "/status/")
		if idx < 0 {
			return true
		}
		rest := href[idx+len("/status/"):]
		// Strip trailing segments like /photo/1 or /analytics.
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			rest = rest[:slash]
		}
		if rest == "" {
			return true
		}
		permalink = href[:idx+len("/status/")] + rest
		id = rest
		return false
	})
	return permalink, id
}

// findAuthor pulls the @handle out of the tweet header
func findAuthor(doc *goquery.Document) string {
	var author string
	doc.Find(SelectorUserName + ` a[role="link"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || strings.Contains(strings.TrimPrefix(href, "/"), "/") {
			return true
		}
		author = strings.TrimPrefix(href, "/")
		return false
	})
	return author
}

// parseCount parses an abbreviated engagement count like "3", "1,204",
// "1.2K" or "3.4M". Unparseable input counts as zero.
func parseCount(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		multiplier = 1e3
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		multiplier = 1e6
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(v * multiplier)
}
