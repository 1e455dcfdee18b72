// Package twitter is the site glue: URL builders and DOM selectors for the
// web client, goquery-based extractors, a Scraper composing a browser page
// with the collection engine, and the engagement actions the session
// controller performs.
package twitter

import (
	"fmt"
	"net/url"
)

// URLs of the web client
const (
	BaseURL    = "https://x.com"
	HomeURL    = BaseURL + "/home"
	ExploreURL = BaseURL + "/explore"
)

// SearchURL returns the live-search result page for query
func SearchURL(query string) string {
	return fmt.Sprintf("%s/search?q=%s&f=live", BaseURL, url.QueryEscape(query))
}

// ProfileURL returns the profile page for username
func ProfileURL(username string) string {
	return BaseURL + "/" + username
}

// FollowersURL returns the followers list page for username
func FollowersURL(username string) string {
	return BaseURL + "/" + username + "/followers"
}

// DOM selectors for the web client. The data-testid attributes are the most
// stable hooks the client exposes; everything else changes between deploys.
const (
	SelectorTweet         = `article[data-testid="tweet"]`
	SelectorTweetText     = `div[data-testid="tweetText"]`
	SelectorUserName      = `div[data-testid="User-Name"]`
	SelectorSocialContext = `span[data-testid="socialContext"]`
	SelectorPermalink     = `a[href*="/status/"]`

	SelectorLikeButton    = `button[data-testid="like"]`
	SelectorUnlikeButton  = `button[data-testid="unlike"]`
	SelectorRepostButton  = `button[data-testid="retweet"]`
	SelectorRepostConfirm = `div[data-testid="retweetConfirm"]`
	SelectorReplyButton   = `button[data-testid="reply"]`
	SelectorReplyInput    = `div[data-testid="tweetTextarea_0"]`
	SelectorReplySubmit   = `button[data-testid="tweetButton"]`

	SelectorUserCell     = `button[data-testid="UserCell"]`
	SelectorUserLink     = `a[role="link"]`
	SelectorFollowButton = `button[data-testid$="-follow"]`

	SelectorPrimaryColumn = `div[data-testid="primaryColumn"]`
)
