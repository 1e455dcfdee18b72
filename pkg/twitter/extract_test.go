package twitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "feedbot/pkg/errors"
	"feedbot/pkg/models"
)

const tweetHTML = `
<article data-testid="tweet">
  <span data-testid="socialContext">Alice reposted</span>
  <div data-testid="User-Name">
    <a role="link" href="/gopher"><span>Gopher</span></a>
    <a role="link" href="/gopher/status/1234567890"><time>2h</time></a>
  </div>
  <div data-testid="tweetText">Shipping <a href="/hashtag/golang?src=hashtag_click">#golang</a> v2 today</div>
  <div data-testid="tweetPhoto"><img/></div>
  <button data-testid="reply"><span>12</span></button>
  <button data-testid="retweet"><span>1,204</span></button>
  <button data-testid="like"><span>1.2K</span></button>
</article>`

func TestParseTweet(t *testing.T) {
	item, err := ParseTweet(tweetHTML)
	require.NoError(t, err)

	assert.Equal(t, "1234567890", item.ID)
	assert.Equal(t, "gopher", item.Author)
	assert.Equal(t, "https://x.com/gopher/status/1234567890", item.URL)
	assert.Equal(t, "Shipping #golang v2 today", item.Text)
	assert.Equal(t, []string{"golang"}, item.Hashtags)

	assert.Equal(t, 1200, item.Metrics[models.MetricLikes])
	assert.Equal(t, 12, item.Metrics[models.MetricReplies])
	assert.Equal(t, 1204, item.Metrics[models.MetricReposts])

	assert.True(t, item.Flags[models.FlagRepost])
	assert.True(t, item.Flags[models.FlagHasMedia])
	assert.False(t, item.Flags[models.FlagReply])
	assert.False(t, item.Flags[models.FlagVerified])
}

func TestParseTweetStripsMediaPermalinkSegments(t *testing.T) {
	html := `
<article data-testid="tweet">
  <a href="/user/status/999/photo/1"><img/></a>
  <div data-testid="tweetText">look at this</div>
</article>`

	item, err := ParseTweet(html)
	require.NoError(t, err)
	assert.Equal(t, "999", item.ID)
	assert.Equal(t, "https://x.com/user/status/999", item.URL)
}

func TestParseTweetWithoutPermalink(t *testing.T) {
	_, err := ParseTweet(`<article data-testid="tweet"><div>placeholder</div></article>`)
	require.Error(t, err)
	assert.Equal(t, errs.KindExtraction, errs.KindOf(err))
}

func TestParseUserCell(t *testing.T) {
	html := `
<button data-testid="UserCell">
  <a role="link" href="/buildersan"><span>Builder</span></a>
  <div dir="auto">Infra and tooling posts</div>
</button>`

	item, err := ParseUserCell(html)
	require.NoError(t, err)
	assert.Equal(t, "buildersan", item.ID)
	assert.Equal(t, "buildersan", item.Author)
	assert.Equal(t, "https://x.com/buildersan", item.URL)
	assert.Equal(t, "Infra and tooling posts", item.Text)
}

func TestParseUserCellWithoutLink(t *testing.T) {
	_, err := ParseUserCell(`<button data-testid="UserCell"><span>pending</span></button>`)
	require.Error(t, err)
	assert.Equal(t, errs.KindExtraction, errs.KindOf(err))
}

func TestParseCount(t *testing.T) {
	cases := map[string]int{
		"":      0,
		"3":     3,
		"1,204": 1204,
		"1.2K":  1200,
		"12k":   12000,
		"3.4M":  3400000,
		"likes": 0,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseCount(in), "parseCount(%q)", in)
	}
}

func TestSearchURL(t *testing.T) {
	url := SearchURL("go generics")
	assert.Equal(t, "https://x.com/search?q=go+generics&f=live", url)
}
