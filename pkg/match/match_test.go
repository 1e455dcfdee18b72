package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"feedbot/pkg/models"
)

func intPtr(v int) *int { return &v }

func TestDefaultAllowWhenUnconfigured(t *testing.T) {
	item := models.CandidateItem{ID: "1", Text: "anything at all", Author: "someone"}

	ok, reason := Matches(item, FilterConfig{})

	assert.True(t, ok)
	assert.Equal(t, "no targeting", reason)
}

func TestNoMatchWhenAllowRulesMiss(t *testing.T) {
	item := models.CandidateItem{ID: "1", Text: "a post about cooking", Author: "chef"}
	filter := FilterConfig{Keywords: []string{"golang"}}

	ok, reason := Matches(item, filter)

	assert.False(t, ok)
	assert.Equal(t, "no match", reason)
}

func TestExclusionsWinOverAllowRules(t *testing.T) {
	item := models.CandidateItem{ID: "1", Text: "golang giveaway inside", Author: "dev"}
	filter := FilterConfig{
		Keywords:        []string{"golang"},
		BlockedKeywords: []string{"giveaway"},
	}

	ok, reason := Matches(item, filter)

	assert.False(t, ok, "an item matching both an allow and a deny keyword must be denied")
	assert.Contains(t, reason, "blocked keyword")
}

func TestBlockedUser(t *testing.T) {
	item := models.CandidateItem{ID: "1", Text: "golang tips", Author: "SpamBot"}
	filter := FilterConfig{
		Keywords:     []string{"golang"},
		BlockedUsers: []string{"@spambot"},
	}

	ok, reason := Matches(item, filter)

	assert.False(t, ok)
	assert.Contains(t, reason, "blocked user")
}

func TestTargetUserBeatsKeyword(t *testing.T) {
	item := models.CandidateItem{ID: "1", Text: "talking about golang", Author: "GoTeam"}
	filter := FilterConfig{
		TargetUsers: []string{"goteam"},
		Keywords:    []string{"golang"},
	}

	ok, reason := Matches(item, filter)

	assert.True(t, ok)
	assert.Contains(t, reason, "target user", "target user rule is evaluated before keywords")
}

func TestKeywordSubstringMatch(t *testing.T) {
	item := models.CandidateItem{ID: "1", Text: "I love GoLang so much"}
	filter := FilterConfig{Keywords: []string{"golang"}}

	ok, reason := Matches(item, filter)

	assert.True(t, ok)
	assert.Contains(t, reason, "keyword")
}

func TestHashtagMatch(t *testing.T) {
	item := models.CandidateItem{ID: "1", Text: "new post", Hashtags: []string{"#Golang", "#news"}}
	filter := FilterConfig{Hashtags: []string{"golang"}}

	ok, reason := Matches(item, filter)

	assert.True(t, ok)
	assert.Contains(t, reason, "hashtag")
}

func TestFlagExclusions(t *testing.T) {
	tests := []struct {
		name   string
		item   models.CandidateItem
		filter FilterConfig
		want   bool
		reason string
	}{
		{
			name:   "repost excluded",
			item:   models.CandidateItem{ID: "1", Text: "x", Flags: map[string]bool{models.FlagRepost: true}},
			filter: FilterConfig{ExcludeReposts: true},
			want:   false,
			reason: "repost excluded",
		},
		{
			name:   "reply excluded",
			item:   models.CandidateItem{ID: "1", Text: "x", Flags: map[string]bool{models.FlagReply: true}},
			filter: FilterConfig{ExcludeReplies: true},
			want:   false,
			reason: "reply excluded",
		},
		{
			name:   "text required",
			item:   models.CandidateItem{ID: "1", Text: "   "},
			filter: FilterConfig{RequireText: true},
			want:   false,
			reason: "no text",
		},
		{
			name:   "repost allowed when not excluded",
			item:   models.CandidateItem{ID: "1", Text: "x", Flags: map[string]bool{models.FlagRepost: true}},
			filter: FilterConfig{},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Matches(tt.item, tt.filter)
			assert.Equal(t, tt.want, ok)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, reason)
			}
		})
	}
}

func TestNumericBounds(t *testing.T) {
	item := models.CandidateItem{
		ID:      "1",
		Text:    "post",
		Metrics: map[string]int{models.MetricLikes: 50},
	}

	ok, reason := Matches(item, FilterConfig{
		Bounds: []Bound{{Metric: models.MetricLikes, Min: intPtr(100)}},
	})
	assert.False(t, ok)
	assert.Contains(t, reason, "below min")

	ok, reason = Matches(item, FilterConfig{
		Bounds: []Bound{{Metric: models.MetricLikes, Max: intPtr(10)}},
	})
	assert.False(t, ok)
	assert.Contains(t, reason, "above max")

	ok, _ = Matches(item, FilterConfig{
		Bounds: []Bound{{Metric: models.MetricLikes, Min: intPtr(10), Max: intPtr(100)}},
	})
	assert.True(t, ok)
}

func TestBoundOnUnrecordedMetricIsIgnored(t *testing.T) {
	item := models.CandidateItem{ID: "1", Text: "post"}

	ok, _ := Matches(item, FilterConfig{
		Bounds: []Bound{{Metric: models.MetricFollowers, Min: intPtr(100)}},
	})

	assert.True(t, ok)
}

func TestValidate(t *testing.T) {
	valid := FilterConfig{
		Bounds: []Bound{{Metric: models.MetricLikes, Min: intPtr(1), Max: intPtr(10)}},
	}
	assert.NoError(t, valid.Validate())

	inverted := FilterConfig{
		Bounds: []Bound{{Metric: models.MetricLikes, Min: intPtr(10), Max: intPtr(1)}},
	}
	assert.Error(t, inverted.Validate())

	unnamed := FilterConfig{Bounds: []Bound{{}}}
	assert.Error(t, unnamed.Validate())
}
