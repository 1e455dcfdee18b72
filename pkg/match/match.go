package match

import (
	"fmt"
	"strings"

	"feedbot/pkg/models"
)

// Bound is an inclusive numeric constraint on a named item metric. A nil
// Min or Max leaves that side unbounded.
type Bound struct {
	Metric string `yaml:"metric" json:"metric"`
	Min    *int   `yaml:"min,omitempty" json:"min,omitempty"`
	Max    *int   `yaml:"max,omitempty" json:"max,omitempty"`
}

// FilterConfig is an immutable rule set deciding which candidate items
// qualify for an automated action.
type FilterConfig struct {
	// Allow rules. When all three lists are empty no targeting is
	// configured and every item not excluded is allowed.
	TargetUsers []string `yaml:"target_users,omitempty" json:"target_users,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Hashtags    []string `yaml:"hashtags,omitempty" json:"hashtags,omitempty"`

	// Exclusions, checked before any allow rule.
	BlockedUsers    []string `yaml:"blocked_users,omitempty" json:"blocked_users,omitempty"`
	BlockedKeywords []string `yaml:"blocked_keywords,omitempty" json:"blocked_keywords,omitempty"`
	ExcludeReposts  bool     `yaml:"exclude_reposts" json:"exclude_reposts"`
	ExcludeReplies  bool     `yaml:"exclude_replies" json:"exclude_replies"`
	RequireText     bool     `yaml:"require_text" json:"require_text"`
	Bounds          []Bound  `yaml:"bounds,omitempty" json:"bounds,omitempty"`
}

// HasAllowRules reports whether any targeting is configured
func (f FilterConfig) HasAllowRules() bool {
	return len(f.TargetUsers) > 0 || len(f.Keywords) > 0 || len(f.Hashtags) > 0
}

// Matches decides whether item qualifies for an action under filter.
//
// Exclusions are evaluated first and any hit denies immediately. Allow rules
// are then evaluated in order: target user, keyword, hashtag. When no allow
// rules are configured at all the item is allowed by default.
func Matches(item models.CandidateItem, filter FilterConfig) (bool, string) {
	if ok, reason := checkExclusions(item, filter); !ok {
		return false, reason
	}

	if !filter.HasAllowRules() {
		return true, "no targeting"
	}

	author := strings.ToLower(item.Author)
	for _, user := range filter.TargetUsers {
		if author == strings.ToLower(strings.TrimPrefix(user, "@")) {
			return true, fmt.Sprintf("target user %q", user)
		}
	}

	text := strings.ToLower(item.Text)
	for _, kw := range filter.Keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true, fmt.Sprintf("keyword %q", kw)
		}
	}

	for _, tag := range filter.Hashtags {
		want := strings.ToLower(strings.TrimPrefix(tag, "#"))
		for _, have := range item.Hashtags {
			if strings.ToLower(strings.TrimPrefix(have, "#")) == want {
				return true, fmt.Sprintf("hashtag %q", tag)
			}
		}
	}

	return false, "no match"
}

// checkExclusions returns (false, reason) on the first matching deny rule
func checkExclusions(item models.CandidateItem, filter FilterConfig) (bool, string) {
	author := strings.ToLower(item.Author)
	for _, user := range filter.BlockedUsers {
		if author == strings.ToLower(strings.TrimPrefix(user, "@")) {
			return false, fmt.Sprintf("blocked user %q", user)
		}
	}

	text := strings.ToLower(item.Text)
	for _, kw := range filter.BlockedKeywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return false, fmt.Sprintf("blocked keyword %q", kw)
		}
	}

	if filter.ExcludeReposts && item.Flag(models.FlagRepost) {
		return false, "repost excluded"
	}
	if filter.ExcludeReplies && item.Flag(models.FlagReply) {
		return false, "reply excluded"
	}
	if filter.RequireText && strings.TrimSpace(item.Text) == "" {
		return false, "no text"
	}

	for _, b := range filter.Bounds {
		value, ok := item.Metric(b.Metric)
		if !ok {
			// A bound on a metric the extractor did not record cannot
			// be evaluated and does not exclude the item.
			continue
		}
		if b.Min != nil && value < *b.Min {
			return false, fmt.Sprintf("%s %d below min %d", b.Metric, value, *b.Min)
		}
		if b.Max != nil && value > *b.Max {
			return false, fmt.Sprintf("%s %d above max %d", b.Metric, value, *b.Max)
		}
	}

	return true, ""
}

// Validate checks the rule set for contradictions that would make a run
// impossible to configure correctly
func (f FilterConfig) Validate() error {
	for _, b := range f.Bounds {
		if b.Metric == "" {
			return fmt.Errorf("bound with empty metric name")
		}
		if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			return fmt.Errorf("bound on %q: min %d greater than max %d", b.Metric, *b.Min, *b.Max)
		}
	}
	return nil
}
