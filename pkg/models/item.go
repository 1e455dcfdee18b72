package models

import "time"

// CandidateItem is one unit extracted from a feed, eligible for collection
// or an automated action. Items are never mutated after extraction.
type CandidateItem struct {
	ID          string          `json:"id"`
	Text        string          `json:"text,omitempty"`
	Author      string          `json:"author,omitempty"`
	Hashtags    []string        `json:"hashtags,omitempty"`
	Metrics     map[string]int  `json:"metrics,omitempty"`
	Flags       map[string]bool `json:"flags,omitempty"`
	URL         string          `json:"url,omitempty"`
	CollectedAt time.Time       `json:"collected_at"`
}

// Well-known flag names set by extractors.
const (
	FlagRepost   = "repost"
	FlagReply    = "reply"
	FlagHasMedia = "has_media"
	FlagVerified = "verified"
)

// Well-known metric names set by extractors.
const (
	MetricLikes     = "likes"
	MetricReplies   = "replies"
	MetricReposts   = "reposts"
	MetricFollowers = "followers"
)

// Metric returns the named metric and whether it was recorded at extraction
func (c CandidateItem) Metric(name string) (int, bool) {
	v, ok := c.Metrics[name]
	return v, ok
}

// Flag returns the named flag; unset flags are false
func (c CandidateItem) Flag(name string) bool {
	return c.Flags[name]
}

// SeenSet tracks identifiers already collected or acted upon within one run.
// It is owned exclusively by the run that created it and is not safe for
// concurrent use.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet creates an empty seen set
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Add records id and reports whether it was newly added
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id was already recorded
func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of recorded identifiers
func (s *SeenSet) Len() int {
	return len(s.ids)
}

// IDs returns the recorded identifiers in unspecified order
func (s *SeenSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
