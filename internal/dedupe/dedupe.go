// Package dedupe filters repeated usage records. The same request shows up
// more than once when logs are re-read or a session file is copied between
// machines; the natural key keeps exactly one copy.
package dedupe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cclens/cclens/internal/model"
)

// Key returns the stable identity for an event: messageID:requestID when
// both are present, otherwise a composite of the fields that make a record
// distinguishable. The composite is deterministic, so re-running over the
// same logs dedupes identically.
func Key(e model.UsageEvent) string {
	if e.MessageID != "" && e.RequestID != "" {
		return e.MessageID + ":" + e.RequestID
	}
	var b strings.Builder
	b.WriteString(e.SessionID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(e.Timestamp.UnixNano(), 10))
	b.WriteByte('|')
	b.WriteString(e.Model)
	b.WriteByte('|')
	fmt.Fprintf(&b, "%d|%d|%d|%d",
		e.Tokens.InputTokens, e.Tokens.OutputTokens,
		e.Tokens.CacheCreationTokens, e.Tokens.CacheReadTokens)
	return b.String()
}

// Set tracks which event keys have been observed. Not safe for concurrent
// use; own one per pipeline.
type Set struct {
	seen map[string]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Observe records the event and reports whether it was seen for the first
// time.
func (s *Set) Observe(e model.UsageEvent) bool {
	k := Key(e)
	if _, dup := s.seen[k]; dup {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Len returns the number of distinct events observed.
func (s *Set) Len() int {
	return len(s.seen)
}

// Filter returns the events that have not been observed before, observing
// them as it goes.
func (s *Set) Filter(events []model.UsageEvent) []model.UsageEvent {
	out := events[:0:0]
	for _, e := range events {
		if s.Observe(e) {
			out = append(out, e)
		}
	}
	return out
}
