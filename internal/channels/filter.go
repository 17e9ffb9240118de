// Package channels selects Slack channels by glob patterns over their names
// and IDs.
package channels

import (
	"path"
	"strings"

	"github.com/chrisedwards/slackmanager/internal/slack"
)

// Filter applies include/exclude patterns to a list of channels.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter creates a Filter with the given include and exclude patterns.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{
		include: include,
		exclude: exclude,
	}
}

// Apply returns the channels whose name or ID matches an include pattern
// (or all, when there are none) and matches no exclude pattern. Exclusion
// wins over inclusion. Order is preserved.
func (f *Filter) Apply(channels []slack.Channel) []slack.Channel {
	out := make([]slack.Channel, 0, len(channels))
	for _, ch := range channels {
		if f.matchValues(ch.Name, ch.ID) {
			out = append(out, ch)
		}
	}
	return out
}

// Include returns the include patterns.
func (f *Filter) Include() []string { return f.include }

// Exclude returns the exclude patterns.
func (f *Filter) Exclude() []string { return f.exclude }

// Empty reports whether the filter has no patterns and so keeps everything.
func (f *Filter) Empty() bool {
	return len(f.include) == 0 && len(f.exclude) == 0
}

// matchValues reports whether any of values is included and none excluded.
// An empty include list includes everything.
func (f *Filter) matchValues(values ...string) bool {
	included := len(f.include) == 0
	for _, v := range values {
		if MatchAny(f.exclude, v) {
			return false
		}
		if !included && MatchAny(f.include, v) {
			included = true
		}
	}
	return included
}

// MatchAny checks if a value matches any pattern in a list.
// Returns true if any pattern matches, false for empty pattern list.
// Short-circuits on first match.
func MatchAny(patterns []string, value string) bool {
	for _, pattern := range patterns {
		if MatchPattern(pattern, value) {
			return true
		}
	}
	return false
}

// MatchPattern matches a value against a glob pattern.
// Supports glob patterns (* matches any sequence, ? matches single character).
// Matching is case-insensitive. Returns false for invalid patterns.
func MatchPattern(pattern, value string) bool {
	matched, err := path.Match(pattern, value)
	if err != nil {
		return false
	}
	if matched {
		return true
	}
	lowerPattern := strings.ToLower(pattern)
	lowerValue := strings.ToLower(value)
	matched, _ = path.Match(lowerPattern, lowerValue)
	return matched
}
