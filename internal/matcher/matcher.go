// Package matcher evaluates keyword rules against feed item text.
package matcher

import (
	"regexp"
	"strings"

	"github.com/cjwillin/rss-watcher/internal/model"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize collapses internal whitespace runs to a single space and trims
// the ends. Matching always uses the normalized form.
func Normalize(keyword string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(keyword), " ")
}

// Find returns the rules that fire for an item, in rule order.
// Matching is case-insensitive substring containment of the normalized
// keyword. Rules scoped to a different feed never fire; a rule with a nil
// feed ID applies to every feed. Rules with empty normalized keywords are
// skipped.
func Find(feedID int64, text string, rules []model.Rule) []model.Match {
	hay := strings.ToLower(text)
	var out []model.Match
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		kw := Normalize(r.Keyword)
		if kw == "" {
			continue
		}
		if r.FeedID != nil && *r.FeedID != feedID {
			continue
		}
		if strings.Contains(hay, strings.ToLower(kw)) {
			out = append(out, model.Match{RuleID: r.ID, Keyword: kw})
		}
	}
	return out
}
