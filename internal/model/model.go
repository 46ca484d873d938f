// Package model defines the domain types used across the application.
package model

import "time"

// Feed represents a subscribed feed.
// Armed is false for a freshly added feed: its first poll records entries as
// a baseline without alerting, then the flag flips to true.
type Feed struct {
	ID        int64
	Name      string
	URL       string
	Enabled   bool
	Armed     bool
	CreatedAt time.Time
}

// Rule represents a keyword rule. A nil FeedID applies the rule to every
// feed; a non-nil FeedID restricts it to that feed's items.
type Rule struct {
	ID        int64
	Keyword   string
	FeedID    *int64
	Enabled   bool
	CreatedAt time.Time
}

// Entry is a feed item recorded after matching at least one rule.
// (FeedID, EntryKey) is unique: an item is never recorded twice per feed.
type Entry struct {
	ID        int64
	FeedID    int64
	EntryKey  string
	Link      string
	Title     string
	Published *string
	Summary   *string
	SeenAt    time.Time
}

// Alert is one (entry, rule) firing event. (EntryID, RuleID) is unique:
// a rule fires on a given entry at most once, ever.
type Alert struct {
	ID        int64
	EntryID   int64
	RuleID    int64
	Keyword   string
	CreatedAt time.Time
}

// AlertView is an alert joined with its entry and feed, as shown to the
// dashboard.
type AlertView struct {
	ID        int64
	Keyword   string
	Title     string
	Link      string
	FeedName  string
	CreatedAt time.Time
}

// Match is one rule firing against an item's text.
type Match struct {
	RuleID  int64
	Keyword string
}

// LogRecord is one row of the bounded application log. TS is assigned by
// the store on write.
type LogRecord struct {
	TS        time.Time
	Level     string
	Area      string
	Message   string
	FeedID    *int64
	RuleID    *int64
	EntryLink string
	Err       string
}
