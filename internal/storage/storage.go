// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"github.com/cjwillin/rss-watcher/internal/model"
)

// Storage is the interface for all persistence operations.
// Every method runs as its own short-lived transaction: a crash mid-cycle
// leaves previously committed entries and alerts intact.
type Storage interface {
	CreateFeed(ctx context.Context, feed *model.Feed) error
	GetFeed(ctx context.Context, id int64) (*model.Feed, error)
	ListFeeds(ctx context.Context) ([]model.Feed, error)
	ListEnabledFeeds(ctx context.Context) ([]model.Feed, error)
	UpdateFeed(ctx context.Context, feed *model.Feed) error
	SetFeedEnabled(ctx context.Context, id int64, enabled bool) error
	MarkFeedArmed(ctx context.Context, id int64) error
	DeleteFeed(ctx context.Context, id int64) error

	CreateRule(ctx context.Context, rule *model.Rule) error
	ListRules(ctx context.Context) ([]model.Rule, error)
	ListEnabledRules(ctx context.Context) ([]model.Rule, error)
	SetRuleEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteRule(ctx context.Context, id int64) error

	// InsertEntryIfAbsent records an entry keyed by (feed_id, entry_key).
	// A duplicate key is not an error: the existing row's ID is returned
	// with wasNew=false.
	InsertEntryIfAbsent(ctx context.Context, entry *model.Entry) (id int64, wasNew bool, err error)
	GetEntryID(ctx context.Context, feedID int64, entryKey string) (int64, bool, error)

	// InsertAlertIfAbsent records an alert keyed by (entry_id, rule_id).
	// A duplicate key is not an error and returns wasNew=false.
	InsertAlertIfAbsent(ctx context.Context, entryID, ruleID int64, keyword string) (id int64, wasNew bool, err error)
	ListRecentAlerts(ctx context.Context, limit int) ([]model.AlertView, error)

	GetSetting(ctx context.Context, key, fallback string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	AppendLog(ctx context.Context, rec model.LogRecord) error
	ListRecentLogs(ctx context.Context, limit int) ([]model.LogRecord, error)

	Close() error
}
