// Package watcher implements the poll cycle: fetch each enabled feed,
// detect new entries, match rules, record alerts, and notify.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cjwillin/rss-watcher/internal/feed"
	"github.com/cjwillin/rss-watcher/internal/matcher"
	"github.com/cjwillin/rss-watcher/internal/model"
	"github.com/cjwillin/rss-watcher/internal/notify"
	"github.com/cjwillin/rss-watcher/internal/storage"
)

// Fetcher downloads raw feed content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Parser converts raw feed content into items. Unparsable input yields an
// empty item list.
type Parser interface {
	Parse(data []byte) []feed.Item
}

// ChannelFactory resolves the configured notification channels for one
// cycle.
type ChannelFactory func(ctx context.Context, settings notify.Settings) ([]notify.Channel, error)

// Watcher runs poll cycles over the subscribed feeds.
type Watcher struct {
	store    storage.Storage
	fetcher  Fetcher
	parser   Parser
	channels ChannelFactory
	log      *slog.Logger
}

// New creates a Watcher with the default HTTP fetcher, feed parser, and
// notification channel resolution.
func New(store storage.Storage, log *slog.Logger) *Watcher {
	return &Watcher{
		store:    store,
		fetcher:  feed.NewFetcher(http.DefaultClient),
		parser:   feed.NewParser(),
		channels: notify.Channels,
		log:      log,
	}
}

// NewWithDeps creates a Watcher with injected collaborators (useful for
// testing).
func NewWithDeps(store storage.Storage, fetcher Fetcher, parser Parser, channels ChannelFactory, log *slog.Logger) *Watcher {
	return &Watcher{
		store:    store,
		fetcher:  fetcher,
		parser:   parser,
		channels: channels,
		log:      log,
	}
}

// PollOnce runs one full pass over all enabled feeds and returns the number
// of alerts newly created. One bad feed never aborts the cycle; each store
// write is its own transaction, so progress committed for earlier feeds
// survives a failure later in the cycle.
func (w *Watcher) PollOnce(ctx context.Context) (int, error) {
	channels, err := w.channels(ctx, w.store)
	if err != nil {
		// Incomplete or unreadable notification config only disables
		// delivery for this cycle.
		w.log.Warn("resolve notification channels", "error", err)
		channels = nil
	}

	feeds, err := w.store.ListEnabledFeeds(ctx)
	if err != nil {
		return 0, fmt.Errorf("list feeds: %w", err)
	}
	rules, err := w.store.ListEnabledRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}

	if len(feeds) == 0 || len(rules) == 0 {
		w.stamp(ctx, "last_poll_at")
		return 0, nil
	}

	w.appendLog(ctx, model.LogRecord{
		Level: "info", Area: "poll",
		Message: fmt.Sprintf("poll started: %d feeds, %d rules", len(feeds), len(rules)),
	})

	created := 0
	for _, f := range feeds {
		if ctx.Err() != nil {
			break
		}
		created += w.processFeed(ctx, f, rules, channels)
	}

	w.stamp(ctx, "last_poll_at")
	if created > 0 {
		w.stamp(ctx, "last_alert_at")
	}

	w.appendLog(ctx, model.LogRecord{
		Level: "info", Area: "poll",
		Message: fmt.Sprintf("poll finished: %d alerts created", created),
	})
	return created, nil
}

func (w *Watcher) processFeed(ctx context.Context, f model.Feed, rules []model.Rule, channels []notify.Channel) int {
	raw, err := w.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		w.log.Error("fetch feed", "feed_id", f.ID, "url", f.URL, "error", err)
		w.appendLog(ctx, model.LogRecord{
			Level:   "warn",
			Area:    "fetch",
			Message: "fetch failed: " + f.URL,
			FeedID:  &f.ID,
			Err:     err.Error(),
		})
		return 0
	}

	created := 0
	for _, item := range w.parser.Parse(raw) {
		created += w.processItem(ctx, f, item, rules, channels)
	}

	// First successful fetch establishes the baseline.
	if !f.Armed {
		if err := w.store.MarkFeedArmed(ctx, f.ID); err != nil {
			w.log.Error("mark feed armed", "feed_id", f.ID, "error", err)
		}
	}
	return created
}

func (w *Watcher) processItem(ctx context.Context, f model.Feed, item feed.Item, rules []model.Rule, channels []notify.Channel) int {
	matches := matcher.Find(f.ID, feed.Text(item), rules)
	if len(matches) == 0 {
		// Unmatched items are never persisted; storage stays bounded to
		// relevant content.
		return 0
	}

	entry := entryFromItem(f, item)
	entryID, _, err := w.store.InsertEntryIfAbsent(ctx, entry)
	if err != nil {
		w.log.Error("insert entry", "feed_id", f.ID, "entry_key", entry.EntryKey, "error", err)
		return 0
	}

	created := 0
	for _, m := range matches {
		_, wasNew, err := w.store.InsertAlertIfAbsent(ctx, entryID, m.RuleID, m.Keyword)
		if err != nil {
			w.log.Error("insert alert", "entry_id", entryID, "rule_id", m.RuleID, "error", err)
			continue
		}
		if !wasNew {
			continue
		}
		// An unarmed feed records its alerts silently: the first poll
		// baselines historical items without counting or notifying.
		if !f.Armed {
			continue
		}
		created++

		subject := fmt.Sprintf("RSS Watcher: %q in %s", m.Keyword, f.Name)
		body := fmt.Sprintf("%s\n\nFeed: %s\nKeyword: %s\nLink: %s", entry.Title, f.Name, m.Keyword, entry.Link)
		for _, ch := range channels {
			if err := ch.Send(ctx, subject, body, entry.Link); err != nil {
				w.log.Warn("send notification", "channel", ch.Name(), "entry_id", entryID, "error", err)
				w.appendLog(ctx, model.LogRecord{
					Level:     "warn",
					Area:      "notify",
					Message:   "delivery failed: " + ch.Name(),
					FeedID:    &f.ID,
					RuleID:    &m.RuleID,
					EntryLink: entry.Link,
					Err:       err.Error(),
				})
			}
		}
	}
	return created
}

func entryFromItem(f model.Feed, item feed.Item) *model.Entry {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		link = f.URL
	}
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "(untitled)"
	}

	entry := &model.Entry{
		FeedID:   f.ID,
		EntryKey: feed.Key(item),
		Link:     link,
		Title:    title,
	}
	if published := firstNonEmpty(item.Published, item.Updated); published != "" {
		entry.Published = &published
	}
	if summary := strings.TrimSpace(item.Summary); summary != "" {
		entry.Summary = &summary
	}
	return entry
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (w *Watcher) stamp(ctx context.Context, key string) {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := w.store.SetSetting(ctx, key, now); err != nil {
		w.log.Error("set setting", "key", key, "error", err)
	}
}

func (w *Watcher) appendLog(ctx context.Context, rec model.LogRecord) {
	if err := w.store.AppendLog(ctx, rec); err != nil {
		w.log.Error("append app log", "area", rec.Area, "error", err)
	}
}
