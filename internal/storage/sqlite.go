package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"github.com/cjwillin/rss-watcher/internal/model"
	"github.com/cjwillin/rss-watcher/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// Log retention bounds applied by AppendLog.
const (
	defaultLogMaxRows = 2000
	minLogMaxRows     = 200
)

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateFeed inserts a new feed and populates its ID and CreatedAt.
func (s *SQLite) CreateFeed(ctx context.Context, feed *model.Feed) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feeds (name, url, enabled, armed, created_at) VALUES (?, ?, ?, ?, ?)`,
		feed.Name, feed.URL, boolToInt(feed.Enabled), boolToInt(feed.Armed), now,
	)
	if err != nil {
		return fmt.Errorf("insert feed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	feed.ID = id
	feed.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetFeed returns a single feed by its ID.
func (s *SQLite) GetFeed(ctx context.Context, id int64) (*model.Feed, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, enabled, armed, created_at FROM feeds WHERE id = ?`, id,
	)
	return scanFeed(row)
}

// ListFeeds returns all feeds in insertion order.
func (s *SQLite) ListFeeds(ctx context.Context) ([]model.Feed, error) {
	return s.queryFeeds(ctx,
		`SELECT id, name, url, enabled, armed, created_at FROM feeds ORDER BY id`)
}

// ListEnabledFeeds returns the feeds the poll cycle should visit.
func (s *SQLite) ListEnabledFeeds(ctx context.Context) ([]model.Feed, error) {
	return s.queryFeeds(ctx,
		`SELECT id, name, url, enabled, armed, created_at FROM feeds WHERE enabled = 1 ORDER BY id`)
}

func (s *SQLite) queryFeeds(ctx context.Context, query string) ([]model.Feed, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var feeds []model.Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *f)
	}
	return feeds, rows.Err()
}

// UpdateFeed persists changes to an existing feed.
func (s *SQLite) UpdateFeed(ctx context.Context, feed *model.Feed) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE feeds SET name = ?, url = ?, enabled = ?, armed = ? WHERE id = ?`,
		feed.Name, feed.URL, boolToInt(feed.Enabled), boolToInt(feed.Armed), feed.ID,
	)
	if err != nil {
		return fmt.Errorf("update feed: %w", err)
	}
	return nil
}

// SetFeedEnabled toggles a feed without touching its other fields.
func (s *SQLite) SetFeedEnabled(ctx context.Context, id int64, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE feeds SET enabled = ? WHERE id = ?`, boolToInt(enabled), id,
	)
	if err != nil {
		return fmt.Errorf("set feed enabled: %w", err)
	}
	return nil
}

// MarkFeedArmed flips the armed flag after a feed's first successful poll.
func (s *SQLite) MarkFeedArmed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE feeds SET armed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark feed armed: %w", err)
	}
	return nil
}

// DeleteFeed removes a feed; its rules, entries and alerts cascade.
func (s *SQLite) DeleteFeed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	return nil
}

// CreateRule inserts a new rule and populates its ID and CreatedAt.
func (s *SQLite) CreateRule(ctx context.Context, rule *model.Rule) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (keyword, feed_id, enabled, created_at) VALUES (?, ?, ?, ?)`,
		rule.Keyword, rule.FeedID, boolToInt(rule.Enabled), now,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rule.ID = id
	rule.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListRules returns all rules ordered by ID.
func (s *SQLite) ListRules(ctx context.Context) ([]model.Rule, error) {
	return s.queryRules(ctx,
		`SELECT id, keyword, feed_id, enabled, created_at FROM rules ORDER BY id`)
}

// ListEnabledRules returns enabled rules ordered by ID, the order matches
// are reported in.
func (s *SQLite) ListEnabledRules(ctx context.Context) ([]model.Rule, error) {
	return s.queryRules(ctx,
		`SELECT id, keyword, feed_id, enabled, created_at FROM rules WHERE enabled = 1 ORDER BY id`)
}

func (s *SQLite) queryRules(ctx context.Context, query string) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		var r model.Rule
		var enabled int
		var feedID sql.NullInt64
		var created string
		if err := rows.Scan(&r.ID, &r.Keyword, &feedID, &enabled, &created); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Enabled = enabled == 1
		if feedID.Valid {
			v := feedID.Int64
			r.FeedID = &v
		}
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// SetRuleEnabled toggles a rule.
func (s *SQLite) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rules SET enabled = ? WHERE id = ?`, boolToInt(enabled), id,
	)
	if err != nil {
		return fmt.Errorf("set rule enabled: %w", err)
	}
	return nil
}

// DeleteRule removes a rule; its alerts cascade.
func (s *SQLite) DeleteRule(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// InsertEntryIfAbsent records an entry unless (feed_id, entry_key) already
// exists. A concurrent duplicate insert racing to the unique constraint is
// absorbed by INSERT OR IGNORE and reported as wasNew=false.
func (s *SQLite) InsertEntryIfAbsent(ctx context.Context, entry *model.Entry) (int64, bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO entries (feed_id, entry_key, link, title, published, summary, seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.FeedID, entry.EntryKey, entry.Link, entry.Title, entry.Published, entry.Summary, now,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("last insert id: %w", err)
		}
		entry.ID = id
		entry.SeenAt, _ = time.Parse(timeLayout, now)
		return id, true, nil
	}

	id, ok, err := s.GetEntryID(ctx, entry.FeedID, entry.EntryKey)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, fmt.Errorf("entry (%d, %q) vanished after insert", entry.FeedID, entry.EntryKey)
	}
	entry.ID = id
	return id, false, nil
}

// GetEntryID looks up an entry by its deduplication key.
func (s *SQLite) GetEntryID(ctx context.Context, feedID int64, entryKey string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM entries WHERE feed_id = ? AND entry_key = ?`, feedID, entryKey,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get entry id: %w", err)
	}
	return id, true, nil
}

// InsertAlertIfAbsent records an alert unless (entry_id, rule_id) already
// exists. This is the core dedup guarantee: repeated polls never re-alert on
// an already-alerted pair.
func (s *SQLite) InsertAlertIfAbsent(ctx context.Context, entryID, ruleID int64, keyword string) (int64, bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO alerts (entry_id, rule_id, keyword, created_at) VALUES (?, ?, ?, ?)`,
		entryID, ruleID, keyword, now,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert alert: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var id int64
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM alerts WHERE entry_id = ? AND rule_id = ?`, entryID, ruleID,
		).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("get alert id: %w", err)
		}
		return id, false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("last insert id: %w", err)
	}
	return id, true, nil
}

// ListRecentAlerts returns the newest alerts joined with entry and feed
// details for display.
func (s *SQLite) ListRecentAlerts(ctx context.Context, limit int) ([]model.AlertView, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.keyword, e.title, e.link, f.name, a.created_at
		 FROM alerts a
		 JOIN entries e ON e.id = a.entry_id
		 JOIN feeds f ON f.id = e.feed_id
		 ORDER BY a.id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.AlertView
	for rows.Next() {
		var a model.AlertView
		var created string
		if err := rows.Scan(&a.ID, &a.Keyword, &a.Title, &a.Link, &a.FeedName, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.CreatedAt, _ = time.Parse(timeLayout, created)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// GetSetting returns the value for key, or fallback when the key is absent.
func (s *SQLite) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return v, nil
}

// SetSetting stores a setting, overwriting any existing value.
func (s *SQLite) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// AppendLog writes an application log row and trims the table to the
// configured retention bound so the database stays small.
func (s *SQLite) AppendLog(ctx context.Context, rec model.LogRecord) error {
	now := time.Now().UTC().Format(timeLayout)
	var link, errStr *string
	if rec.EntryLink != "" {
		link = &rec.EntryLink
	}
	if rec.Err != "" {
		errStr = &rec.Err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_log (ts, level, area, message, feed_id, rule_id, entry_link, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		now, rec.Level, rec.Area, rec.Message, rec.FeedID, rec.RuleID, link, errStr,
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}

	maxRows := s.logMaxRows(ctx)
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM app_log WHERE id < (SELECT COALESCE(MAX(id) - ?, 0) FROM app_log)`,
		maxRows,
	)
	if err != nil {
		return fmt.Errorf("trim log: %w", err)
	}
	return nil
}

// ListRecentLogs returns the newest application log rows.
func (s *SQLite) ListRecentLogs(ctx context.Context, limit int) ([]model.LogRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, level, area, message, feed_id, rule_id, entry_link, error
		 FROM app_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []model.LogRecord
	for rows.Next() {
		var rec model.LogRecord
		var ts string
		var feedID, ruleID sql.NullInt64
		var link, errStr sql.NullString
		if err := rows.Scan(&ts, &rec.Level, &rec.Area, &rec.Message, &feedID, &ruleID, &link, &errStr); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		rec.TS, _ = time.Parse(timeLayout, ts)
		if feedID.Valid {
			v := feedID.Int64
			rec.FeedID = &v
		}
		if ruleID.Valid {
			v := ruleID.Int64
			rec.RuleID = &v
		}
		rec.EntryLink = link.String
		rec.Err = errStr.String
		logs = append(logs, rec)
	}
	return logs, rows.Err()
}

func (s *SQLite) logMaxRows(ctx context.Context) int {
	raw, err := s.GetSetting(ctx, "log_max_rows", strconv.Itoa(defaultLogMaxRows))
	if err != nil {
		return defaultLogMaxRows
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultLogMaxRows
	}
	if n < minLogMaxRows {
		return minLogMaxRows
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFeed(row scannable) (*model.Feed, error) {
	var f model.Feed
	var enabled, armed int
	var created sql.NullString
	err := row.Scan(&f.ID, &f.Name, &f.URL, &enabled, &armed, &created)
	if err != nil {
		return nil, fmt.Errorf("scan feed: %w", err)
	}
	f.Enabled = enabled == 1
	f.Armed = armed == 1
	if created.Valid {
		f.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &f, nil
}
