package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	dbsql "github.com/ishwaryaobilisetti/sentiment-platform/pkg/database/sql"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/models"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/monitoring"
)

// Store persists posts, analyses and alerts. The ingestion worker is the only
// writer; the gateway's read API uses the read-only methods.
type Store struct {
	db     *sql.DB
	logger logging.Logger

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	connections   *prometheus.GaugeVec
}

// New creates a Store over an open database connection.
func New(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// WithMetrics attaches per-query counters, durations and a connection gauge.
func (s *Store) WithMetrics(mc *monitoring.MetricsCollector) *Store {
	s.queries, s.queryDuration, s.connections = mc.CreateDatabaseMetrics()
	return s
}

func (s *Store) observe(queryType string, start time.Time, err error) {
	if s.queries == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.queries.WithLabelValues(queryType, status).Inc()
	s.queryDuration.WithLabelValues(queryType).Observe(time.Since(start).Seconds())
	s.connections.WithLabelValues("postgres").Set(float64(s.db.Stats().OpenConnections))
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EnsureSchema applies the embedded DDL. Statements are idempotent
// (CREATE ... IF NOT EXISTS), so running at every startup is safe.
func (s *Store) EnsureSchema(ctx context.Context) error {
	entries, err := fs.Glob(dbsql.Content, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	sort.Strings(entries)

	for _, name := range entries {
		ddl, err := dbsql.Content.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		s.logger.WithField("file", name).Debug("Applied schema file")
	}
	return nil
}

// Begin opens the transaction that scopes one unit of work.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

// InsertPost inserts a post, treating a duplicate post_id as a silent no-op.
// The returned flag reports whether a row was actually written; callers use
// it to decide whether the rest of the unit of work applies.
func (s *Store) InsertPost(ctx context.Context, tx *sql.Tx, post models.Post) (inserted bool, err error) {
	defer func(start time.Time) { s.observe("insert_post", start, err) }(time.Now())

	res, err := tx.ExecContext(ctx, `
		INSERT INTO social_media_posts (post_id, source, content, author, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (post_id) DO NOTHING
	`, post.PostID, post.Source, post.Content, post.Author, post.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert post %s: %w", post.PostID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert post %s: rows affected: %w", post.PostID, err)
	}
	return rows > 0, nil
}

// InsertAnalysis writes the classification result for a post. A post_id
// conflict means another worker won a concurrent race for the same post;
// it is treated the same as the duplicate-post no-op.
func (s *Store) InsertAnalysis(ctx context.Context, tx *sql.Tx, a models.Analysis) (err error) {
	defer func(start time.Time) { s.observe("insert_analysis", start, err) }(time.Now())

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sentiment_analysis (post_id, model_name, sentiment_label, confidence_score, emotion, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (post_id) DO NOTHING
	`, a.PostID, a.ModelName, a.SentimentLabel, a.ConfidenceScore, a.Emotion, a.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("insert analysis for %s: %w", a.PostID, err)
	}
	return nil
}

// InsertAlert appends one alert row. Alerts are never deduplicated.
func (s *Store) InsertAlert(ctx context.Context, tx *sql.Tx, alert models.Alert) (err error) {
	defer func(start time.Time) { s.observe("insert_alert", start, err) }(time.Now())

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sentiment_alerts (alert_type, threshold_value, actual_value, window_start, window_end, post_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, alert.AlertType, alert.ThresholdValue, alert.ActualValue, alert.WindowStart, alert.WindowEnd, alert.PostCount)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// SentimentCountsSince returns per-label analysis counts for rows with
// analyzed_at >= since. Queried inside the unit-of-work transaction so the
// alert engine sees the analysis just inserted.
func (s *Store) SentimentCountsSince(ctx context.Context, tx *sql.Tx, since time.Time) (counts map[string]int, err error) {
	defer func(start time.Time) { s.observe("sentiment_counts", start, err) }(time.Now())

	rows, err := tx.QueryContext(ctx, `
		SELECT sentiment_label, COUNT(id)
		FROM sentiment_analysis
		WHERE analyzed_at >= $1
		GROUP BY sentiment_label
	`, since)
	if err != nil {
		return nil, fmt.Errorf("count sentiments: %w", err)
	}
	defer rows.Close()

	counts = make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("scan sentiment count: %w", err)
		}
		counts[label] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentiment counts: %w", err)
	}
	return counts, nil
}

const (
	maxPageSize     = 100
	defaultPageSize = 20
)

// ListPosts returns the most recent posts joined with their analyses.
// limit is clamped to [1, 100]; offset is clamped to >= 0.
func (s *Store) ListPosts(ctx context.Context, limit, offset int) (posts []models.PostWithSentiment, err error) {
	defer func(start time.Time) { s.observe("list_posts", start, err) }(time.Now())

	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.post_id, p.content, a.sentiment_label, a.emotion
		FROM social_media_posts p
		JOIN sentiment_analysis a ON p.post_id = a.post_id
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.PostWithSentiment
		if err := rows.Scan(&p.PostID, &p.Content, &p.Sentiment, &p.Emotion); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// RecentAlerts returns the most recently raised alerts, newest first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) (alerts []models.Alert, err error) {
	defer func(start time.Time) { s.observe("recent_alerts", start, err) }(time.Now())

	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alert_type, threshold_value, actual_value, window_start, window_end, post_count, created_at
		FROM sentiment_alerts
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.AlertType, &a.ThresholdValue, &a.ActualValue,
			&a.WindowStart, &a.WindowEnd, &a.PostCount, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// SentimentDistribution returns all-time counts per sentiment label.
func (s *Store) SentimentDistribution(ctx context.Context) (dist map[string]int, err error) {
	defer func(start time.Time) { s.observe("sentiment_distribution", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT sentiment_label, COUNT(*)
		FROM sentiment_analysis
		GROUP BY sentiment_label
	`)
	if err != nil {
		return nil, fmt.Errorf("sentiment distribution: %w", err)
	}
	defer rows.Close()

	dist = make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		dist[label] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distribution: %w", err)
	}
	return dist, nil
}
