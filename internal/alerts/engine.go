package alerts

import (
	"context"
	"database/sql"
	"time"

	"github.com/ishwaryaobilisetti/sentiment-platform/internal/store"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/models"
)

// Config holds the alert rule parameters.
type Config struct {
	// NegativeRatioThreshold is the negative/positive ratio at or above which
	// an alert fires.
	NegativeRatioThreshold float64
	// Window is the trailing evaluation window.
	Window time.Duration
	// MinPosts is the minimum number of analyses in the window before the
	// rule is considered at all.
	MinPosts int
}

// Engine evaluates the negative-ratio rule after each new analysis. It runs
// inside the worker's unit-of-work transaction so the evaluation always sees
// the analysis that triggered it.
type Engine struct {
	store  *store.Store
	config Config
	logger logging.Logger
}

func NewEngine(s *store.Store, config Config, logger logging.Logger) *Engine {
	return &Engine{store: s, config: config, logger: logger}
}

// Evaluate checks the window ending at now. When the rule breaches it
// persists an alert row within tx and returns the alert; otherwise it
// returns nil. Alerts are never deduplicated, so consecutive breaching
// posts each raise their own alert.
func (e *Engine) Evaluate(ctx context.Context, tx *sql.Tx, now time.Time) (*models.Alert, error) {
	windowStart := now.Add(-e.config.Window)

	counts, err := e.store.SentimentCountsSince(ctx, tx, windowStart)
	if err != nil {
		return nil, err
	}

	ratio, breached := e.evaluateCounts(counts)
	if !breached {
		return nil, nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	alert := models.Alert{
		AlertType:      models.AlertTypeHighNegativeRatio,
		ThresholdValue: e.config.NegativeRatioThreshold,
		ActualValue:    ratio,
		WindowStart:    windowStart,
		WindowEnd:      now,
		PostCount:      total,
	}
	if err := e.store.InsertAlert(ctx, tx, alert); err != nil {
		return nil, err
	}

	e.logger.WithFields(logging.Fields{
		"ratio":      ratio,
		"threshold":  e.config.NegativeRatioThreshold,
		"post_count": total,
	}).Warn("Negative sentiment ratio threshold breached")

	return &alert, nil
}

// evaluateCounts applies the rule to windowed label counts. The ratio is
// negative over positive, not negative over total; a window with no positive
// analyses never alerts regardless of how negative it is.
func (e *Engine) evaluateCounts(counts map[string]int) (float64, bool) {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total < e.config.MinPosts {
		return 0, false
	}

	positive := counts[models.SentimentPositive]
	if positive == 0 {
		return 0, false
	}

	ratio := float64(counts[models.SentimentNegative]) / float64(positive)
	return ratio, ratio >= e.config.NegativeRatioThreshold
}
