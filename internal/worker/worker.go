package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ishwaryaobilisetti/sentiment-platform/internal/alerts"
	"github.com/ishwaryaobilisetti/sentiment-platform/internal/broadcast"
	"github.com/ishwaryaobilisetti/sentiment-platform/internal/classify"
	"github.com/ishwaryaobilisetti/sentiment-platform/internal/store"
	"github.com/ishwaryaobilisetti/sentiment-platform/internal/stream"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/models"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/monitoring"
)

// Classifier is the slice of the inference client the worker needs.
type Classifier interface {
	ClassifySentiment(ctx context.Context, text string) (classify.Result, error)
	ClassifyEmotion(ctx context.Context, text string) (classify.Result, error)
}

// Config holds the consume-loop tuning knobs.
type Config struct {
	// Batch is the max entries fetched per read.
	Batch int64
	// Block is how long a read waits for new entries before returning empty.
	Block time.Duration
	// ReclaimInterval is how often the pending list is scanned for entries
	// abandoned by dead consumers.
	ReclaimInterval time.Duration
	// ReclaimMinIdle is how long an entry must sit unacked before it is
	// considered abandoned.
	ReclaimMinIdle time.Duration
	// SentimentModel is recorded as model_name on every analysis row.
	SentimentModel string
}

// Worker is the ingestion loop: it consumes posts from the stream, classifies
// them, persists post + analysis + any alert in one transaction, then
// broadcasts and acknowledges. Processing is at-least-once; the idempotent
// store makes redelivery converge.
type Worker struct {
	consumer   *stream.Consumer
	store      *store.Store
	classifier Classifier
	engine     *alerts.Engine
	notifier   broadcast.Notifier
	config     Config
	logger     logging.Logger

	messagesTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	pending       *prometheus.GaugeVec
	streamName    string
	groupName     string
}

// New creates a worker. metrics may be nil in tests.
func New(
	consumer *stream.Consumer,
	s *store.Store,
	classifier Classifier,
	engine *alerts.Engine,
	notifier broadcast.Notifier,
	config Config,
	streamName, groupName string,
	metrics *monitoring.MetricsCollector,
	logger logging.Logger,
) *Worker {
	w := &Worker{
		consumer:   consumer,
		store:      s,
		classifier: classifier,
		engine:     engine,
		notifier:   notifier,
		config:     config,
		logger:     logger,
		streamName: streamName,
		groupName:  groupName,
	}
	if metrics != nil {
		w.messagesTotal, w.duration, w.pending = metrics.CreateStreamMetrics()
	}
	return w
}

// Run consumes until ctx is cancelled. The message being processed when
// cancellation arrives is finished and acknowledged before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.consumer.EnsureGroup(ctx); err != nil {
		return err
	}

	reclaimTicker := time.NewTicker(w.config.ReclaimInterval)
	defer reclaimTicker.Stop()

	w.logger.WithFields(logging.Fields{
		"stream": w.streamName,
		"group":  w.groupName,
	}).Info("Ingestion worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Ingestion worker stopping")
			return nil
		case <-reclaimTicker.C:
			w.reclaimPending(ctx)
		default:
		}

		messages, err := w.consumer.ReadNext(ctx, w.config.Batch, w.config.Block)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Ingestion worker stopping")
				return nil
			}
			w.logger.WithError(err).Error("Stream read failed")
			w.countMessage("read", "error")
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

// drainTimeout bounds how long a unit of work may keep running after the
// consume loop has been cancelled.
const drainTimeout = 30 * time.Second

// handleMessage runs one unit of work and decides the ack. Malformed
// envelopes are acked and dropped; transient failures leave the entry
// pending for redelivery.
//
// The work runs on a context decoupled from loop cancellation so a shutdown
// arriving mid-message lets the message finish and be acknowledged instead
// of stranding it on the pending list.
func (w *Worker) handleMessage(ctx context.Context, msg stream.Message) {
	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	start := time.Now()

	status, err := w.process(workCtx, msg)
	if w.duration != nil {
		w.duration.WithLabelValues("process").Observe(time.Since(start).Seconds())
	}
	w.countMessage("process", status)

	switch status {
	case "malformed":
		w.logger.WithError(err).WithField("message_id", msg.ID).
			Warn("Dropping malformed stream entry")
	case "failed":
		w.logger.WithError(err).WithField("message_id", msg.ID).
			Error("Unit of work failed, leaving entry pending")
		return
	case "duplicate":
		w.logger.WithField("message_id", msg.ID).Debug("Duplicate post, skipping")
	}

	if err := w.consumer.Ack(workCtx, msg.ID); err != nil {
		// The broker will redeliver; idempotent persistence absorbs it.
		w.logger.WithError(err).WithField("message_id", msg.ID).Warn("Ack failed")
		w.countMessage("ack", "error")
	}
}

func (w *Worker) process(ctx context.Context, msg stream.Message) (string, error) {
	post, err := stream.ParsePost(msg)
	if err != nil {
		return "malformed", err
	}

	// Classify before opening the transaction so a slow model backend never
	// holds database locks.
	sentimentRes, err := w.classifier.ClassifySentiment(ctx, post.Content)
	if err != nil {
		return "failed", err
	}
	emotionRes, err := w.classifier.ClassifyEmotion(ctx, post.Content)
	if err != nil {
		return "failed", err
	}

	analysis := models.Analysis{
		PostID:          post.PostID,
		ModelName:       w.config.SentimentModel,
		SentimentLabel:  classify.NormalizeSentiment(sentimentRes.Label),
		ConfidenceScore: sentimentRes.Score,
		Emotion:         emotionRes.Label,
		AnalyzedAt:      time.Now().UTC(),
	}

	tx, err := w.store.Begin(ctx)
	if err != nil {
		return "failed", err
	}
	defer tx.Rollback()

	inserted, err := w.store.InsertPost(ctx, tx, post)
	if err != nil {
		return "failed", err
	}
	if !inserted {
		if err := tx.Commit(); err != nil {
			return "failed", err
		}
		return "duplicate", nil
	}

	if err := w.store.InsertAnalysis(ctx, tx, analysis); err != nil {
		return "failed", err
	}

	alert, err := w.engine.Evaluate(ctx, tx, analysis.AnalyzedAt)
	if err != nil {
		return "failed", err
	}

	if err := tx.Commit(); err != nil {
		return "failed", err
	}

	// Broadcast only after commit so observers never see uncommitted state.
	w.notifier.Notify(ctx, models.NewSentimentEvent(
		post.PostID, analysis.SentimentLabel, analysis.Emotion))
	if alert != nil {
		w.notifier.Notify(ctx, models.NewAlertEvent(*alert))
	}

	return "processed", nil
}

// reclaimPending picks up entries stranded by dead consumers and reprocesses
// them through the normal path.
func (w *Worker) reclaimPending(ctx context.Context) {
	messages, err := w.consumer.Reclaim(ctx, w.config.ReclaimMinIdle, w.config.Batch)
	if err != nil {
		w.logger.WithError(err).Error("Pending reclaim failed")
		w.countMessage("reclaim", "error")
		return
	}

	if len(messages) > 0 {
		w.logger.WithField("count", len(messages)).Info("Reclaimed stranded entries")
	}
	for _, msg := range messages {
		w.countMessage("reclaim", "claimed")
		w.handleMessage(ctx, msg)
	}

	if w.pending != nil {
		if count, err := w.consumer.PendingCount(ctx); err == nil {
			w.pending.WithLabelValues(w.streamName, w.groupName).Set(float64(count))
		}
	}
}

func (w *Worker) countMessage(operation, status string) {
	if w.messagesTotal != nil {
		w.messagesTotal.WithLabelValues(w.streamName, operation, status).Inc()
	}
}
