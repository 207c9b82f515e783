package models

import "time"

// Sentiment labels produced by normalization. Raw model labels are never
// stored; only these three values appear in sentiment_analysis rows.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Stream envelope field names. A post travels the stream as a flat
// string-keyed map with exactly these keys.
const (
	FieldPostID    = "post_id"
	FieldSource    = "source"
	FieldContent   = "content"
	FieldAuthor    = "author"
	FieldCreatedAt = "created_at"
)

// Post represents a social media post ingested from the stream.
// Posts are producer-assigned and immutable; CreatedAt is timezone-naive UTC.
type Post struct {
	PostID    string    `json:"post_id"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis represents the classification result for one post. Exactly one
// row exists per successfully processed post; rows are never mutated.
type Analysis struct {
	ID              int64     `json:"id"`
	PostID          string    `json:"post_id"`
	ModelName       string    `json:"model_name"`
	SentimentLabel  string    `json:"sentiment_label"`
	ConfidenceScore float64   `json:"confidence_score"`
	Emotion         string    `json:"emotion"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// Alert represents a breach of the negative-sentiment ratio threshold over a
// trailing window. Alerts are append-only; repeated breaches repeat rows.
type Alert struct {
	ID             int64     `json:"id"`
	AlertType      string    `json:"alert_type"`
	ThresholdValue float64   `json:"threshold_value"`
	ActualValue    float64   `json:"actual_value"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	PostCount      int       `json:"post_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// AlertTypeHighNegativeRatio is the only alert type the engine raises today.
const AlertTypeHighNegativeRatio = "high_negative_ratio"
