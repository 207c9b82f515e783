package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Broadcast event discriminators carried in the "type" field of the ingress
// payload and of every frame fanned out to observers.
const (
	EventTypeSentiment = "sentiment"
	EventTypeAlert     = "alert"
)

// SentimentEvent is broadcast to observers after a post's analysis commits.
type SentimentEvent struct {
	Type      string `json:"type"`
	PostID    string `json:"post_id"`
	Sentiment string `json:"sentiment"`
	Emotion   string `json:"emotion"`
}

// AlertEvent is broadcast to observers when the alert engine raises an alert.
type AlertEvent struct {
	Type        string    `json:"type"`
	Ratio       float64   `json:"ratio"`
	PostCount   int       `json:"post_count"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// NewSentimentEvent builds a sentiment broadcast event.
func NewSentimentEvent(postID, sentiment, emotion string) SentimentEvent {
	return SentimentEvent{
		Type:      EventTypeSentiment,
		PostID:    postID,
		Sentiment: sentiment,
		Emotion:   emotion,
	}
}

// NewAlertEvent builds an alert broadcast event from a persisted alert.
func NewAlertEvent(a Alert) AlertEvent {
	return AlertEvent{
		Type:        EventTypeAlert,
		Ratio:       a.ActualValue,
		PostCount:   a.PostCount,
		WindowStart: a.WindowStart,
		WindowEnd:   a.WindowEnd,
	}
}

// BroadcastEnvelope is the wire shape accepted by the internal broadcast
// ingress: a JSON object with a "type" discriminator plus event fields.
// The raw payload is retained so the hub can fan it out verbatim.
type BroadcastEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// ParseBroadcastEnvelope validates an ingress payload and keeps the raw
// bytes for fan-out.
func ParseBroadcastEnvelope(data []byte) (BroadcastEnvelope, error) {
	var env BroadcastEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return BroadcastEnvelope{}, fmt.Errorf("parse broadcast payload: %w", err)
	}
	switch env.Type {
	case EventTypeSentiment, EventTypeAlert:
	default:
		return BroadcastEnvelope{}, fmt.Errorf("unknown broadcast event type %q", env.Type)
	}
	env.Raw = data
	return env, nil
}
