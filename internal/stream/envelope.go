package stream

import (
	"fmt"
	"time"

	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/models"
)

// Naive ISO-8601 layouts accepted in created_at, in addition to the
// offset-carrying RFC 3339 forms.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp, timezone-aware or naive, into
// zone-naive UTC: aware inputs are converted to UTC first, then the offset is
// dropped. Two instants that differ only in offset therefore collapse to the
// same stored value.
func ParseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

// ParsePost converts a stream envelope into a Post. All five fields are
// required; created_at is normalized per ParseTimestamp.
func ParsePost(msg Message) (models.Post, error) {
	for _, field := range []string{
		models.FieldPostID, models.FieldSource, models.FieldContent,
		models.FieldAuthor, models.FieldCreatedAt,
	} {
		if msg.Values[field] == "" {
			return models.Post{}, fmt.Errorf("message %s missing field %s", msg.ID, field)
		}
	}

	createdAt, err := ParseTimestamp(msg.Values[models.FieldCreatedAt])
	if err != nil {
		return models.Post{}, fmt.Errorf("message %s: %w", msg.ID, err)
	}

	return models.Post{
		PostID:    msg.Values[models.FieldPostID],
		Source:    msg.Values[models.FieldSource],
		Content:   msg.Values[models.FieldContent],
		Author:    msg.Values[models.FieldAuthor],
		CreatedAt: createdAt,
	}, nil
}

// EnvelopeValues flattens a Post into the stream's wire shape.
func EnvelopeValues(post models.Post) map[string]interface{} {
	return map[string]interface{}{
		models.FieldPostID:    post.PostID,
		models.FieldSource:    post.Source,
		models.FieldContent:   post.Content,
		models.FieldAuthor:    post.Author,
		models.FieldCreatedAt: post.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
