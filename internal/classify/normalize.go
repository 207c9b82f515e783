package classify

import (
	"strings"

	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/models"
)

// NormalizeSentiment maps a raw model label onto the canonical three-value
// sentiment scale. Matching is case-insensitive substring, positive checked
// before negative, everything else neutral.
func NormalizeSentiment(label string) string {
	lower := strings.ToLower(label)
	if strings.Contains(lower, "positive") {
		return models.SentimentPositive
	}
	if strings.Contains(lower, "negative") {
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}
