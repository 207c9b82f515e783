package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ishwaryaobilisetti/sentiment-platform/internal/stream"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/models"
)

var positiveTemplates = []string{
	"I absolutely love {product}! It works amazingly well.",
	"{product} exceeded my expectations. Highly recommended!",
	"So happy with my experience using {product}.",
	"This is amazing! {product} just keeps getting better.",
}

var negativeTemplates = []string{
	"Very disappointed with {product}. Not worth the money.",
	"Terrible experience using {product}.",
	"I hate how {product} performs. Completely useless.",
	"{product} is a big letdown. Would not recommend.",
}

var neutralTemplates = []string{
	"Just tried {product} today.",
	"Received {product} earlier this morning.",
	"Using {product} for the first time.",
	"I am currently testing {product}.",
}

var products = []string{
	"iPhone 16",
	"Tesla Model 3",
	"ChatGPT",
	"Netflix",
	"Amazon Prime",
	"Google Pixel",
	"MacBook Pro",
}

var sources = []string{"twitter", "reddit", "linkedin"}

// Generator publishes simulated social media posts to the stream at a fixed
// rate. Content skews 40/30/30 positive/neutral/negative so the alert engine
// has something to chew on.
type Generator struct {
	producer *stream.Producer
	rng      *rand.Rand
	logger   logging.Logger
}

// New creates a generator with its own PRNG, seeded per instance.
func New(producer *stream.Producer, logger logging.Logger) *Generator {
	return &Generator{
		producer: producer,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
}

// GeneratePost produces one synthetic post with a fresh ID and the current
// UTC time.
func (g *Generator) GeneratePost() models.Post {
	product := products[g.rng.Intn(len(products))]

	var template string
	switch roll := g.rng.Intn(100); {
	case roll < 40:
		template = positiveTemplates[g.rng.Intn(len(positiveTemplates))]
	case roll < 70:
		template = neutralTemplates[g.rng.Intn(len(neutralTemplates))]
	default:
		template = negativeTemplates[g.rng.Intn(len(negativeTemplates))]
	}

	return models.Post{
		PostID:    "post_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Source:    sources[g.rng.Intn(len(sources))],
		Content:   strings.ReplaceAll(template, "{product}", product),
		Author:    fmt.Sprintf("user_%d", 1000+g.rng.Intn(9000)),
		CreatedAt: time.Now().UTC(),
	}
}

// Run publishes postsPerMinute posts until ctx is cancelled. Publish failures
// are logged and the loop keeps going.
func (g *Generator) Run(ctx context.Context, postsPerMinute int) error {
	if postsPerMinute < 1 {
		postsPerMinute = 60
	}
	interval := time.Minute / time.Duration(postsPerMinute)

	g.logger.WithField("posts_per_minute", postsPerMinute).Info("Generator started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("Generator stopping")
			return nil
		case <-ticker.C:
			post := g.GeneratePost()
			if _, err := g.producer.Publish(ctx, post); err != nil {
				g.logger.WithError(err).Error("Failed to publish post")
				continue
			}
			g.logger.WithField("post_id", post.PostID).Debug("Published post")
		}
	}
}
