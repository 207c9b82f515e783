package stream

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/models"
)

// Producer appends posts to the stream.
type Producer struct {
	client goredis.UniversalClient
	stream string
}

// NewProducer creates a stream producer.
func NewProducer(client goredis.UniversalClient, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

// Publish appends one post as a stream entry and returns the broker-assigned
// entry ID.
func (p *Producer) Publish(ctx context.Context, post models.Post) (string, error) {
	id, err := p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		Values: EnvelopeValues(post),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish post %s: %w", post.PostID, err)
	}
	return id, nil
}
