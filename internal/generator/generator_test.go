package generator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ishwaryaobilisetti/sentiment-platform/internal/stream"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
)

func newTestGenerator(t *testing.T) (*Generator, *stream.Consumer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logging.NewLoggerWithService("generator-test")
	producer := stream.NewProducer(client, "social_posts_stream")
	consumer := stream.NewConsumer(client, stream.ConsumerConfig{
		Stream:   "social_posts_stream",
		Group:    "sentiment_workers",
		Consumer: "worker-1",
	}, logger)
	return New(producer, logger), consumer
}

func TestGeneratePost_ShapeAndUniqueness(t *testing.T) {
	g, _ := newTestGenerator(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		post := g.GeneratePost()

		if !strings.HasPrefix(post.PostID, "post_") {
			t.Errorf("unexpected post_id %q", post.PostID)
		}
		if seen[post.PostID] {
			t.Errorf("duplicate post_id %q", post.PostID)
		}
		seen[post.PostID] = true

		if post.Source != "twitter" && post.Source != "reddit" && post.Source != "linkedin" {
			t.Errorf("unexpected source %q", post.Source)
		}
		if !strings.HasPrefix(post.Author, "user_") {
			t.Errorf("unexpected author %q", post.Author)
		}
		if post.Content == "" || strings.Contains(post.Content, "{product}") {
			t.Errorf("template not expanded: %q", post.Content)
		}
		if post.CreatedAt.IsZero() {
			t.Error("created_at not set")
		}
	}
}

func TestRun_PublishesToStream(t *testing.T) {
	g, consumer := newTestGenerator(t)
	ctx, cancel := context.WithCancel(context.Background())

	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}

	done := make(chan error, 1)
	// 6000/minute = one post every 10ms.
	go func() { done <- g.Run(ctx, 6000) }()

	deadline := time.Now().Add(2 * time.Second)
	var got []stream.Message
	for time.Now().Before(deadline) && len(got) == 0 {
		messages, err := consumer.ReadNext(ctx, 10, 50*time.Millisecond)
		if err != nil {
			t.Fatalf("ReadNext: %v", err)
		}
		got = append(got, messages...)
	}
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Run returned error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no posts published")
	}

	post, err := stream.ParsePost(got[0])
	if err != nil {
		t.Fatalf("published envelope does not parse: %v", err)
	}
	if post.PostID == "" {
		t.Error("empty post_id")
	}
}
