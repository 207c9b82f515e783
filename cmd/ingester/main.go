package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ishwaryaobilisetti/sentiment-platform/internal/generator"
	"github.com/ishwaryaobilisetti/sentiment-platform/internal/stream"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/config"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/redis"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/server"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("ingester")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Ingester (Synthetic Post Producer)")

	redisURL := config.GetEnv("REDIS_URL", "redis://localhost:6379/0")
	streamName := config.GetEnv("STREAM_NAME", "social_posts_stream")
	postsPerMinute := config.GetEnvInt("POSTS_PER_MINUTE", 60)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := redis.NewClientFromURL(ctx, redisURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	producer := stream.NewProducer(redisClient, streamName)
	gen := generator.New(producer, logger)

	go func() {
		if err := gen.Run(ctx, postsPerMinute); err != nil {
			logger.WithError(err).Error("Generator error")
		}
	}()

	// Basic health endpoint
	go func() {
		router := server.SetupRouterWithService(logger, "ingester")
		serverConfig := server.DefaultConfig("ingester", "18032")
		if err := server.Start(serverConfig, router, logger); err != nil {
			logger.WithError(err).Error("Health server error")
		}
	}()

	// Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down Ingester...")
	cancel()

	logger.Info("Ingester stopped")
}
