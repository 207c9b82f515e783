package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/clients"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
)

// Result is a single classification outcome: the model's raw label and its
// confidence score in [0,1].
type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Config configures the inference API client.
type Config struct {
	BaseURL        string
	SentimentModel string
	EmotionModel   string
	Timeout        time.Duration
	Logger         logging.Logger
}

// Client calls a hosted text-classification inference API. One Client serves
// both the sentiment and the emotion model; calls are synchronous,
// single-text, and side-effect-free.
type Client struct {
	baseURL        string
	sentimentModel string
	emotionModel   string
	client         *http.Client
	breaker        *clients.CircuitBreaker
	logger         logging.Logger
}

// NewClient creates an inference API client with a bounded per-call timeout
// and a circuit breaker so a dead model backend fails fast instead of
// stalling the pipeline on every message.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:        cfg.BaseURL,
		sentimentModel: cfg.SentimentModel,
		emotionModel:   cfg.EmotionModel,
		client: &http.Client{
			Timeout:   timeout,
			Transport: clients.DefaultTransport(),
		},
		breaker: clients.NewCircuitBreaker(clients.CircuitBreakerConfig{
			Name:   "inference",
			Logger: cfg.Logger,
		}),
		logger: cfg.Logger,
	}
}

// ClassifySentiment classifies the text with the sentiment model.
func (c *Client) ClassifySentiment(ctx context.Context, text string) (Result, error) {
	return c.classify(ctx, c.sentimentModel, text)
}

// ClassifyEmotion classifies the text with the emotion model.
func (c *Client) ClassifyEmotion(ctx context.Context, text string) (Result, error) {
	return c.classify(ctx, c.emotionModel, text)
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

func (c *Client) classify(ctx context.Context, model, text string) (Result, error) {
	var result Result
	err := c.breaker.Call(func() error {
		r, err := c.doClassify(ctx, model, text)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (c *Client) doClassify(ctx context.Context, model, text string) (Result, error) {
	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return Result{}, fmt.Errorf("marshal inference request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s", c.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("inference call for %s: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("inference for %s returned status %d: %s", model, resp.StatusCode, payload)
	}

	return decodeResult(resp.Body)
}

// decodeResult handles both response shapes the pipeline API produces:
// [{"label":...,"score":...}] for plain classification and the nested
// [[{"label":...}]] form returned when top_k is set.
func decodeResult(r io.Reader) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read inference response: %w", err)
	}

	var flat []Result
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return flat[0], nil
	}

	var nested [][]Result
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0][0], nil
	}

	return Result{}, fmt.Errorf("malformed inference response: %s", truncate(raw, 256))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
