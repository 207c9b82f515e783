package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewClientFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClientFromURL(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewClientFromURL returned error: %v", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestNewClientFromURL_Empty(t *testing.T) {
	if _, err := NewClientFromURL(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestNewClientFromURL_BadURL(t *testing.T) {
	if _, err := NewClientFromURL(context.Background(), "://nope"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
