package handlers

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/soletrack-project/backend/internal/services"
)

func TestStreamRefreshEvents(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	hub := services.NewPriceStreamHub(redisClient, services.PriceUpdateChannel)
	handler := NewPriceHandler(nil, hub)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/api/v1/prices/stream", handler.StreamRefreshEvents)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	defer func() { _ = app.Shutdown() }()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	payload := `{"event":"latest_view_refreshed","refreshed_at":"2026-03-01T12:00:00Z"}`
	go func() {
		// Give the hub's Redis subscription and the SSE client time to attach.
		for i := 0; i < 20; i++ {
			time.Sleep(50 * time.Millisecond)
			_ = redisClient.Publish(context.Background(), services.PriceUpdateChannel, payload).Err()
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+ln.Addr().String()+"/api/v1/prices/stream", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to call SSE endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type: %s", ct)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read SSE line: %v", err)
		}
		if strings.HasPrefix(line, "data:") {
			if !strings.Contains(line, "latest_view_refreshed") {
				t.Fatalf("unexpected SSE payload: %s", line)
			}
			return
		}
	}
}
