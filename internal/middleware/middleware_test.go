package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"movie-discovery-recommender/internal/metrics"
)

func TestRateLimiterFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	app := fiber.New()
	app.Use(NewRateLimiter(rdb, 1, time.Minute).Handler())
	app.Get("/", func(c fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200 while redis is down", i, resp.StatusCode)
		}
		if resp.Header.Get("X-RateLimit-Limit") != "" {
			t.Errorf("limit headers set without a counter")
		}
	}
}

func TestMetricsLabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/items/:id", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/boom", func(c fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "204")
	before := testutil.ToFloat64(counter)
	for _, id := range []string{"1", "2"} {
		if _, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/"+id, nil)); err != nil {
			t.Fatal(err)
		}
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("counter delta = %v, want 2", got)
	}

	teapot := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/boom", "418")
	before = testutil.ToFloat64(teapot)
	if _, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil)); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(teapot) - before; got != 1 {
		t.Errorf("error counter delta = %v, want 1", got)
	}
}
