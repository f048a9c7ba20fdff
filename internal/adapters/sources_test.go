package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClampSign(t *testing.T) {
	cases := map[int]int{5: 1, -5: -1, 0: 0}
	for in, want := range cases {
		if got := clampSign(in); got != want {
			t.Errorf("clampSign(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestTitlePrefix(t *testing.T) {
	got := titlePrefix("  Bitcoin ETF Approved Today  ", 7)
	if got != "bitcoin" {
		t.Errorf("titlePrefix = %q, want %q", got, "bitcoin")
	}
	if got := titlePrefix("abc", 10); got != "abc" {
		t.Errorf("expected a short title to pass through unchanged, got %q", got)
	}
}

func TestNewsAdapter_DedupesByTitlePrefixAndFiltersByKeyword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(newsResponse{Items: []newsItemResponse{
			{Title: "Bitcoin rallies on ETF news", Summary: "", PublishedAt: time.Now().Format(time.RFC3339), Sentiment: 1},
			{Title: "Bitcoin Rallies On ETF News Again", Summary: "", PublishedAt: time.Now().Format(time.RFC3339), Sentiment: 1},
			{Title: "Local weather forecast sunny", Summary: "", PublishedAt: time.Now().Format(time.RFC3339), Sentiment: 1},
		}})
	}))
	defer srv.Close()

	a := NewNewsAdapter(srv.URL, "key", []string{"bitcoin"})
	res := a.Fetch(context.Background(), "BTCUSDT", time.Now())
	if !res.Available {
		t.Fatalf("expected success, got err=%v", res.Err)
	}
	if len(res.Value) != 1 {
		t.Fatalf("expected the duplicate title and the off-keyword item to be dropped, got %d items: %+v", len(res.Value), res.Value)
	}
}

func TestNewsAdapter_DisabledWithoutAPIKey(t *testing.T) {
	a := NewNewsAdapter("http://example.invalid", "", nil)
	res := a.Fetch(context.Background(), "BTCUSDT", time.Now())
	if res.Available {
		t.Error("expected an adapter with no API key to report unavailable")
	}
}

func TestCandleAdapter_RejectsNonMonotonicTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(candleResponse{Candles: [][6]float64{
			{1000, 100, 105, 95, 102, 10},
			{1000, 102, 107, 97, 104, 10}, // duplicate open time: not strictly increasing
		}})
	}))
	defer srv.Close()

	a := NewCandleAdapter(srv.URL, "key")
	res := a.Fetch(context.Background(), "BTCUSDT", "1h", 2)
	if res.Available {
		t.Fatal("expected a non-monotonic candle response to fail")
	}
}

func TestCandleAdapter_AcceptsMonotonicTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(candleResponse{Candles: [][6]float64{
			{1000, 100, 105, 95, 102, 10},
			{2000, 102, 107, 97, 104, 10},
		}})
	}))
	defer srv.Close()

	a := NewCandleAdapter(srv.URL, "key")
	res := a.Fetch(context.Background(), "BTCUSDT", "1h", 2)
	if !res.Available {
		t.Fatalf("expected success, got err=%v", res.Err)
	}
	if len(res.Value) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(res.Value))
	}
}

func TestRetry_StopsOnFirstSuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond, Multiplier: 2}, func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt on immediate success, got %d", attempts)
	}
}

func TestRetry_ExhaustsMaxAttemptsOnPersistentFailure(t *testing.T) {
	attempts := 0
	boom := errors.New("transient upstream failure")
	err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}, func(ctx context.Context) error {
		attempts++
		return boom
	})
	if err == nil {
		t.Fatal("expected the last error to be returned after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_StopsImmediatelyOnPermanentError(t *testing.T) {
	attempts := 0
	boom := &permanentError{err: errors.New("client error 400")}
	err := Retry(context.Background(), RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond, Multiplier: 2}, func(ctx context.Context) error {
		attempts++
		return boom
	})
	if err == nil {
		t.Fatal("expected an error to be returned")
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt before giving up on a permanent error, got %d", attempts)
	}
}

func TestRetry_StopsEarlyOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Retry(ctx, RetryPolicy{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond, Multiplier: 2}, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			cancel()
		}
		return context.DeadlineExceeded
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts >= 5 {
		t.Errorf("expected cancellation to cut the retry loop short, got %d attempts", attempts)
	}
}
