package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSight/internal/domain/models"
	"FinSight/pkg/config"
	applogger "FinSight/pkg/logger"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>"AAPL stock" - Google News</title>
<item>
  <title>Apple beats estimates - Reuters</title>
  <link>https://news.example/a</link>
  <pubDate>Mon, 07 Oct 2024 10:00:00 GMT</pubDate>
  <description>&lt;a href="https://news.example/a"&gt;Apple beats estimates&lt;/a&gt;&amp;nbsp;&lt;font&gt;Reuters&lt;/font&gt;</description>
  <source url="https://reuters.com">Reuters</source>
</item>
<item>
  <title>Apple supplier warns - Bloomberg</title>
  <link>https://news.example/b</link>
  <pubDate>Mon, 07 Oct 2024 14:30:00 GMT</pubDate>
  <source url="https://bloomberg.com">Bloomberg</source>
</item>
<item>
  <title>Undated item</title>
  <pubDate>yesterday</pubDate>
</item>
</channel></rss>`

func testNewsConfig(url string) config.NewsConfig {
	return config.NewsConfig{
		BaseURL:     url,
		UserAgent:   "finsight-test",
		Timeout:     2 * time.Second,
		RateLimit:   1000,
		Burst:       10,
		MaxAttempts: 2,
		Backoff:     time.Millisecond,
	}
}

func TestGoogleNewsSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL stock", r.URL.Query().Get("q"))
		assert.Equal(t, "US:en", r.URL.Query().Get("ceid"))
		assert.Equal(t, "finsight-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	src := NewGoogleNewsSource(testNewsConfig(srv.URL), applogger.NewNop())
	got, err := src.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Apple supplier warns", got[0].Title)
	assert.Equal(t, "Bloomberg", got[0].Source)
	assert.Equal(t, time.Date(2024, 10, 7, 14, 30, 0, 0, time.UTC), got[0].Published)

	assert.Equal(t, "Apple beats estimates", got[1].Title)
	assert.Equal(t, "https://news.example/a", got[1].Link)
	assert.Contains(t, got[1].Summary, "Apple beats estimates")
	assert.NotContains(t, got[1].Summary, "<a")
}

func TestGoogleNewsSource_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	got, err := NewGoogleNewsSource(testNewsConfig(srv.URL), applogger.NewNop()).Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGoogleNewsSource_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "BAD stock" {
			_, _ = w.Write([]byte("<html>not rss"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewGoogleNewsSource(testNewsConfig(srv.URL), applogger.NewNop())

	_, err := src.Fetch(context.Background(), "MSFT")
	assert.True(t, errors.Is(err, models.ErrUpstreamFetchFailed))

	_, err = src.Fetch(context.Background(), "BAD")
	assert.True(t, errors.Is(err, models.ErrUpstreamFetchFailed))
}
