package repository

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	"FinSight/pkg/config"
	applogger "FinSight/pkg/logger"
)

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	Source      rssSource `xml:"source"`
	GUID        string    `xml:"guid"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

var _ domrepo.HeadlineSource = (*GoogleNewsSource)(nil)

// GoogleNewsSource searches the Google News RSS feed for "<TICKER> stock".
type GoogleNewsSource struct {
	client  *resty.Client
	baseURL string
	limiter *rate.Limiter
	l       *applogger.Logger
}

func NewGoogleNewsSource(cfg config.NewsConfig, l *applogger.Logger) *GoogleNewsSource {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRetryCount(max(cfg.MaxAttempts-1, 0)).
		SetRetryWaitTime(cfg.Backoff).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &GoogleNewsSource{
		client:  client,
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1)),
		l:       l,
	}
}

// Fetch returns the feed's items most recent first. Items without a parseable
// date or title are skipped.
func (g *GoogleNewsSource) Fetch(ctx context.Context, ticker string) ([]models.RawHeadline, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: google news %s: %w", models.ErrUpstreamFetchFailed, ticker, err)
	}

	start := time.Now()
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    ticker + " stock",
			"hl":   "en-US",
			"gl":   "US",
			"ceid": "US:en",
		}).
		Get(g.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: google news %s: %w", models.ErrUpstreamFetchFailed, ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: google news %s: http %d", models.ErrUpstreamFetchFailed, ticker, resp.StatusCode())
	}

	var feed rssFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("%w: google news %s: decode rss: %w", models.ErrUpstreamFetchFailed, ticker, err)
	}

	out := make([]models.RawHeadline, 0, len(feed.Channel.Items))
	skipped := 0
	for _, it := range feed.Channel.Items {
		h, ok := toHeadline(it)
		if !ok {
			skipped++
			continue
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Published.After(out[j].Published) })

	g.l.Debug("google news fetched",
		applogger.Ticker(ticker),
		applogger.Int("items", len(out)),
		applogger.Int("skipped", skipped),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func toHeadline(it rssItem) (models.RawHeadline, bool) {
	published, ok := parsePubDate(it.PubDate)
	source := strings.TrimSpace(it.Source.Text)
	title := strings.TrimSpace(it.Title)
	if source != "" {
		title = strings.TrimSpace(strings.TrimSuffix(title, " - "+source))
	}
	if !ok || title == "" {
		return models.RawHeadline{}, false
	}
	return models.RawHeadline{
		Title:     title,
		Link:      strings.TrimSpace(it.Link),
		Source:    source,
		Summary:   htmlText(it.Description),
		Published: published,
	}, true
}

func parsePubDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC822Z, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// htmlText flattens the feed's HTML description to plain text.
func htmlText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
