package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type rssDocument struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// Collector polls a set of RSS feeds and serves a deduplicated, time-windowed
// view of recent headlines to the run loop.
type Collector struct {
	feeds  []string
	client *http.Client
	log    zerolog.Logger
}

// NewCollector builds a collector over the given feed URLs.
func NewCollector(feeds []string, log zerolog.Logger) *Collector {
	return &Collector{
		feeds:  feeds,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Recent fetches every configured feed and returns headlines inside the lookback
// window, newest first. A failing feed is logged and skipped, never fatal.
func (c *Collector) Recent(ctx context.Context, now time.Time, lookback time.Duration) ([]Headline, error) {
	seen := make(map[string]struct{})
	var out []Headline
	for _, url := range c.feeds {
		items, err := c.fetch(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn().Err(err).Str("feed", url).Msg("rss fetch failed")
			continue
		}
		for _, h := range items {
			age := now.Sub(h.Ts)
			if age < 0 || age > lookback {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(h.Title))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts.After(out[j].Ts) })
	return out, nil
}

func (c *Collector) fetch(ctx context.Context, url string) ([]Headline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rss request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss feed returned status %d", resp.StatusCode)
	}

	var doc rssDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}

	items := make([]Headline, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		ts, ok := parsePubDate(it.PubDate)
		if !ok {
			// Feeds without usable timestamps still count as fresh news.
			ts = time.Now().UTC()
		}
		items = append(items, Headline{Ts: ts, Title: title})
	}
	return items, nil
}

func parsePubDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range pubDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
