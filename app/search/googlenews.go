package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
)

const googleNewsBaseURL = "https://news.google.com/rss/search"

// GoogleNews fetches the public Google News RSS feed for a query. Last
// fallback in the source chain; needs no credentials.
type GoogleNews struct {
	BaseURL      string
	httpClient   *http.Client
	gofeedParser *gofeed.Parser
	userAgent    string
}

var _ Source = (*GoogleNews)(nil)

func NewGoogleNews(httpClient *http.Client, userAgent string) *GoogleNews {
	return &GoogleNews{
		BaseURL:      googleNewsBaseURL,
		httpClient:   httpClient,
		gofeedParser: gofeed.NewParser(),
		userAgent:    userAgent,
	}
}

func (g *GoogleNews) Name() string {
	return "google_news_rss"
}

func (g *GoogleNews) Search(ctx context.Context, query Query) ([]Article, error) {
	params := url.Values{}
	params.Set("q", query.Terms())
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")

	data, err := g.fetch(ctx, g.BaseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := g.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		article := Article{
			Title:       item.Title,
			Link:        item.Link,
			Snippet:     item.Description,
			Source:      feed.Title,
			PublishedAt: time.Now().UTC(),
		}
		if item.PublishedParsed != nil {
			article.PublishedAt = item.PublishedParsed.UTC()
		}
		articles = append(articles, article)
	}

	return clampArticles(articles, query.Limit), nil
}

func (g *GoogleNews) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
