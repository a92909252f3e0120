package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleNewsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>"Acme Corp" - Google News</title>
  <item>
    <title>Acme Corp announces new product</title>
    <link>https://example.com/product</link>
    <description>Product launch coverage</description>
    <pubDate>Mon, 02 Mar 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Acme Corp quarterly results</title>
    <link>https://example.com/results</link>
    <description>Earnings report</description>
    <pubDate>Sun, 01 Mar 2026 12:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestGoogleNews_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Acme Corp" {
			t.Errorf("Unexpected query: %s", r.URL.Query().Get("q"))
		}
		if r.Header.Get("User-Agent") != "Test Agent" {
			t.Errorf("Unexpected user agent: %s", r.Header.Get("User-Agent"))
		}

		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleNewsFeed))
	}))
	defer server.Close()

	source := NewGoogleNews(server.Client(), "Test Agent")
	source.BaseURL = server.URL

	articles, err := source.Search(context.Background(), Query{Org: "Acme Corp", Limit: 5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}
	if articles[0].Title != "Acme Corp announces new product" {
		t.Errorf("Unexpected title: %s", articles[0].Title)
	}
	if articles[0].Link != "https://example.com/product" {
		t.Errorf("Unexpected link: %s", articles[0].Link)
	}
	if articles[0].PublishedAt.IsZero() {
		t.Error("Expected publication date from pubDate")
	}
}

func TestGoogleNews_SearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := NewGoogleNews(server.Client(), "Test Agent")
	source.BaseURL = server.URL

	if _, err := source.Search(context.Background(), Query{Org: "Acme Corp"}); err == nil {
		t.Error("Expected error for non-200 response")
	}
}

func TestGoogleNews_SearchInvalidFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a feed"))
	}))
	defer server.Close()

	source := NewGoogleNews(server.Client(), "Test Agent")
	source.BaseURL = server.URL

	if _, err := source.Search(context.Background(), Query{Org: "Acme Corp"}); err == nil {
		t.Error("Expected error for unparseable feed")
	}
}
