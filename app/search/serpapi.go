package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const serpAPIBaseURL = "https://serpapi.com/search.json"

// SerpAPI queries the SerpAPI Google News engine.
type SerpAPI struct {
	BaseURL    string
	httpClient *http.Client
	apiKey     string
	userAgent  string
}

var _ Source = (*SerpAPI)(nil)

func NewSerpAPI(httpClient *http.Client, apiKey, userAgent string) *SerpAPI {
	return &SerpAPI{
		BaseURL:    serpAPIBaseURL,
		httpClient: httpClient,
		apiKey:     apiKey,
		userAgent:  userAgent,
	}
}

func (s *SerpAPI) Name() string {
	return "serpapi"
}

type serpAPIResponse struct {
	Error       string `json:"error"`
	NewsResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Source  struct {
			Name string `json:"name"`
		} `json:"source"`
		Date string `json:"date"`
	} `json:"news_results"`
}

func (s *SerpAPI) Search(ctx context.Context, query Query) ([]Article, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("tbm", "nws")
	params.Set("q", query.Terms())
	params.Set("api_key", s.apiKey)
	params.Set("num", "10")

	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query SerpAPI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var decoded serpAPIResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse SerpAPI response: %w", err)
	}

	if decoded.Error != "" {
		return nil, fmt.Errorf("SerpAPI error: %s", decoded.Error)
	}

	articles := make([]Article, 0, len(decoded.NewsResults))
	for _, result := range decoded.NewsResults {
		article := Article{
			Title:       result.Title,
			Link:        result.Link,
			Snippet:     result.Snippet,
			Source:      result.Source.Name,
			PublishedAt: time.Now().UTC(),
		}
		// SerpAPI often returns relative dates ("2 hours ago"); those fall
		// back to the fetch time above
		if parsed, err := time.Parse("01/02/2006, 03:04 PM, -0700 MST", result.Date); err == nil {
			article.PublishedAt = parsed.UTC()
		}
		articles = append(articles, article)
	}

	return clampArticles(articles, query.Limit), nil
}

func clampArticles(articles []Article, limit int) []Article {
	if limit > 0 && len(articles) > limit {
		return articles[:limit]
	}
	return articles
}
