package search

import (
	"context"
	"fmt"
	"time"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// GoogleCSE queries the Google Custom Search JSON API, sorted by date when
// the engine supports it. Used as the first fallback when SerpAPI returns
// nothing.
type GoogleCSE struct {
	apiKey string
	cseID  string
}

var _ Source = (*GoogleCSE)(nil)

func NewGoogleCSE(apiKey, cseID string) *GoogleCSE {
	return &GoogleCSE{
		apiKey: apiKey,
		cseID:  cseID,
	}
}

func (g *GoogleCSE) Name() string {
	return "google_cse"
}

func (g *GoogleCSE) Search(ctx context.Context, query Query) ([]Article, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}

	resp, err := svc.Cse.List().
		Q(query.Terms()).
		Cx(g.cseID).
		Sort("date").
		Num(10).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("custom search failed: %w", err)
	}

	articles := make([]Article, 0, len(resp.Items))
	for _, item := range resp.Items {
		articles = append(articles, Article{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
			Source:  item.DisplayLink,
			// The JSON API exposes no reliable publication date
			PublishedAt: time.Now().UTC(),
		})
	}

	return clampArticles(articles, query.Limit), nil
}
