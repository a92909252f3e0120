package digest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avelichko/news-digest/app/database"
	"github.com/avelichko/news-digest/app/email"
	"github.com/avelichko/news-digest/app/orgs"
	"github.com/avelichko/news-digest/app/runner"
	"github.com/avelichko/news-digest/app/search"
)

// seenRetention bounds the dedup store; entries older than this cannot
// resurface in search results anyway.
const seenRetention = 90 * 24 * time.Hour

// SourceFactory builds the search fallback chain for one run from that
// run's secret set.
type SourceFactory func(secrets runner.Secrets) []search.Source

// SenderFactory builds the email sender for one run from that run's
// secret set.
type SenderFactory func(secrets runner.Secrets) email.Sender

// DefaultSources is the production chain: SerpAPI first, Google Custom
// Search as fallback, the public Google News feed last.
func DefaultSources(httpClient *http.Client, userAgent string) SourceFactory {
	return func(secrets runner.Secrets) []search.Source {
		return []search.Source{
			search.NewSerpAPI(httpClient, secrets.SerpAPIKey, userAgent),
			search.NewGoogleCSE(secrets.GoogleAPIKey, secrets.GoogleCSEID),
			search.NewGoogleNews(httpClient, userAgent),
		}
	}
}

// Pipeline is the built-in job: search every enabled organization, drop
// already-seen articles, and send one HTML digest when anything fresh
// remains. Organizations are processed sequentially.
type Pipeline struct {
	cache      *orgs.Cache
	seenRepo   database.SeenItemRepository
	extractor  *Extractor
	composer   *Composer
	httpClient *http.Client
	userAgent  string
	sources    SourceFactory
	sender     SenderFactory
}

var _ runner.Job = (*Pipeline)(nil)

func NewPipeline(cache *orgs.Cache, seenRepo database.SeenItemRepository,
	httpClient *http.Client, userAgent string, sources SourceFactory, sender SenderFactory) *Pipeline {
	return &Pipeline{
		cache:      cache,
		seenRepo:   seenRepo,
		extractor:  NewExtractor(),
		composer:   NewComposer(),
		httpClient: httpClient,
		userAgent:  userAgent,
		sources:    sources,
		sender:     sender,
	}
}

func (p *Pipeline) Name() string {
	return "digest"
}

func (p *Pipeline) Run(ctx context.Context, workspace string, secrets runner.Secrets, report runner.ReportFunc) (runner.Result, error) {
	report(runner.StatusRunning, runner.StageExecute)

	result := runner.Result{}

	configs := p.cache.GetEnabledConfigs()
	if len(configs) == 0 {
		slog.Info("No enabled organizations configured, nothing to do")
		return result, nil
	}

	sources := p.sources(secrets)

	var sections []OrgDigest
	var pending []seenEntry
	inRun := make(map[string]bool)
	for _, org := range configs {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		slog.Debug("Fetching news", "org", org.Name)

		articles := p.searchOrg(ctx, sources, org)

		fresh, entries, err := p.filterSeen(org, articles, inRun)
		if err != nil {
			return result, err
		}
		pending = append(pending, entries...)

		if org.Settings.ExtractContent {
			p.enrichSnippets(ctx, org, fresh)
		}

		if len(fresh) > 0 {
			sections = append(sections, OrgDigest{Org: org.Name, Articles: fresh})
			result.ArticlesFound += len(fresh)
		}
	}

	if len(sections) == 0 {
		slog.Info("No new news found")
		return result, nil
	}

	subject, body, err := p.composer.Run(sections, time.Now())
	if err != nil {
		return result, fmt.Errorf("failed to compose digest: %w", err)
	}

	msg := email.Message{
		From:     secrets.EmailFrom,
		To:       secrets.EmailTo,
		Subject:  subject,
		HTMLBody: body,
	}

	if err := p.sender(secrets).Send(ctx, msg); err != nil {
		return result, fmt.Errorf("failed to send digest: %w", err)
	}

	result.EmailSent = true

	// Articles are recorded as seen only after delivery, so a failed send
	// leaves them eligible for the next run
	for _, entry := range pending {
		if err := p.seenRepo.MarkSeen(entry.hash, entry.org, entry.title, entry.link); err != nil {
			return result, fmt.Errorf("failed to mark article seen: %w", err)
		}
	}

	if pruned, err := p.seenRepo.Prune(time.Now().Add(-seenRetention)); err != nil {
		slog.Warn("Failed to prune old seen items", "error", err)
	} else if pruned > 0 {
		slog.Debug("Pruned old seen items", "count", pruned)
	}

	slog.Info("Digest sent", "orgs", len(sections), "articles", result.ArticlesFound)

	return result, nil
}

// searchOrg walks the source chain until one returns articles. Source
// failures are logged and fall through to the next source.
func (p *Pipeline) searchOrg(ctx context.Context, sources []search.Source, org *orgs.Config) []search.Article {
	query := search.Query{
		Org:      org.Name,
		Keywords: org.Keywords,
		Limit:    org.Settings.MaxArticles,
	}

	for _, source := range sources {
		searchCtx, cancel := context.WithTimeout(ctx, time.Duration(org.Settings.Timeout)*time.Second)
		articles, err := source.Search(searchCtx, query)
		cancel()

		if err != nil {
			slog.Warn("Search source failed, trying next", "org", org.Name, "source", source.Name(), "error", err)
			continue
		}
		if len(articles) == 0 {
			slog.Debug("No results, trying next source", "org", org.Name, "source", source.Name())
			continue
		}

		slog.Debug("Search results", "org", org.Name, "source", source.Name(), "count", len(articles))
		return articles
	}

	slog.Warn("No results from any source", "org", org.Name)
	return nil
}

// seenEntry is a dedup record awaiting persistence once the digest is
// delivered.
type seenEntry struct {
	hash  string
	org   string
	title string
	link  string
}

func (p *Pipeline) filterSeen(org *orgs.Config, articles []search.Article, inRun map[string]bool) ([]search.Article, []seenEntry, error) {
	var fresh []search.Article
	var entries []seenEntry
	for _, article := range articles {
		hash := ContentHash(article)
		if inRun[hash] {
			continue
		}

		seen, err := p.seenRepo.CheckSeen(hash)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check for duplicates: %w", err)
		}
		if seen {
			continue
		}

		inRun[hash] = true
		entries = append(entries, seenEntry{hash: hash, org: org.Name, title: article.Title, link: article.Link})
		fresh = append(fresh, article)
	}

	return fresh, entries, nil
}

// enrichSnippets replaces search snippets with readable excerpts from the
// article pages. Extraction failures keep the original snippet.
func (p *Pipeline) enrichSnippets(ctx context.Context, org *orgs.Config, articles []search.Article) {
	for i := range articles {
		data, err := p.fetchPage(ctx, articles[i].Link, org.Settings.Timeout)
		if err != nil {
			slog.Debug("Failed to fetch article page", "org", org.Name, "link", articles[i].Link, "error", err)
			continue
		}

		snippet, err := p.extractor.Run(data)
		if err != nil {
			slog.Debug("Failed to extract content", "org", org.Name, "link", articles[i].Link, "error", err)
			continue
		}

		articles[i].Snippet = snippet
	}
}

func (p *Pipeline) fetchPage(ctx context.Context, pageURL string, timeout int) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
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
