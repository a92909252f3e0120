package digest

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avelichko/news-digest/app/email"
	"github.com/avelichko/news-digest/app/orgs"
	"github.com/avelichko/news-digest/app/runner"
	"github.com/avelichko/news-digest/app/search"
)

type mockSource struct {
	name     string
	articles []search.Article
	err      error
	calls    int
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Search(ctx context.Context, query search.Query) ([]search.Article, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.articles, nil
}

type mockSeenRepo struct {
	seen        map[string]bool
	checkErr    error
	pruneCalls  int
	pruneCutoff time.Time
}

func newMockSeenRepo() *mockSeenRepo {
	return &mockSeenRepo{seen: make(map[string]bool)}
}

func (m *mockSeenRepo) CheckSeen(contentHash string) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	return m.seen[contentHash], nil
}

func (m *mockSeenRepo) MarkSeen(contentHash, orgName, title, link string) error {
	m.seen[contentHash] = true
	return nil
}

func (m *mockSeenRepo) Prune(olderThan time.Time) (int64, error) {
	m.pruneCalls++
	m.pruneCutoff = olderThan
	return 0, nil
}

func (m *mockSeenRepo) GetSeenCount() (int, error) { return len(m.seen), nil }

type mockSender struct {
	sent []email.Message
	err  error
}

func (m *mockSender) Send(ctx context.Context, msg email.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newTestCache(t *testing.T, files map[string]string) *orgs.Cache {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write org file: %v", err)
		}
	}

	cache := orgs.NewCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load org configs: %v", err)
	}

	return cache
}

func newTestPipeline(cache *orgs.Cache, seenRepo *mockSeenRepo, sources []search.Source, sender email.Sender) *Pipeline {
	return NewPipeline(cache, seenRepo, &http.Client{}, "Test Agent",
		func(secrets runner.Secrets) []search.Source { return sources },
		func(secrets runner.Secrets) email.Sender { return sender })
}

func noopReport(status runner.Status, stage runner.Stage) {}

var testSecrets = runner.Secrets{
	EmailTo:   "watch@example.com",
	EmailFrom: "agent@example.com",
	EmailPass: "app-password",
}

func TestPipeline_SendsDigest(t *testing.T) {
	cache := newTestCache(t, map[string]string{
		"acme.yml": "name: Acme Corp\nsettings:\n  enabled: true\n",
	})

	source := &mockSource{name: "primary", articles: []search.Article{
		{Title: "Acme raises series B", Link: "https://example.com/1", Snippet: "Funding"},
		{Title: "Acme expands", Link: "https://example.com/2"},
	}}
	seenRepo := newMockSeenRepo()
	sender := &mockSender{}

	pipeline := newTestPipeline(cache, seenRepo, []search.Source{source}, sender)

	result, err := pipeline.Run(context.Background(), t.TempDir(), testSecrets, noopReport)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.ArticlesFound != 2 {
		t.Errorf("Expected 2 articles found, got %d", result.ArticlesFound)
	}
	if !result.EmailSent {
		t.Error("Expected email to be sent")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("Expected 1 email, got %d", len(sender.sent))
	}

	msg := sender.sent[0]
	if msg.To != "watch@example.com" {
		t.Errorf("Expected recipient from secrets, got '%s'", msg.To)
	}
	if msg.From != "agent@example.com" {
		t.Errorf("Expected sender from secrets, got '%s'", msg.From)
	}

	count, _ := seenRepo.GetSeenCount()
	if count != 2 {
		t.Errorf("Expected 2 items marked seen, got %d", count)
	}
	if seenRepo.pruneCalls != 1 {
		t.Errorf("Expected 1 prune after delivery, got %d", seenRepo.pruneCalls)
	}
	if !seenRepo.pruneCutoff.Before(time.Now()) {
		t.Error("Expected prune cutoff in the past")
	}
}

func TestPipeline_FallbackChain(t *testing.T) {
	cache := newTestCache(t, map[string]string{
		"acme.yml": "name: Acme Corp\nsettings:\n  enabled: true\n",
	})

	failing := &mockSource{name: "failing", err: errors.New("rate limited")}
	empty := &mockSource{name: "empty"}
	working := &mockSource{name: "working", articles: []search.Article{
		{Title: "Acme news", Link: "https://example.com/1"},
	}}
	sender := &mockSender{}

	pipeline := newTestPipeline(cache, newMockSeenRepo(), []search.Source{failing, empty, working}, sender)

	result, err := pipeline.Run(context.Background(), t.TempDir(), testSecrets, noopReport)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if failing.calls != 1 || empty.calls != 1 || working.calls != 1 {
		t.Errorf("Expected every source to be tried once, got %d/%d/%d", failing.calls, empty.calls, working.calls)
	}
	if result.ArticlesFound != 1 {
		t.Errorf("Expected 1 article from the fallback source, got %d", result.ArticlesFound)
	}
	if !result.EmailSent {
		t.Error("Expected email to be sent")
	}
}

func TestPipeline_DeduplicatesAcrossRuns(t *testing.T) {
	cache := newTestCache(t, map[string]string{
		"acme.yml": "name: Acme Corp\nsettings:\n  enabled: true\n",
	})

	source := &mockSource{name: "primary", articles: []search.Article{
		{Title: "Acme raises series B", Link: "https://example.com/1"},
	}}
	seenRepo := newMockSeenRepo()
	sender := &mockSender{}

	pipeline := newTestPipeline(cache, seenRepo, []search.Source{source}, sender)

	first, err := pipeline.Run(context.Background(), t.TempDir(), testSecrets, noopReport)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if !first.EmailSent || first.ArticlesFound != 1 {
		t.Errorf("Expected first run to send 1 article, got %+v", first)
	}

	second, err := pipeline.Run(context.Background(), t.TempDir(), testSecrets, noopReport)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if second.EmailSent {
		t.Error("Expected no email when every article was already seen")
	}
	if second.ArticlesFound != 0 {
		t.Errorf("Expected 0 fresh articles on second run, got %d", second.ArticlesFound)
	}
	if len(sender.sent) != 1 {
		t.Errorf("Expected exactly 1 email across both runs, got %d", len(sender.sent))
	}
}

func TestPipeline_NoEnabledOrgs(t *testing.T) {
	cache := newTestCache(t, map[string]string{
		"acme.yml": "name: Acme Corp\nsettings:\n  enabled: false\n",
	})

	source := &mockSource{name: "primary", articles: []search.Article{
		{Title: "Acme news", Link: "https://example.com/1"},
	}}
	sender := &mockSender{}

	pipeline := newTestPipeline(cache, newMockSeenRepo(), []search.Source{source}, sender)

	result, err := pipeline.Run(context.Background(), t.TempDir(), testSecrets, noopReport)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if source.calls != 0 {
		t.Error("Expected no search for disabled organizations")
	}
	if result.EmailSent || result.ArticlesFound != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestPipeline_SenderFailure(t *testing.T) {
	cache := newTestCache(t, map[string]string{
		"acme.yml": "name: Acme Corp\nsettings:\n  enabled: true\n",
	})

	source := &mockSource{name: "primary", articles: []search.Article{
		{Title: "Acme news", Link: "https://example.com/1"},
	}}
	seenRepo := newMockSeenRepo()
	sender := &mockSender{err: errors.New("SMTP authentication failed")}

	pipeline := newTestPipeline(cache, seenRepo, []search.Source{source}, sender)

	result, err := pipeline.Run(context.Background(), t.TempDir(), testSecrets, noopReport)
	if err == nil {
		t.Fatal("Expected error when delivery fails")
	}
	if result.EmailSent {
		t.Error("Expected EmailSent false on delivery failure")
	}

	// Undelivered articles must stay eligible for the next run
	count, _ := seenRepo.GetSeenCount()
	if count != 0 {
		t.Errorf("Expected no items marked seen after failed delivery, got %d", count)
	}
	if seenRepo.pruneCalls != 0 {
		t.Errorf("Expected no prune after failed delivery, got %d", seenRepo.pruneCalls)
	}
}

func TestPipeline_RedeliversAfterFailedSend(t *testing.T) {
	cache := newTestCache(t, map[string]string{
		"acme.yml": "name: Acme Corp\nsettings:\n  enabled: true\n",
	})

	source := &mockSource{name: "primary", articles: []search.Article{
		{Title: "Acme raises series B", Link: "https://example.com/1"},
	}}
	seenRepo := newMockSeenRepo()

	failing := newTestPipeline(cache, seenRepo, []search.Source{source},
		&mockSender{err: errors.New("connection refused")})
	if _, err := failing.Run(context.Background(), t.TempDir(), testSecrets, noopReport); err == nil {
		t.Fatal("Expected error from the failed delivery")
	}

	sender := &mockSender{}
	working := newTestPipeline(cache, seenRepo, []search.Source{source}, sender)

	result, err := working.Run(context.Background(), t.TempDir(), testSecrets, noopReport)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if result.ArticlesFound != 1 || !result.EmailSent {
		t.Errorf("Expected the article redelivered after the failed send, got %+v", result)
	}
	if len(sender.sent) != 1 {
		t.Errorf("Expected 1 email from the second run, got %d", len(sender.sent))
	}

	count, _ := seenRepo.GetSeenCount()
	if count != 1 {
		t.Errorf("Expected 1 item marked seen after delivery, got %d", count)
	}
}

func TestPipeline_DeduplicatesWithinRun(t *testing.T) {
	cache := newTestCache(t, map[string]string{
		"acme.yml": "name: Acme Corp\nsettings:\n  enabled: true\n",
		"apex.yml": "name: Apex Inc\nsettings:\n  enabled: true\n",
	})

	shared := search.Article{Title: "Joint venture announced", Link: "https://example.com/jv"}
	source := &mockSource{name: "primary", articles: []search.Article{shared}}
	sender := &mockSender{}

	pipeline := newTestPipeline(cache, newMockSeenRepo(), []search.Source{source}, sender)

	result, err := pipeline.Run(context.Background(), t.TempDir(), testSecrets, noopReport)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.ArticlesFound != 1 {
		t.Errorf("Expected the shared article counted once, got %d", result.ArticlesFound)
	}
}

func TestPipeline_SeenRepoFailure(t *testing.T) {
	cache := newTestCache(t, map[string]string{
		"acme.yml": "name: Acme Corp\nsettings:\n  enabled: true\n",
	})

	source := &mockSource{name: "primary", articles: []search.Article{
		{Title: "Acme news", Link: "https://example.com/1"},
	}}
	seenRepo := newMockSeenRepo()
	seenRepo.checkErr = errors.New("database locked")
	sender := &mockSender{}

	pipeline := newTestPipeline(cache, seenRepo, []search.Source{source}, sender)

	if _, err := pipeline.Run(context.Background(), t.TempDir(), testSecrets, noopReport); err == nil {
		t.Error("Expected error when the dedup store fails")
	}
	if len(sender.sent) != 0 {
		t.Error("Expected no email when the run fails")
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	cache := newTestCache(t, map[string]string{
		"acme.yml": "name: Acme Corp\nsettings:\n  enabled: true\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := newTestPipeline(cache, newMockSeenRepo(), []search.Source{&mockSource{name: "primary"}}, &mockSender{})

	if _, err := pipeline.Run(ctx, t.TempDir(), testSecrets, noopReport); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
