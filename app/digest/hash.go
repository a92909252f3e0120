package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/avelichko/news-digest/app/search"
)

// ContentHash identifies an article for deduplication. Title and link are
// normalized so trivial whitespace or case differences between sources do
// not produce duplicate digest entries.
func ContentHash(article search.Article) string {
	content := fmt.Sprintf("%s|%s",
		strings.ToLower(strings.TrimSpace(article.Title)),
		strings.TrimSpace(article.Link))

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
