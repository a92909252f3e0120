package orgs

// Config represents a single organization watch configuration
type Config struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Settings Settings `yaml:"settings"`
}

// Settings contains per-organization processing settings
type Settings struct {
	Enabled        bool `yaml:"enabled"`
	MaxArticles    int  `yaml:"max_articles"`
	ExtractContent bool `yaml:"extract_content"`
	Timeout        int  `yaml:"timeout"` // seconds, per search request
}
