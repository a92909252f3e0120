package orgs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxArticles = 5
	DefaultTimeout     = 30
)

// Loader handles loading and validation of organization configurations
type Loader struct {
	orgsDir string
}

func NewLoader(orgsDir string) *Loader {
	return &Loader{orgsDir: orgsDir}
}

// LoadAll loads all YAML configuration files from the orgs directory,
// keyed by the file-derived organization identifier.
func (l *Loader) LoadAll() (map[string]*Config, error) {
	configs := make(map[string]*Config)

	if _, err := os.Stat(l.orgsDir); os.IsNotExist(err) {
		return configs, nil
	}

	files, err := filepath.Glob(filepath.Join(l.orgsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.orgsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		configs[name] = config
	}

	return configs, nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	l.setDefaults(&config)

	return &config, nil
}

func (l *Loader) setDefaults(config *Config) {
	if config.Settings.MaxArticles == 0 {
		config.Settings.MaxArticles = DefaultMaxArticles
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = DefaultTimeout
	}
}

func (l *Loader) validate(config *Config) error {
	if config.Name == "" {
		return fmt.Errorf("organization name is required")
	}
	if config.Settings.MaxArticles < 0 {
		return fmt.Errorf("max_articles must not be negative")
	}
	return nil
}
