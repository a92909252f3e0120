package orgs

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Cache holds loaded organization configurations for concurrent access
// by the scheduler and the HTTP handlers.
type Cache struct {
	loader *Loader
	cache  map[string]*Config
	mu     sync.RWMutex
}

func NewCache(orgsDir string) *Cache {
	return &Cache{
		loader: NewLoader(orgsDir),
		cache:  make(map[string]*Config),
	}
}

// Run loads all organization configurations into the cache, replacing
// any previous contents.
func (c *Cache) Run() error {
	configs, err := c.loader.LoadAll()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = configs

	for name, config := range configs {
		slog.Debug("Organization configuration loaded", "org", name, "enabled", config.Settings.Enabled, "keywords", len(config.Keywords))
	}

	return nil
}

func (c *Cache) GetConfig(name string) (*Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	config, ok := c.cache[name]
	if !ok {
		return nil, fmt.Errorf("organization not found: %s", name)
	}

	return config, nil
}

// GetEnabledConfigs returns enabled organizations in stable name order,
// so digest sections keep a deterministic ordering between runs.
func (c *Cache) GetEnabledConfigs() []*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.cache))
	for name, config := range c.cache {
		if config.Settings.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	configs := make([]*Config, 0, len(names))
	for _, name := range names {
		configs = append(configs, c.cache[name])
	}

	return configs
}

func (c *Cache) GetConfigs() map[string]*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	configs := make(map[string]*Config, len(c.cache))
	for name, config := range c.cache {
		configs[name] = config
	}

	return configs
}

func (c *Cache) GetConfigCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache)
}
