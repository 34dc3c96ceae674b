package kalshi

import "sync"

// SlugCache maps series tickers to URL slugs for the lifetime of a run.
type SlugCache struct {
	mu    sync.RWMutex
	slugs map[string]string
}

func NewSlugCache() *SlugCache {
	return &SlugCache{slugs: make(map[string]string)}
}

func (s *SlugCache) Get(seriesTicker string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slug, ok := s.slugs[seriesTicker]
	return slug, ok
}

func (s *SlugCache) Put(seriesTicker, slug string) {
	s.mu.Lock()
	s.slugs[seriesTicker] = slug
	s.mu.Unlock()
}

func (s *SlugCache) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slugs)
}
