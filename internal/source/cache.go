package source

import "sync"

// sharedCache is the single process-wide Source cache keyed by filename
// that spec.md §5 describes: it memoizes parsed Sources across ApiMap
// instances and is cleared whenever a new ApiMap initializes. A correct
// re-implementation may scope this per instance instead, as long as parse
// failures keep surfacing as empty Sources rather than errors out of
// Initialize — see apimap.New.
var sharedCache = newProcessCache()

type processCache struct {
	mu    sync.Mutex
	bySrc map[string]*TextSource
}

func newProcessCache() *processCache {
	return &processCache{bySrc: map[string]*TextSource{}}
}

// LoadCached returns the cached Source for filename, loading and caching it
// if absent. The error reports whether the load itself failed (the returned
// Source is always non-nil and usable, per the "parse failures become empty
// Sources" invariant).
func LoadCached(filename string) (*TextSource, error) {
	sharedCache.mu.Lock()
	if s, ok := sharedCache.bySrc[filename]; ok {
		sharedCache.mu.Unlock()
		return s, nil
	}
	sharedCache.mu.Unlock()

	s, err := Load(filename)
	sharedCache.mu.Lock()
	sharedCache.bySrc[filename] = s
	sharedCache.mu.Unlock()
	return s, err
}

// Put installs src in the shared cache, used when a caller already has a
// fresh Source (e.g. after re-reading a changed file) and wants subsequent
// LoadCached calls to see it without re-parsing.
func Put(src *TextSource) {
	sharedCache.mu.Lock()
	sharedCache.bySrc[src.Filename()] = src
	sharedCache.mu.Unlock()
}

// Evict drops filename from the shared cache.
func Evict(filename string) {
	sharedCache.mu.Lock()
	delete(sharedCache.bySrc, filename)
	sharedCache.mu.Unlock()
}

// ResetGlobalCache clears the entire shared cache. ApiMap.New calls this so
// each new ApiMap instance starts from a clean slate, matching spec.md §5's
// "cleared when a new ApiMap initializes."
func ResetGlobalCache() {
	sharedCache.mu.Lock()
	sharedCache.bySrc = map[string]*TextSource{}
	sharedCache.mu.Unlock()
}
