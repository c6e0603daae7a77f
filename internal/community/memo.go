package community

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// Memo caches scores for the life of one request or batch run. It never
// outlives the run, so votes recorded afterwards are always seen.
type Memo struct {
	next  Provider
	cache *gocache.Cache
}

// NewMemo wraps next. Entries never expire; drop the Memo when the run ends.
func NewMemo(next Provider) *Memo {
	return &Memo{
		next:  next,
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Score returns the cached score or asks the wrapped provider
func (m *Memo) Score(ctx context.Context, key Key) (float64, error) {
	k := key.String()
	if val, found := m.cache.Get(k); found {
		return val.(float64), nil
	}

	score, err := m.next.Score(ctx, key)
	if err != nil {
		return 0, err
	}
	m.cache.Set(k, score, gocache.NoExpiration)
	return score, nil
}

// Forget drops a cached score, e.g. after a vote inside the run
func (m *Memo) Forget(key Key) {
	m.cache.Delete(key.String())
}

// Len returns the number of cached scores
func (m *Memo) Len() int {
	return m.cache.ItemCount()
}
