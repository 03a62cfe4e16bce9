// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import lru "github.com/hashicorp/golang-lru"

// LRU a typed LRU cache extends golang-lru.
type LRU[K comparable, V any] struct {
	cache *lru.Cache
}

// NewLRU create a LRU cache instance.
// maxSize should be > 0, or an error returned.
func NewLRU[K comparable, V any](maxSize int) (*LRU[K, V], error) {
	cache, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{cache}, nil
}

// Get looks up the value of key.
func (l *LRU[K, V]) Get(key K) (value V, ok bool) {
	v, ok := l.cache.Get(key)
	if !ok {
		return value, false
	}
	return v.(V), true
}

// Add adds or replaces the value of key.
func (l *LRU[K, V]) Add(key K, value V) {
	l.cache.Add(key, value)
}

// Remove evicts key.
func (l *LRU[K, V]) Remove(key K) {
	l.cache.Remove(key)
}

// Len returns the number of cached entries.
func (l *LRU[K, V]) Len() int {
	return l.cache.Len()
}

// Purge evicts all entries.
func (l *LRU[K, V]) Purge() {
	l.cache.Purge()
}

// GetOrLoad first try to get from cache, do load if missed.
// Values reported as absent by the loader are not cached.
func (l *LRU[K, V]) GetOrLoad(key K, load func(K) (V, bool, error)) (V, bool, error) {
	if v, ok := l.Get(key); ok {
		return v, true, nil
	}
	v, ok, err := load(key)
	if err != nil || !ok {
		return v, ok, err
	}
	l.Add(key, v)
	return v, true, nil
}
