// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package preview

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"
)

// Producer materializes the preview content for a key
type Producer func(ctx context.Context) (string, error)

// 💾 Cache maps a file identity to its materialized preview.
//
// There is at most one entry per key and an existing entry always wins: a
// request for a key that is cached, or that is being produced, never starts a
// second production.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string

	// generations is bumped by Evict; a production only stores its result if
	// the generation it started under is still current
	generations map[string]uint64

	// flights is the per-key in-flight marker
	flights singleflight.Group
}

// 🏭 NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		entries:     make(map[string]string),
		generations: make(map[string]uint64),
	}
}

func (c *Cache) lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	content, ok := c.entries[key]
	return content, ok
}

func (c *Cache) generation(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[key]
}

// GetOrCreate returns the cached content for key, producing it first if needed.
//
// created reports whether this call's producer ran and its result was stored.
// Callers that arrive while another production for the key is in flight wait
// for it and share its result, including its error. Failed productions are not
// cached.
//
// The production is detached from the cancellation of the caller that started
// it; each caller stops waiting when its own ctx is done. A production that
// finishes after the key was evicted is returned but not stored.
func (c *Cache) GetOrCreate(ctx context.Context, key string, producer Producer) (content string, created bool, err error) {
	if content, ok := c.lookup(key); ok {
		return content, false, nil
	}

	ran := false
	ch := c.flights.DoChan(key, func() (interface{}, error) {
		if content, ok := c.lookup(key); ok {
			return content, nil
		}

		gen := c.generation(key)
		content, err := producer(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.entries[key]; ok {
			return existing, nil
		}
		if c.generations[key] != gen {
			zerolog.Ctx(ctx).Debug().Str("key", key).Msg("preview evicted while producing, not storing")
			return content, nil
		}
		c.entries[key] = content
		ran = true
		return content, nil
	})

	select {
	case <-ctx.Done():
		return "", false, errors.Errorf("waiting for preview: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		return res.Val.(string), ran, nil
	}
}

// Evict removes the entry for key and invalidates any production in flight
// for it. Evicting an absent key is a no-op.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.generations[key]++
}

// Read returns the content for key without creating it; absent keys read as ""
func (c *Cache) Read(key string) string {
	content, _ := c.lookup(key)
	return content
}

// Has reports whether key has an entry
func (c *Cache) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached keys in sorted order
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
