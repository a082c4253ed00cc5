package concurrent

import (
	"fmt"

	"github.com/sinclairtarget/idman/internal/cache"
	"github.com/sinclairtarget/idman/internal/git"
)

// Collects freshly parsed commits and writes them to the cache in chunks.
// Cache write failures are logged, never fatal.
type cacheBatcher struct {
	cache  cache.Cache
	chunk  []git.Commit
	failed bool
}

func newCacheBatcher(c cache.Cache) *cacheBatcher {
	return &cacheBatcher{cache: c}
}

func (b *cacheBatcher) add(c git.Commit) {
	b.chunk = append(b.chunk, c)
	if len(b.chunk) >= chunkSize {
		b.flush()
	}
}

func (b *cacheBatcher) flush() {
	if len(b.chunk) == 0 || b.failed {
		b.chunk = nil
		return
	}

	err := b.cache.Add(b.chunk)
	if err != nil {
		logger().Warn(fmt.Sprintf("failed to write to cache: %v", err))
		b.failed = true
	}

	b.chunk = nil
}
