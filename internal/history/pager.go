package history

import (
	"context"
	"sync"

	"github.com/scadawatch/scadawatch/internal/types"
)

// PageFunc fetches one page (1-based) of items.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, types.Pagination, error)

// Pager accumulates pages lazily, one LoadMore call at a time, keeping
// arrival order.
type Pager[T any] struct {
	fetch PageFunc[T]

	mu     sync.Mutex
	items  []T
	next   int
	pages  int
	loaded bool
}

// NewPager creates a pager starting at page 1.
func NewPager[T any](fetch PageFunc[T]) *Pager[T] {
	return &Pager[T]{fetch: fetch, next: 1}
}

// LoadMore fetches the next page and returns how many items it added. It is
// a no-op once the last page has been loaded.
func (p *Pager[T]) LoadMore(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded && p.next > p.pages {
		return 0, nil
	}
	items, pagination, err := p.fetch(ctx, p.next)
	if err != nil {
		return 0, err
	}
	p.items = append(p.items, items...)
	p.pages = pagination.Pages
	p.loaded = true
	p.next++
	return len(items), nil
}

// HasMore reports whether another page is available.
func (p *Pager[T]) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.loaded || p.next <= p.pages
}

// Items returns a copy of everything loaded so far.
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, len(p.items))
	copy(out, p.items)
	return out
}

// Reset drops loaded pages, e.g. after a filter change.
func (p *Pager[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	p.next = 1
	p.pages = 0
	p.loaded = false
}
