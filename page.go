package gofilter

import (
	"context"
	"fmt"

	"github.com/samber/lo"
)

// Page is a generic paged result container.
type Page[T any] struct {
	// Items result elements.
	Items []T
	// Total number of matching elements regardless of offset and limit.
	Total int64
	// Offset effective zero based offset used for the query.
	Offset int
	// AppliedLimit effective limit used for the query, NoLimit if none.
	AppliedLimit int
	// NextPageToken token for the next page, nil on the last page.
	NextPageToken *PageToken
}

// FetchPage runs q against store together with an unbounded count over the
// same predicate.
func FetchPage[T any](ctx context.Context, store Store[T], q *Query) (*Page[T], error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("cannot fetch page: %w", err)
	}

	items, err := store.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	total, err := store.Count(ctx, q.GetFrom(), q.GetWhere())
	if err != nil {
		return nil, err
	}

	return &Page[T]{
		Items:         lo.Ternary(items == nil, []T{}, items),
		Total:         total,
		Offset:        q.GetOffset(),
		AppliedLimit:  q.GetLimit(),
		NextPageToken: nextPageToken(q, len(items), total),
	}, nil
}

// IsLastPage returns true if no records follow the page.
func (p *Page[T]) IsLastPage() bool {
	return p == nil || p.NextPageToken == nil
}

// nextPageToken returns the token of the page following a page of size
// items, or nil if that page was the last one.
func nextPageToken(q *Query, size int, total int64) *PageToken {
	if q.IsUnlimited() || size == 0 {
		return nil
	}

	next := q.GetOffset() + size
	if int64(next) >= total {
		return nil
	}

	return NewPageToken(next)
}
