package gofilter

import (
	"context"
	"errors"
)

// ErrMultipleResults is returned (wrapped) by Store.QueryOne when more than
// one record matches. It is fatal to the call and never retried.
var ErrMultipleResults = errors.New("query returned more than one result")

// Store is the relational storage collaborator consumed by the composer.
//
// Implementations render predicates and orderings into their own query
// language and propagate storage failures unchanged. They must not keep an
// identity cache of returned records.
type Store[T any] interface {
	// Query returns the records matching q in q's order and window.
	Query(ctx context.Context, q *Query) ([]T, error)
	// Count returns the number of records matching where, ignoring any
	// offset and limit.
	Count(ctx context.Context, from string, where Predicate) (int64, error)
	// QueryOne returns the single record matching where, nil if none does,
	// and an error wrapping ErrMultipleResults if more than one does.
	QueryOne(ctx context.Context, from string, where Predicate) (*T, error)
	// Execute runs a bulk mutation and returns the number of affected rows.
	Execute(ctx context.Context, m Mutation) (int64, error)
}
