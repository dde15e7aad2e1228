// Package gofilter composes typed dynamic predicates for relational queries.
//
// Overview
//
// Search endpoints usually take a handful of optional filters: a username
// that may or may not be given, an age range that may be half open, and so
// on. gofilter turns such a set of optional criteria into a single
// conjunctive predicate in which absent criteria take no part at all, and
// hands it, together with ordering and paging, to a storage collaborator.
//
// Key concepts
//   - Criterion: a named optional value and the function turning it into a
//     Predicate. Built with When, WhenSet and WhenEq.
//   - Compose: a pure fold of criteria with AND. Absent criteria are never
//     evaluated; no present criteria yields MatchAll.
//   - Predicate: an immutable boolean expression (Eq, In, Between, And, Or,
//     Not, Raw...) rendered as "?" placeholder SQL.
//   - Orderings: multi-column ordering with explicit directions and explicit
//     NULL placement per key.
//   - Query, Mutation: requests handed to a Store.
//   - Store: the storage collaborator. GormStore runs on gorm, the sqlstore
//     sub-package on database/sql.
//   - FetchPage: bounded query plus unbounded count, with an opaque
//     PageToken for the next page.
//
// Example
//
//	where := gofilter.Compose(
//		gofilter.WhenEq("username", username), // *string, nil skips it
//		gofilter.WhenEq("age", age),           // *int, nil skips it
//	)
//
//	page, err := gofilter.FetchPage(ctx, store, gofilter.NewQuery().
//		Where(where).
//		WithSort(gofilter.Desc("age"), gofilter.Asc("username").NullsLast()).
//		WithOffset(1).
//		WithLimit(2))
package gofilter
