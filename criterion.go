package gofilter

import (
	"fmt"

	"github.com/samber/lo"
)

// Criterion is a named optional filter value bound to the function that turns
// the value into a predicate. An absent criterion does not filter at all.
//
// Criteria are built with When, WhenSet or WhenEq and folded into a single
// predicate with Compose:
//
//	where := gofilter.Compose(
//		gofilter.WhenEq("username", cond.Username),
//		gofilter.When("age", cond.AgeGoe, func(age int) gofilter.Predicate {
//			return gofilter.Gte("age", age)
//		}),
//	)
type Criterion struct {
	// Name identifies the criterion in logs and errors. It does not have to
	// match a column name.
	Name string

	build func() Predicate
}

// When builds a criterion that is present when value is not nil.
func When[V any](name string, value *V, build func(V) Predicate) Criterion {
	if value == nil || build == nil {
		return Criterion{Name: name}
	}

	v := *value

	return Criterion{
		Name:  name,
		build: func() Predicate { return build(v) },
	}
}

// WhenSet builds a criterion that is present when value is not the zero value
// of its type. Handy for query string parameters, where "" means "not given".
func WhenSet[V comparable](name string, value V, build func(V) Predicate) Criterion {
	if lo.IsEmpty(value) || build == nil {
		return Criterion{Name: name}
	}

	return Criterion{
		Name:  name,
		build: func() Predicate { return build(value) },
	}
}

// WhenEq is a shorthand for When(column, value, column = value).
func WhenEq[V any](column string, value *V) Criterion {
	return When(column, value, func(v V) Predicate {
		return Eq(column, v)
	})
}

// Present reports whether the criterion contributes a predicate.
func (c Criterion) Present() bool {
	return c.build != nil
}

// String - implements fmt.Stringer.
func (c Criterion) String() string {
	return fmt.Sprintf("%s(present=%t)", c.Name, c.Present())
}

// Compose folds criteria into a single conjunctive predicate.
//
// Builders of absent criteria are never called. Fragments of present
// criteria are joined with AND in the order the criteria were given, so the
// rendered SQL is deterministic. A builder returning nil contributes nothing.
// With no present criteria the result is the universal predicate.
//
// Compose keeps no state between calls and is safe for concurrent use.
func Compose(criteria ...Criterion) Predicate {
	fragments := lo.FilterMap(criteria, func(c Criterion, _ int) (Predicate, bool) {
		if !c.Present() {
			return nil, false
		}

		return c.build(), true
	})

	return And(fragments...)
}

// PresentNames returns the names of present criteria in the given order.
func PresentNames(criteria ...Criterion) []string {
	return lo.FilterMap(criteria, func(c Criterion, _ int) (string, bool) {
		return c.Name, c.Present()
	})
}
