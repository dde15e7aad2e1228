package gofilter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// MutationKind selects the bulk statement of a Mutation.
type MutationKind string

const (
	MutationUpdate MutationKind = "UPDATE"
	MutationDelete MutationKind = "DELETE"
)

func (k MutationKind) Valid() bool {
	return k == MutationUpdate || k == MutationDelete
}

// ColumnExpr is an SQL expression assigned to a column by a bulk update, for
// example Expr("age * ?", 2).
type ColumnExpr struct {
	SQL  string
	Vars []any
}

// Expr builds a ColumnExpr. The expression is embedded verbatim, values go
// through placeholders. As with Raw, every "?" is a placeholder: pass literal
// question marks as values.
func Expr(sql string, vars ...any) ColumnExpr {
	return ColumnExpr{SQL: sql, Vars: vars}
}

// Mutation is a bulk UPDATE or DELETE over every row matching Where.
//
// IMPORTANT: a bulk mutation bypasses whatever the caller keeps in memory.
// Stores in this module hold no identity cache, but callers that cache rows
// must drop the affected ones after Execute returns.
type Mutation struct {
	Kind MutationKind
	// From - entity selector. Stores that know their table may leave it empty.
	From string
	// Set - column to value or ColumnExpr. Used by MutationUpdate only.
	Set map[string]any
	// Where - rows to mutate. Nil or universal means every row.
	Where Predicate
}

// NewUpdate builds a bulk update of the rows matching all where predicates.
func NewUpdate(set map[string]any, where ...Predicate) Mutation {
	return Mutation{
		Kind:  MutationUpdate,
		Set:   set,
		Where: And(where...),
	}
}

// NewDelete builds a bulk delete of the rows matching all where predicates.
func NewDelete(where ...Predicate) Mutation {
	return Mutation{
		Kind:  MutationDelete,
		Where: And(where...),
	}
}

// WithFrom returns a copy of m with the entity selector set.
func (m Mutation) WithFrom(from string) Mutation {
	m.From = from
	return m
}

// SetColumns returns the assigned columns in a stable order.
func (m Mutation) SetColumns() []string {
	columns := lo.Keys(m.Set)
	slices.Sort(columns)

	return columns
}

// Validate checks the mutation before it reaches storage.
func (m Mutation) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("invalid mutation kind '%s'", m.Kind)
	}

	if m.From != "" {
		if err := validateColumn(m.From); err != nil {
			return fmt.Errorf("entity selector: %w", err)
		}
	}

	if m.Kind == MutationUpdate {
		if len(m.Set) == 0 {
			return errors.New("update without assignments")
		}

		for column, value := range m.Set {
			if err := validateColumn(column); err != nil {
				return fmt.Errorf("assignment: %w", err)
			}

			if expr, ok := value.(ColumnExpr); ok {
				if placeholders := strings.Count(expr.SQL, "?"); placeholders != len(expr.Vars) {
					return fmt.Errorf("expression for column '%s' has %d placeholders but %d values", column, placeholders, len(expr.Vars))
				}
			}
		}
	}

	if err := Validate(m.Where); err != nil {
		return fmt.Errorf("predicate: %w", err)
	}

	return nil
}
