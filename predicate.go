package gofilter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm/clause"
)

// Predicate is a boolean expression over the columns of a single record type.
//
// Predicates are immutable values. They are built with the constructors of
// this package (Eq, In, And, Or, Not, Raw...) and rendered by a storage
// collaborator either as a gorm clause or as an SQL fragment with "?"
// placeholders (see ToSQL).
//
// The universal predicate (MatchAll) is the neutral element of And: it never
// contributes a clause to the rendered query.
type Predicate interface {
	toSQLClause() (string, []any)
	validate() error
	isUniversal() bool
}

type (
	// Condition is the value of Operator(Column, Value).
	//
	// Value shape depends on the operator:
	//   - IN, NOT IN: []any with the list elements;
	//   - BETWEEN: []any with exactly two bounds;
	//   - IS NULL, IS NOT NULL: ignored;
	//   - any other operator: a single non-nil value.
	Condition struct {
		Column   string
		Operator Operator
		Value    any
	}

	conjunction []Predicate
	disjunction []Predicate

	negation struct {
		inner Predicate
	}

	rawPredicate struct {
		sql  string
		vars []any
	}

	matchAll struct{}
)

var (
	_ Predicate = Condition{}
	_ Predicate = conjunction(nil)
	_ Predicate = disjunction(nil)
	_ Predicate = negation{}
	_ Predicate = rawPredicate{}
	_ Predicate = matchAll{}
)

// MatchAll returns the universal predicate. It renders as "TRUE" and is
// dropped from conjunctions.
func MatchAll() Predicate {
	return matchAll{}
}

// IsMatchAll reports whether p matches every record. A nil predicate is
// treated as universal.
func IsMatchAll(p Predicate) bool {
	return p == nil || p.isUniversal()
}

func Eq(column string, value any) Condition {
	return Condition{Column: column, Operator: OperatorEQ, Value: value}
}

func Ne(column string, value any) Condition {
	return Condition{Column: column, Operator: OperatorNE, Value: value}
}

func Lt(column string, value any) Condition {
	return Condition{Column: column, Operator: OperatorLT, Value: value}
}

func Lte(column string, value any) Condition {
	return Condition{Column: column, Operator: OperatorLTE, Value: value}
}

func Gt(column string, value any) Condition {
	return Condition{Column: column, Operator: OperatorGT, Value: value}
}

func Gte(column string, value any) Condition {
	return Condition{Column: column, Operator: OperatorGTE, Value: value}
}

// Like matches column against an SQL LIKE pattern as is.
func Like(column string, pattern string) Condition {
	return Condition{Column: column, Operator: OperatorLike, Value: pattern}
}

// Contains matches rows whose column contains substr. Wildcards inside substr
// are not escaped.
func Contains(column string, substr string) Condition {
	return Like(column, "%"+substr+"%")
}

// In matches rows whose column equals one of values. An empty list matches
// nothing.
func In[V any](column string, values ...V) Condition {
	return Condition{Column: column, Operator: OperatorIn, Value: lo.ToAnySlice(values)}
}

// NotIn matches rows whose column differs from every element of values. An
// empty list matches everything.
func NotIn[V any](column string, values ...V) Condition {
	return Condition{Column: column, Operator: OperatorNotIn, Value: lo.ToAnySlice(values)}
}

// Between matches rows whose column lies in the closed range [from, to].
func Between(column string, from, to any) Condition {
	return Condition{Column: column, Operator: OperatorBetween, Value: []any{from, to}}
}

func IsNull(column string) Condition {
	return Condition{Column: column, Operator: OperatorIsNull}
}

func IsNotNull(column string) Condition {
	return Condition{Column: column, Operator: OperatorIsNotNull}
}

// Raw wraps an SQL fragment with "?" placeholders. An empty fragment is the
// universal predicate.
//
// IMPORTANT: the fragment is embedded into the query verbatim. Never build it
// from user input, pass user input through vars.
//
// Every "?" in the fragment is a placeholder, including one inside a string
// literal or an operator such as PostgreSQL's jsonb "?". gorm binds them the
// same way, so validation counts them all. Pass literal question marks as
// values and use the function forms of such operators:
//
//	Raw("note LIKE ?", "%?%")
//	Raw("jsonb_exists(tags, ?)", "go")
func Raw(sql string, vars ...any) Predicate {
	if strings.TrimSpace(sql) == "" {
		return MatchAll()
	}

	return rawPredicate{sql: sql, vars: vars}
}

// And joins predicates with logical AND.
//
// Nil and universal operands are dropped and nested conjunctions are
// flattened. An empty conjunction is the universal predicate; a conjunction
// of one predicate is that predicate.
func And(predicates ...Predicate) Predicate {
	flat := make(conjunction, 0, len(predicates))
	for _, p := range predicates {
		if IsMatchAll(p) {
			continue
		}

		if nested, ok := p.(conjunction); ok {
			flat = append(flat, nested...)
			continue
		}

		flat = append(flat, p)
	}

	switch len(flat) {
	case 0:
		return MatchAll()
	case 1:
		return flat[0]
	default:
		return flat
	}
}

// Or joins predicates with logical OR.
//
// Nil operands are ignored. If any operand is universal, so is the result.
// An empty disjunction is the universal predicate: a group without operands
// never narrows the result set.
func Or(predicates ...Predicate) Predicate {
	flat := make(disjunction, 0, len(predicates))
	for _, p := range predicates {
		if p == nil {
			continue
		}

		if p.isUniversal() {
			return MatchAll()
		}

		if nested, ok := p.(disjunction); ok {
			flat = append(flat, nested...)
			continue
		}

		flat = append(flat, p)
	}

	switch len(flat) {
	case 0:
		return MatchAll()
	case 1:
		return flat[0]
	default:
		return flat
	}
}

// Not negates p. Single conditions are rewritten with the complementary
// operator where one exists ("NOT (a = 1)" becomes "a <> 1"). A nil
// predicate is ignored and yields the universal predicate.
//
// IMPORTANT: negating the universal predicate is rejected at validation time
// rather than silently matching nothing.
func Not(p Predicate) Predicate {
	switch v := p.(type) {
	case nil:
		return MatchAll()
	case negation:
		return v.inner
	case Condition:
		if op, ok := v.Operator.Negate(); ok {
			return Condition{Column: v.Column, Operator: op, Value: v.Value}
		}
	}

	return negation{inner: p}
}

// ToSQL renders p as an SQL boolean expression with "?" placeholders and
// the values for them. The universal predicate renders as "TRUE".
//
// Usage:
//
//	where, args := gofilter.ToSQL(p)
//	query := fmt.Sprintf("SELECT * FROM members WHERE %s", where)
func ToSQL(p Predicate) (string, []any) {
	if IsMatchAll(p) {
		return "TRUE", nil
	}

	return p.toSQLClause()
}

// Validate checks that p can be rendered safely: column names contain only
// allowed symbols and every condition value matches its operator.
func Validate(p Predicate) error {
	if p == nil {
		return nil
	}

	return p.validate()
}

// toGORMExpression converts p into a gorm expression. Returns nil for the
// universal predicate so that no WHERE clause is added.
func toGORMExpression(p Predicate) clause.Expression {
	if IsMatchAll(p) {
		return nil
	}

	sqlClause, vars := p.toSQLClause()

	return clause.Expr{
		SQL:  sqlClause,
		Vars: vars,
	}
}

// toSQLClause converts a condition Operator(Column, Value) into
// "Column Operator ?" with its placeholder values.
//
// Example:
//
//	Condition{Column: "age", Operator: ">=", Value: 18} -> ("age >= ?", [18])
//	Condition{Column: "id", Operator: "IN", Value: []any{1, 2}} -> ("id IN (?, ?)", [1, 2])
func (c Condition) toSQLClause() (string, []any) {
	switch c.Operator {
	case OperatorIsNull, OperatorIsNotNull:
		return fmt.Sprintf("%s %s", c.Column, c.Operator), nil
	case OperatorIn, OperatorNotIn:
		values, _ := c.Value.([]any)
		if len(values) == 0 {
			return lo.Ternary(c.Operator == OperatorIn, "FALSE", "TRUE"), nil
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")

		return fmt.Sprintf("%s %s (%s)", c.Column, c.Operator, placeholders), values
	case OperatorBetween:
		bounds, _ := c.Value.([]any)

		return fmt.Sprintf("%s BETWEEN ? AND ?", c.Column), bounds
	default:
		return fmt.Sprintf("%s %s ?", c.Column, c.Operator), []any{c.Value}
	}
}

func (c Condition) validate() error {
	if err := validateColumn(c.Column); err != nil {
		return err
	}

	if !c.Operator.Valid() {
		return fmt.Errorf("invalid operator '%s' on column '%s'", c.Operator, c.Column)
	}

	switch c.Operator {
	case OperatorIsNull, OperatorIsNotNull:
		return nil
	case OperatorIn, OperatorNotIn:
		if _, ok := c.Value.([]any); !ok && c.Value != nil {
			return fmt.Errorf("operator '%s' on column '%s' expects a list, got %T", c.Operator, c.Column, c.Value)
		}
	case OperatorBetween:
		bounds, ok := c.Value.([]any)
		if !ok || len(bounds) != 2 {
			return fmt.Errorf("operator BETWEEN on column '%s' expects two bounds", c.Column)
		}
		if lo.IsNil(bounds[0]) || lo.IsNil(bounds[1]) {
			return fmt.Errorf("operator BETWEEN on column '%s' got a nil bound", c.Column)
		}
	default:
		// Typed nils such as (*string)(nil) bind NULL, and "col = NULL" never matches.
		if lo.IsNil(c.Value) {
			return fmt.Errorf("nil value for operator '%s' on column '%s', use IsNull", c.Operator, c.Column)
		}
	}

	return nil
}

func (c Condition) isUniversal() bool {
	return false
}

// toSQLClause converts a conjunction (K1, K2, K3) into "(K1 AND K2 AND K3)".
func (c conjunction) toSQLClause() (string, []any) {
	return joinSQLClauses(c, " AND ")
}

func (c conjunction) validate() error {
	return validateAll(c)
}

func (c conjunction) isUniversal() bool {
	return lo.EveryBy(c, IsMatchAll)
}

// toSQLClause converts a disjunction (K1, K2, K3) into "(K1 OR K2 OR K3)".
func (d disjunction) toSQLClause() (string, []any) {
	return joinSQLClauses(d, " OR ")
}

func (d disjunction) validate() error {
	return validateAll(d)
}

func (d disjunction) isUniversal() bool {
	return len(d) == 0 || lo.SomeBy(d, IsMatchAll)
}

func (n negation) toSQLClause() (string, []any) {
	innerSQL, vars := n.inner.toSQLClause()
	if _, ok := n.inner.(Condition); ok {
		innerSQL = "(" + innerSQL + ")"
	}

	return "NOT " + innerSQL, vars
}

func (n negation) validate() error {
	if IsMatchAll(n.inner) {
		return errors.New("cannot negate the universal predicate")
	}

	return n.inner.validate()
}

func (n negation) isUniversal() bool {
	return false
}

func (r rawPredicate) toSQLClause() (string, []any) {
	return "(" + r.sql + ")", r.vars
}

func (r rawPredicate) validate() error {
	if placeholders := strings.Count(r.sql, "?"); placeholders != len(r.vars) {
		return fmt.Errorf("raw predicate has %d placeholders but %d values", placeholders, len(r.vars))
	}

	return nil
}

func (r rawPredicate) isUniversal() bool {
	return false
}

func (matchAll) toSQLClause() (string, []any) {
	return "TRUE", nil
}

func (matchAll) validate() error {
	return nil
}

func (matchAll) isUniversal() bool {
	return true
}

func joinSQLClauses(predicates []Predicate, sep string) (string, []any) {
	clauses := make([]string, 0, len(predicates))
	values := make([]any, 0, len(predicates))

	for _, p := range predicates {
		sqlClause, vars := p.toSQLClause()
		clauses = append(clauses, sqlClause)
		values = append(values, vars...)
	}

	if len(clauses) == 1 {
		return clauses[0], values
	}

	return fmt.Sprintf("(%s)", strings.Join(clauses, sep)), values
}

func validateAll(predicates []Predicate) error {
	for _, p := range predicates {
		if p == nil {
			continue
		}

		if err := p.validate(); err != nil {
			return err
		}
	}

	return nil
}
