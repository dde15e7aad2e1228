package gofilter

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

// NullsOrder places NULL values of a sort key before or after all other
// values, independently of the key's Direction.
type NullsOrder string

const (
	// NullsDefault leaves NULL placement to the database.
	NullsDefault NullsOrder = ""
	NullsFirst   NullsOrder = "NULLS FIRST"
	NullsLast    NullsOrder = "NULLS LAST"
)

func (n NullsOrder) Valid() bool {
	return n == NullsDefault || n == NullsFirst || n == NullsLast
}

type (
	Orderings []OrderBy
	OrderBy   struct {
		Column    string     `json:"column"`
		Direction Direction  `json:"direction"`
		Nulls     NullsOrder `json:"nulls,omitempty"`
	}

	ColumnAlias = string

	// ColumnMapping maps external column aliases to fully qualified column names.
	// Use it when bare column names could cause an "ambiguous column name" error.
	// Key is an external alias, value is an internal column name.
	ColumnMapping = map[ColumnAlias]string
)

// Asc and Desc are shorthands for OrderBy literals.
func Asc(column string) OrderBy {
	return OrderBy{Column: column, Direction: DirectionASC}
}

func Desc(column string) OrderBy {
	return OrderBy{Column: column, Direction: DirectionDESC}
}

// NullsFirst returns a copy of o with NULL values placed first.
func (o OrderBy) NullsFirst() OrderBy {
	o.Nulls = NullsFirst
	return o
}

// NullsLast returns a copy of o with NULL values placed last.
func (o OrderBy) NullsLast() OrderBy {
	o.Nulls = NullsLast
	return o
}

var _availableColumnNameSymbols = append([]rune("_.'`\""), lo.AlphanumericCharset...)

// validateColumn guards against SQL injection by restricting allowed
// characters in column names.
func validateColumn(column string) error {
	if column == "" {
		return fmt.Errorf("empty column name")
	}

	if !lo.Every(_availableColumnNameSymbols, []rune(column)) {
		return fmt.Errorf("column name contains forbidden symbols '%s'", column)
	}

	return nil
}

func (o OrderBy) validate() error {
	if !o.Direction.Valid() {
		return fmt.Errorf("invalid ordering direction '%s'", o.Direction)
	}

	if !o.Nulls.Valid() {
		return fmt.Errorf("invalid nulls ordering '%s'", o.Nulls)
	}

	if err := validateColumn(o.Column); err != nil {
		return fmt.Errorf("ordering %w", err)
	}

	return nil
}

// toSQLSlice renders a single sort key. NULL placement is expressed with an
// "IS NULL" pre-key, which sorts the same way on MySQL, PostgreSQL and
// SQLite: false (non-null) < true (null).
//
// Example: {"name", "ASC", NullsLast} -> ["name IS NULL", "name ASC"].
func (o OrderBy) toSQLSlice() []string {
	key := fmt.Sprintf("%s %s", o.Column, o.Direction)

	switch o.Nulls {
	case NullsFirst:
		return []string{fmt.Sprintf("%s IS NULL DESC", o.Column), key}
	case NullsLast:
		return []string{fmt.Sprintf("%s IS NULL", o.Column), key}
	default:
		return []string{key}
	}
}

// ToSQLSlice converts Orderings to a slice of strings in the form
// "<order_column> <order_direction>" suitable for SQL query builders.
//
// Example: for Orderings: [{"a", "ASC"}, {"b", "DESC", NullsLast}] returns
// ["a ASC", "b IS NULL", "b DESC"].
func (o Orderings) ToSQLSlice() []string {
	return lo.FlatMap(o, func(ordering OrderBy, _ int) []string {
		return ordering.toSQLSlice()
	})
}

// ToSQL converts Orderings to a single string
// "<order_column_1> <order_direction_1>, <order_column_2> <order_direction_2>"
// suitable for embedding into an SQL query.
//
// Usage:
//
//	query := fmt.Sprintf("SELECT * FROM table ORDER BY %s", orderings.ToSQL())
func (o Orderings) ToSQL() string {
	return strings.Join(o.ToSQLSlice(), ", ")
}

// Apply applies the ordering to a gorm query. Empty orderings leave the
// query untouched.
func (o Orderings) Apply(db *gorm.DB) *gorm.DB {
	if len(o) == 0 {
		return db
	}

	return db.Order(o.ToSQL())
}

// With appends orderings keeping the "last occurrence wins" rule for
// duplicated columns. Order is preserved as if calling:
//
//	OrderBy(o1).ThenBy(o2).ThenBy(o3)...
func (o Orderings) With(orderBy ...OrderBy) Orderings {
	ret := append(Orderings(nil), o...)
	for _, ordering := range orderBy {
		ret = lo.Reject(ret, func(processed OrderBy, _ int) bool {
			return processed.Column == ordering.Column
		})
		ret = append(ret, ordering)
	}

	return ret
}

func (o Orderings) validate() error {
	for _, ordering := range o {
		if err := ordering.validate(); err != nil {
			return err
		}
	}

	return nil
}

// ParseSort builds Orderings from a list of strings in the format
// "column asc|desc [nulls first|last]". Column aliases are resolved via
// ColumnMapping. Returns an error if an alias is not found in the mapping.
func ParseSort(stringsOrderings []string, columnMapping ColumnMapping) (Orderings, error) {
	ret := make(Orderings, 0, len(stringsOrderings))
	aliases := lo.Keys(columnMapping)

	for _, stringOrdering := range stringsOrderings {
		cutStringOrdering := strings.Fields(stringOrdering)
		if len(cutStringOrdering) != 2 && len(cutStringOrdering) != 4 {
			return nil, fmt.Errorf("invalid ordering string format '%s'", stringOrdering)
		}

		columnAlias := cutStringOrdering[0]
		direction := Direction(strings.ToUpper(cutStringOrdering[1]))
		if !direction.Valid() {
			return nil, fmt.Errorf("invalid ordering direction '%s'", cutStringOrdering[1])
		}

		nulls := NullsDefault
		if len(cutStringOrdering) == 4 {
			nulls = NullsOrder(strings.ToUpper(strings.Join(cutStringOrdering[2:], " ")))
			if nulls == NullsDefault || !nulls.Valid() {
				return nil, fmt.Errorf("invalid nulls ordering '%s'", strings.Join(cutStringOrdering[2:], " "))
			}
		}

		columnName := columnMapping[columnAlias]
		if columnName == "" {
			return nil, fmt.Errorf("invalid column alias. closest: '%s'", closestAlias(columnAlias, aliases))
		}

		ret = ret.With(OrderBy{
			Column:    columnName,
			Direction: direction,
			Nulls:     nulls,
		})
	}

	return ret, nil
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist || (dist == minDist && dataSetAlias < closest) {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
