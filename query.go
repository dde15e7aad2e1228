package gofilter

import (
	"errors"
	"fmt"
)

// Query is a read request handed to a Store: an entity selector, an optional
// projection, a predicate, an ordering and an offset/limit window.
//
// Query is built with chained With* calls. All methods are safe to call on a
// nil *Query, which behaves like NewQuery().
type Query struct {
	from     string
	columns  []string
	where    Predicate
	sort     Orderings
	offset   int
	limit    int
	hasLimit bool
}

func NewQuery() *Query {
	return new(Query)
}

// RawPage is intended for API payloads. For proper code generation, inline it:
//
//	type MemberFilter struct {
//	    Paging gofilter.RawPage `json:",inline"`
//	}
type RawPage struct {
	// Limit - maximum number of records to return in the response.
	Limit int `json:"limit"`
	// PageToken - token obtained via PageToken.String(). If empty, the first
	// page with Limit records is returned.
	PageToken string `json:"pageToken"`
	// Sort - list of "alias asc|desc [nulls first|last]" strings.
	Sort []string `json:"sort,omitempty"`
}

// Decode converts RawPage into *Query, normalizing Limit, validating
// PageToken and resolving Sort aliases via columnMapping. defaultSort is used
// when Sort is empty.
func (p RawPage) Decode(columnMapping ColumnMapping, defaultSort ...OrderBy) (*Query, error) {
	token, err := DecodePageToken(p.PageToken)
	if err != nil {
		return nil, err
	}

	sort := Orderings(defaultSort)
	if len(p.Sort) > 0 {
		sort, err = ParseSort(p.Sort, columnMapping)
		if err != nil {
			return nil, err
		}
	}

	return NewQuery().
		WithSubstitutedSort(sort...).
		WithPageToken(token).
		WithLimit(p.Limit), nil
}

// WithFrom sets the entity selector (table name). Stores that know their
// table may leave it empty.
func (q *Query) WithFrom(from string) *Query {
	if q == nil {
		q = new(Query)
	}

	q.from = from

	return q
}

// WithColumns restricts the projection to the given columns. No columns
// means all columns.
func (q *Query) WithColumns(columns ...string) *Query {
	if q == nil {
		q = new(Query)
	}

	q.columns = columns

	return q
}

// Where adds predicates joined with AND to the ones already set. Nil and
// universal predicates are ignored, so optional conditions may be passed
// directly:
//
//	q.Where(usernameEq(cond), ageEq(cond))
func (q *Query) Where(predicates ...Predicate) *Query {
	if q == nil {
		q = new(Query)
	}

	q.where = And(append([]Predicate{q.where}, predicates...)...)

	return q
}

// WithSubstitutedSort resets previous orderings and applies the provided ones.
func (q *Query) WithSubstitutedSort(orderBy ...OrderBy) *Query {
	if q == nil {
		q = new(Query)
	}

	q.sort = nil

	return q.WithSort(orderBy...)
}

// WithSort appends sort orderings without overwriting existing ones. A column
// met twice keeps only its last ordering.
func (q *Query) WithSort(orderBy ...OrderBy) *Query {
	if q == nil {
		q = new(Query)
	}

	q.sort = q.sort.With(orderBy...)

	return q
}

// WithOffset sets the zero based offset of the first returned record.
func (q *Query) WithOffset(offset int) *Query {
	if q == nil {
		q = new(Query)
	}

	q.offset = NormalizeOffset(offset)

	return q
}

// WithPageToken sets the offset carried by a page token. A nil token means
// the first page.
func (q *Query) WithPageToken(token *PageToken) *Query {
	return q.WithOffset(token.GetOffset())
}

// WithLimit sets the maximum number of returned records.
//
// IMPORTANT: if the limit is not NoLimit, NormalizeLimit is applied.
func (q *Query) WithLimit(limit int) *Query {
	if q == nil {
		q = new(Query)
	}

	if limit == NoLimit {
		return q.WithUnlimited()
	}

	q.limit = NormalizeLimit(limit)
	q.hasLimit = true

	return q
}

// WithUnlimited allows returning all records without a limit. This is the
// default.
func (q *Query) WithUnlimited() *Query {
	if q == nil {
		q = new(Query)
	}

	q.limit = 0
	q.hasLimit = false

	return q
}

// GetFrom returns the entity selector as set by WithFrom.
func (q *Query) GetFrom() string {
	if q == nil {
		return ""
	}

	return q.from
}

// GetColumns returns the projected columns. Empty means all columns.
func (q *Query) GetColumns() []string {
	if q == nil {
		return nil
	}

	return q.columns
}

// GetWhere returns the composed predicate. Never nil.
func (q *Query) GetWhere() Predicate {
	if q == nil || q.where == nil {
		return MatchAll()
	}

	return q.where
}

// GetSort returns orderings that will be applied to the dataset.
func (q *Query) GetSort() Orderings {
	if q == nil {
		return nil
	}

	return q.sort
}

// GetOffset returns the zero based offset.
func (q *Query) GetOffset() int {
	if q == nil {
		return 0
	}

	return q.offset
}

// GetLimit returns the limit, or NoLimit for unlimited queries.
func (q *Query) GetLimit() int {
	if q.IsUnlimited() {
		return NoLimit
	}

	return q.limit
}

// IsUnlimited returns true if no limit is applied.
func (q *Query) IsUnlimited() bool {
	return q == nil || !q.hasLimit
}

// Validate checks the query before it reaches storage.
func (q *Query) Validate() error {
	if q == nil {
		return errors.New("query is nil")
	}

	if q.from != "" {
		if err := validateColumn(q.from); err != nil {
			return fmt.Errorf("entity selector: %w", err)
		}
	}

	for _, column := range q.columns {
		if err := validateColumn(column); err != nil {
			return fmt.Errorf("projection: %w", err)
		}
	}

	if err := Validate(q.where); err != nil {
		return fmt.Errorf("predicate: %w", err)
	}

	return q.sort.validate()
}
