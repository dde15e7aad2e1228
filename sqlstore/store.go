// Package sqlstore implements gofilter.Store on top of database/sql.
//
// Statements are built with squirrel and rows are scanned with scany's
// sqlscan, so T is mapped by "db" struct tags or snake_cased field names.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Alp4ka/gofilter"
	"github.com/Alp4ka/gofilter/internal/observe"
)

// DB is the subset of *sql.DB and *sql.Tx used by Store.
type DB interface {
	sqlscan.Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store is a gofilter.Store over a single table. Queries and mutations may
// still name another table explicitly.
type Store[T any] struct {
	db       DB
	table    string
	columns  []string
	builder  squirrel.StatementBuilderType
	observer observe.Observer
}

// New returns a Store reading table through db with "?" placeholders.
func New[T any](db DB, table string) *Store[T] {
	return &Store[T]{
		db:       db,
		table:    table,
		columns:  []string{"*"},
		builder:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		observer: observe.New(),
	}
}

// WithPlaceholder sets the placeholder format, e.g. squirrel.Dollar for
// PostgreSQL.
func (s *Store[T]) WithPlaceholder(format squirrel.PlaceholderFormat) *Store[T] {
	s.builder = s.builder.PlaceholderFormat(format)
	return s
}

// WithColumns sets the default projection used when a query selects no
// columns.
func (s *Store[T]) WithColumns(columns ...string) *Store[T] {
	if len(columns) > 0 {
		s.columns = columns
	}

	return s
}

// WithLogger sets the logger used for store calls.
func (s *Store[T]) WithLogger(logger *zap.Logger) *Store[T] {
	s.observer = s.observer.WithLogger(logger)
	return s
}

// WithTracer sets the tracer used for store calls.
func (s *Store[T]) WithTracer(tracer trace.Tracer) *Store[T] {
	s.observer = s.observer.WithTracer(tracer)
	return s
}

// Query - implements gofilter.Store.
func (s *Store[T]) Query(ctx context.Context, q *gofilter.Query) (ret []T, err error) {
	if err = q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	from := s.from(q.GetFrom())
	ctx, finish := s.observer.Start(ctx, "query", from)
	defer func() { finish(int64(len(ret)), err) }()

	columns := q.GetColumns()
	if len(columns) == 0 {
		columns = s.columns
	}

	sb := where(s.builder.Select(columns...).From(from), q.GetWhere())
	if orderings := q.GetSort().ToSQLSlice(); len(orderings) > 0 {
		sb = sb.OrderBy(orderings...)
	}
	offset := q.GetOffset()
	switch {
	case !q.IsUnlimited():
		sb = sb.Limit(uint64(q.GetLimit()))
	case offset > 0:
		sb = sb.Limit(uint64(gofilter.UnboundedLimit))
	}
	if offset > 0 {
		sb = sb.Offset(uint64(offset))
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	ret = make([]T, 0)
	if err = sqlscan.Select(ctx, s.db, &ret, query, args...); err != nil {
		return nil, err
	}

	return ret, nil
}

// Count - implements gofilter.Store.
func (s *Store[T]) Count(ctx context.Context, from string, predicate gofilter.Predicate) (total int64, err error) {
	if err = gofilter.NewQuery().WithFrom(from).Where(predicate).Validate(); err != nil {
		return 0, fmt.Errorf("invalid query: %w", err)
	}

	from = s.from(from)
	ctx, finish := s.observer.Start(ctx, "count", from)
	defer func() { finish(total, err) }()

	query, args, err := where(s.builder.Select("COUNT(*)").From(from), predicate).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	if err = sqlscan.Get(ctx, s.db, &total, query, args...); err != nil {
		return 0, err
	}

	return total, nil
}

// QueryOne - implements gofilter.Store.
func (s *Store[T]) QueryOne(ctx context.Context, from string, predicate gofilter.Predicate) (ret *T, err error) {
	rows, err := s.Query(ctx, gofilter.NewQuery().WithFrom(from).Where(predicate).WithLimit(2))
	if err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		rendered, _ := gofilter.ToSQL(predicate)
		return nil, fmt.Errorf("%w: where %s", gofilter.ErrMultipleResults, rendered)
	}
}

// Execute - implements gofilter.Store.
func (s *Store[T]) Execute(ctx context.Context, m gofilter.Mutation) (affected int64, err error) {
	if err = m.Validate(); err != nil {
		return 0, fmt.Errorf("invalid mutation: %w", err)
	}

	from := s.from(m.From)
	ctx, finish := s.observer.Start(ctx, "execute", from)
	defer func() { finish(affected, err) }()

	var (
		query string
		args  []any
	)

	switch m.Kind {
	case gofilter.MutationUpdate:
		ub := s.builder.Update(from)
		for _, column := range m.SetColumns() {
			ub = ub.Set(column, assignment(m.Set[column]))
		}
		if !gofilter.IsMatchAll(m.Where) {
			ub = ub.Where(expr(m.Where))
		}
		query, args, err = ub.ToSql()
	case gofilter.MutationDelete:
		db := s.builder.Delete(from)
		if !gofilter.IsMatchAll(m.Where) {
			db = db.Where(expr(m.Where))
		}
		query, args, err = db.ToSql()
	}
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", m.Kind, err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (s *Store[T]) from(from string) string {
	if from == "" {
		return s.table
	}

	return from
}

func where(sb squirrel.SelectBuilder, predicate gofilter.Predicate) squirrel.SelectBuilder {
	if gofilter.IsMatchAll(predicate) {
		return sb
	}

	return sb.Where(expr(predicate))
}

func expr(predicate gofilter.Predicate) squirrel.Sqlizer {
	query, args := gofilter.ToSQL(predicate)
	return squirrel.Expr(query, args...)
}

func assignment(value any) any {
	if e, ok := value.(gofilter.ColumnExpr); ok {
		return squirrel.Expr(e.SQL, e.Vars...)
	}

	return value
}

var _ gofilter.Store[struct{}] = (*Store[struct{}])(nil)
