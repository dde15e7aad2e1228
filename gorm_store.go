package gofilter

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Alp4ka/gofilter/internal/observe"
)

// GormStore is a Store backed by gorm. The table is derived from T unless a
// Query or Mutation names one explicitly.
//
// GormStore keeps no state besides its configuration and is safe for
// concurrent use. It never opens transactions itself: pass a *gorm.DB bound
// to a transaction to run inside one.
type GormStore[T any] struct {
	db       *gorm.DB
	observer observe.Observer
}

func NewGormStore[T any](db *gorm.DB) *GormStore[T] {
	return &GormStore[T]{
		db:       db,
		observer: observe.New(),
	}
}

// WithLogger sets the logger used for store calls.
func (s *GormStore[T]) WithLogger(logger *zap.Logger) *GormStore[T] {
	s.observer = s.observer.WithLogger(logger)
	return s
}

// WithTracer sets the tracer used for store calls.
func (s *GormStore[T]) WithTracer(tracer trace.Tracer) *GormStore[T] {
	s.observer = s.observer.WithTracer(tracer)
	return s
}

// Query - implements Store.
func (s *GormStore[T]) Query(ctx context.Context, q *Query) (ret []T, err error) {
	if err = q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	ctx, finish := s.observer.Start(ctx, "query", q.GetFrom())
	defer func() { finish(int64(len(ret)), err) }()

	ret = make([]T, 0)
	if err = s.applyQuery(s.model(ctx, q.GetFrom()), q).Find(&ret).Error; err != nil {
		return nil, err
	}

	return ret, nil
}

// Count - implements Store.
func (s *GormStore[T]) Count(ctx context.Context, from string, where Predicate) (total int64, err error) {
	if err = NewQuery().WithFrom(from).Where(where).Validate(); err != nil {
		return 0, fmt.Errorf("invalid query: %w", err)
	}

	ctx, finish := s.observer.Start(ctx, "count", from)
	defer func() { finish(total, err) }()

	err = applyPredicate(s.model(ctx, from), where).Count(&total).Error

	return total, err
}

// QueryOne - implements Store.
func (s *GormStore[T]) QueryOne(ctx context.Context, from string, where Predicate) (ret *T, err error) {
	if err = NewQuery().WithFrom(from).Where(where).Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	ctx, finish := s.observer.Start(ctx, "query_one", from)
	defer func() { finish(int64(lo.Ternary(ret == nil, 0, 1)), err) }()

	// Two rows are enough to tell a unique match from an ambiguous one.
	rows := make([]T, 0, 2)
	if err = applyPredicate(s.model(ctx, from), where).Limit(2).Find(&rows).Error; err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		rendered, _ := ToSQL(where)
		return nil, fmt.Errorf("%w: where %s", ErrMultipleResults, rendered)
	}
}

// Execute - implements Store.
//
// A mutation with the universal predicate touches every row; gorm's global
// update guard is lifted for that call only. Models with gorm.DeletedAt are
// soft deleted.
func (s *GormStore[T]) Execute(ctx context.Context, m Mutation) (affected int64, err error) {
	if err = m.Validate(); err != nil {
		return 0, fmt.Errorf("invalid mutation: %w", err)
	}

	ctx, finish := s.observer.Start(ctx, "execute", m.From)
	defer func() { finish(affected, err) }()

	db := s.db
	if IsMatchAll(m.Where) {
		db = db.Session(&gorm.Session{AllowGlobalUpdate: true})
	}

	db = applyPredicate(modelOf[T](db.WithContext(ctx), m.From), m.Where)

	var res *gorm.DB
	switch m.Kind {
	case MutationUpdate:
		res = db.Updates(toGORMAssignments(m.Set))
	case MutationDelete:
		res = db.Delete(new(T))
	}

	return res.RowsAffected, res.Error
}

func (s *GormStore[T]) model(ctx context.Context, from string) *gorm.DB {
	return modelOf[T](s.db.WithContext(ctx), from)
}

func (s *GormStore[T]) applyQuery(db *gorm.DB, q *Query) *gorm.DB {
	if columns := q.GetColumns(); len(columns) > 0 {
		db = db.Select(columns)
	}

	db = applyPredicate(db, q.GetWhere())
	db = q.GetSort().Apply(db)

	offset := q.GetOffset()
	if offset > 0 {
		db = db.Offset(offset)
	}

	switch {
	case !q.IsUnlimited():
		db = db.Limit(q.GetLimit())
	case offset > 0:
		db = db.Limit(UnboundedLimit)
	}

	return db
}

func modelOf[T any](db *gorm.DB, from string) *gorm.DB {
	db = db.Model(new(T))
	if from != "" {
		db = db.Table(from)
	}

	return db
}

// applyPredicate adds p to the WHERE clause of db. The universal predicate
// adds nothing.
func applyPredicate(db *gorm.DB, p Predicate) *gorm.DB {
	exp := toGORMExpression(p)
	if exp == nil {
		return db
	}

	return db.Clauses(exp)
}

func toGORMAssignments(set map[string]any) map[string]any {
	return lo.MapValues(set, func(value any, _ string) any {
		if expr, ok := value.(ColumnExpr); ok {
			return gorm.Expr(expr.SQL, expr.Vars...)
		}

		return value
	})
}

var _ Store[struct{}] = (*GormStore[struct{}])(nil)
