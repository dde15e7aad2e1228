package gofilter

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var _sqlMockFnList = []func(t *testing.T) (string, *gorm.DB, sqlmock.Sqlmock){
	newGORMMySQLMock,
	newGORMPostgresMock,
}

func Test_GormStore_Query_SQL(t *testing.T) {
	tests := []struct {
		name          string
		query         *Query
		expectedQuery string
		expectedArgs  []driver.Value
	}{
		{
			name:          "no criteria selects everything",
			query:         NewQuery(),
			expectedQuery: "^SELECT \\* FROM [`\"]members[`\"]$",
		},
		{
			name: "composed criteria with paging",
			query: NewQuery().
				Where(Compose(WhenEq("username", lo.ToPtr("member1")), WhenEq[int]("age", nil))).
				WithSort(Desc("age"), Asc("username").NullsLast()).
				WithOffset(1).
				WithLimit(2),
			expectedQuery: "^SELECT \\* FROM [`\"]members[`\"] WHERE username = (?:\\$\\d|\\?) ORDER BY age DESC, username IS NULL, username ASC LIMIT 2 OFFSET 1$",
			expectedArgs:  []driver.Value{"member1"},
		},
		{
			name:          "offset without limit",
			query:         NewQuery().WithSort(Desc("username")).WithOffset(1),
			expectedQuery: fmt.Sprintf("^SELECT \\* FROM [`\"]members[`\"] ORDER BY username DESC LIMIT %d OFFSET 1$", UnboundedLimit),
		},
		{
			name: "grouped predicate with explicit table and projection",
			query: NewQuery().
				WithFrom("members").
				WithColumns("id", "username").
				Where(Gte("age", 10), Or(Eq("team_id", 1), IsNull("team_id"))),
			expectedQuery: "^SELECT [`\"]?id[`\"]?,[`\"]?username[`\"]? FROM [`\"]members[`\"] WHERE \\(age >= (?:\\$\\d|\\?) AND \\(team_id = (?:\\$\\d|\\?) OR team_id IS NULL\\)\\)$",
			expectedArgs:  []driver.Value{10, 1},
		},
	}

	for _, sqlMockFn := range _sqlMockFnList {
		for _, tt := range tests {
			dialect, db, dbMock := sqlMockFn(t)
			t.Run(fmt.Sprintf("%s %s", dialect, tt.name), func(t *testing.T) {
				expectation := dbMock.ExpectQuery(tt.expectedQuery)
				if len(tt.expectedArgs) > 0 {
					expectation = expectation.WithArgs(tt.expectedArgs...)
				}
				expectation.WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "member1"))

				members, err := NewGormStore[tMember](db).Query(context.Background(), tt.query)
				require.NoError(t, err)
				assert.Equal(t, []string{"member1"}, usernames(members))

				assert.NoError(t, dbMock.ExpectationsWereMet())
			})
		}
	}
}

func Test_GormStore_Count_SQL(t *testing.T) {
	for _, sqlMockFn := range _sqlMockFnList {
		dialect, db, dbMock := sqlMockFn(t)
		t.Run(dialect, func(t *testing.T) {
			dbMock.ExpectQuery("^SELECT count\\(\\*\\) FROM [`\"]members[`\"] WHERE age > (?:\\$\\d|\\?)$").
				WithArgs(18).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

			total, err := NewGormStore[tMember](db).Count(context.Background(), "", Gt("age", 18))
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)

			assert.NoError(t, dbMock.ExpectationsWereMet())
		})
	}
}

func Test_GormStore_QueryOne_SQL(t *testing.T) {
	tests := []struct {
		name      string
		rows      *sqlmock.Rows
		wantName  string
		wantNil   bool
		wantMulti bool
	}{
		{"no match", sqlmock.NewRows([]string{"id", "username"}), "", true, false},
		{"single match", sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "member1"), "member1", false, false},
		{
			"multiple matches",
			sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "member1").AddRow(2, "member1"),
			"", true, true,
		},
	}

	for _, sqlMockFn := range _sqlMockFnList {
		for _, tt := range tests {
			dialect, db, dbMock := sqlMockFn(t)
			t.Run(fmt.Sprintf("%s %s", dialect, tt.name), func(t *testing.T) {
				dbMock.ExpectQuery("^SELECT \\* FROM [`\"]members[`\"] WHERE username = (?:\\$\\d|\\?) LIMIT 2$").
					WithArgs("member1").
					WillReturnRows(tt.rows)

				member, err := NewGormStore[tMember](db).QueryOne(context.Background(), "", Eq("username", "member1"))
				if tt.wantMulti {
					require.ErrorIs(t, err, ErrMultipleResults)
					assert.Contains(t, err.Error(), "username = ?")
				} else {
					require.NoError(t, err)
				}

				if tt.wantNil {
					assert.Nil(t, member)
				} else {
					require.NotNil(t, member)
					assert.Equal(t, tt.wantName, lo.FromPtr(member.Username))
				}

				assert.NoError(t, dbMock.ExpectationsWereMet())
			})
		}
	}
}

func Test_GormStore_Execute_SQL(t *testing.T) {
	tests := []struct {
		name          string
		mutation      Mutation
		expectedQuery string
		expectedArgs  []driver.Value
		affected      int64
	}{
		{
			name:          "bulk update",
			mutation:      NewUpdate(map[string]any{"username": "guest"}, Lt("age", 28)),
			expectedQuery: "^UPDATE [`\"]members[`\"] SET [`\"]username[`\"]=(?:\\$\\d|\\?) WHERE age < (?:\\$\\d|\\?)$",
			expectedArgs:  []driver.Value{"guest", 28},
			affected:      2,
		},
		{
			name:          "bulk update of every row with an expression",
			mutation:      NewUpdate(map[string]any{"age": Expr("age * ?", 2)}),
			expectedQuery: "^UPDATE [`\"]members[`\"] SET [`\"]age[`\"]=age \\* (?:\\$\\d|\\?)$",
			expectedArgs:  []driver.Value{2},
			affected:      4,
		},
		{
			name:          "bulk delete",
			mutation:      NewDelete(Gt("age", 18)),
			expectedQuery: "^DELETE FROM [`\"]members[`\"] WHERE age > (?:\\$\\d|\\?)$",
			expectedArgs:  []driver.Value{18},
			affected:      3,
		},
	}

	for _, sqlMockFn := range _sqlMockFnList {
		for _, tt := range tests {
			dialect, db, dbMock := sqlMockFn(t)
			t.Run(fmt.Sprintf("%s %s", dialect, tt.name), func(t *testing.T) {
				dbMock.ExpectBegin()
				dbMock.ExpectExec(tt.expectedQuery).
					WithArgs(tt.expectedArgs...).
					WillReturnResult(sqlmock.NewResult(0, tt.affected))
				dbMock.ExpectCommit()

				affected, err := NewGormStore[tMember](db).Execute(context.Background(), tt.mutation)
				require.NoError(t, err)
				assert.Equal(t, tt.affected, affected)

				assert.NoError(t, dbMock.ExpectationsWereMet())
			})
		}
	}
}

func Test_GormStore_PropagatesStorageErrors(t *testing.T) {
	storageErr := errors.New("connection reset")

	for _, sqlMockFn := range _sqlMockFnList {
		dialect, db, dbMock := sqlMockFn(t)
		t.Run(dialect, func(t *testing.T) {
			dbMock.ExpectQuery("^SELECT").WillReturnError(storageErr)

			_, err := NewGormStore[tMember](db).Query(context.Background(), NewQuery())
			require.ErrorIs(t, err, storageErr)

			assert.NoError(t, dbMock.ExpectationsWereMet())
		})
	}
}

func Test_GormStore_RejectsInvalidInput(t *testing.T) {
	_, db, dbMock := newGORMMySQLMock(t)
	store := NewGormStore[tMember](db)
	ctx := context.Background()

	_, err := store.Query(ctx, NewQuery().Where(Eq("age; DROP TABLE members", 1)))
	require.Error(t, err)

	_, err = store.Count(ctx, "members;", nil)
	require.Error(t, err)

	_, err = store.QueryOne(ctx, "", Raw("age > ?"))
	require.Error(t, err)

	_, err = store.Execute(ctx, NewUpdate(nil))
	require.Error(t, err)

	assert.NoError(t, dbMock.ExpectationsWereMet(), "invalid input must not reach storage")
}

func Test_GormStore_SQLite_Compose(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore[tMember](db)
	ctx := context.Background()

	search := func(username *string, age *int) []string {
		members, err := store.Query(ctx, NewQuery().
			Where(Compose(WhenEq("username", username), WhenEq("age", age))).
			WithSort(Asc("id")))
		require.NoError(t, err)

		return usernames(members)
	}

	assert.Equal(t, []string{"member1"}, search(lo.ToPtr("member1"), nil))
	assert.Equal(t, []string{"member1"}, search(lo.ToPtr("member1"), lo.ToPtr(10)))
	assert.Empty(t, search(lo.ToPtr("member1"), lo.ToPtr(20)))
	assert.Equal(t, []string{"member1", "member2", "member3", "member4"}, search(nil, nil))
}

func Test_GormStore_SQLite_CriteriaOrderDoesNotMatter(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore[tMember](db)
	ctx := context.Background()

	older := When("minAge", lo.ToPtr(15), func(v int) Predicate { return Gte("age", v) })
	younger := When("maxAge", lo.ToPtr(35), func(v int) Predicate { return Lte("age", v) })

	forward, err := store.Query(ctx, NewQuery().Where(Compose(older, younger)).WithSort(Asc("id")))
	require.NoError(t, err)

	backward, err := store.Query(ctx, NewQuery().Where(Compose(younger, older)).WithSort(Asc("id")))
	require.NoError(t, err)

	assert.Equal(t, []string{"member2", "member3"}, usernames(forward))
	assert.Equal(t, usernames(forward), usernames(backward))

	absent, err := store.Count(ctx, "", Compose(WhenEq[int]("age", nil)))
	require.NoError(t, err)
	everything, err := store.Count(ctx, "", Gte("age", 0))
	require.NoError(t, err)
	assert.Equal(t, everything, absent, "absent criterion must not narrow the result")
}

func Test_GormStore_SQLite_FetchPage(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore[tMember](db)

	page, err := FetchPage[tMember](context.Background(), store, NewQuery().
		WithSort(Desc("username")).
		WithOffset(1).
		WithLimit(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"member3", "member2"}, usernames(page.Items))
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 1, page.Offset)
	assert.Equal(t, 2, page.AppliedLimit)
	require.False(t, page.IsLastPage())
	assert.Equal(t, 3, page.NextPageToken.GetOffset())

	last, err := FetchPage[tMember](context.Background(), store, NewQuery().
		WithSort(Desc("username")).
		WithPageToken(page.NextPageToken).
		WithLimit(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"member1"}, usernames(last.Items))
	assert.Equal(t, int64(4), last.Total)
	assert.True(t, last.IsLastPage())
}

func Test_GormStore_SQLite_OffsetWithoutLimit(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore[tMember](db)

	members, err := store.Query(context.Background(), NewQuery().WithSort(Desc("username")).WithOffset(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"member3", "member2", "member1"}, usernames(members))

	q, err := RawPage{Limit: NoLimit, PageToken: NewPageToken(3).String()}.Decode(nil, Asc("id"))
	require.NoError(t, err)

	members, err = store.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"member4"}, usernames(members))
}

func Test_GormStore_SQLite_NullsOrdering(t *testing.T) {
	db := newSQLiteDB(t)
	require.NoError(t, db.Create(&[]tMember{
		{Username: nil, Age: 100},
		{Username: lo.ToPtr("member5"), Age: 100},
		{Username: lo.ToPtr("member6"), Age: 100},
	}).Error)

	store := NewGormStore[tMember](db)
	ctx := context.Background()

	tests := []struct {
		name string
		sort Orderings
		want []string
	}{
		{"ascending nulls last", Orderings{Desc("age"), Asc("username").NullsLast()}, []string{"member5", "member6", "<nil>"}},
		{"ascending nulls first", Orderings{Desc("age"), Asc("username").NullsFirst()}, []string{"<nil>", "member5", "member6"}},
		{"descending nulls last", Orderings{Desc("username").NullsLast()}, []string{"member6", "member5", "<nil>"}},
		{"descending nulls first", Orderings{Desc("username").NullsFirst()}, []string{"<nil>", "member6", "member5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members, err := store.Query(ctx, NewQuery().Where(Eq("age", 100)).WithSubstitutedSort(tt.sort...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, usernames(members))
		})
	}
}

func Test_GormStore_SQLite_QueryOne(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore[tMember](db)
	ctx := context.Background()

	member, err := store.QueryOne(ctx, "", Eq("username", "member1"))
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, 10, member.Age)

	member, err = store.QueryOne(ctx, "", Eq("username", "nobody"))
	require.NoError(t, err)
	assert.Nil(t, member)

	_, err = store.QueryOne(ctx, "", Lt("age", 25))
	require.ErrorIs(t, err, ErrMultipleResults)
}

func Test_GormStore_SQLite_BulkMutations(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore[tMember](db)
	ctx := context.Background()

	// Loaded before the bulk update; the store must not serve it again.
	before, err := store.QueryOne(ctx, "", Eq("username", "member1"))
	require.NoError(t, err)
	require.NotNil(t, before)

	affected, err := store.Execute(ctx, NewUpdate(map[string]any{"username": "guest"}, Lt("age", 28)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	after, err := store.Query(ctx, NewQuery().WithSort(Asc("id")))
	require.NoError(t, err)
	assert.Equal(t, []string{"guest", "guest", "member3", "member4"}, usernames(after))
	assert.Equal(t, "member1", lo.FromPtr(before.Username))

	affected, err = store.Execute(ctx, NewUpdate(map[string]any{"age": Expr("age * ?", 2)}))
	require.NoError(t, err)
	assert.Equal(t, int64(4), affected)

	ages, err := store.Query(ctx, NewQuery().WithSort(Asc("id")))
	require.NoError(t, err)
	assert.Equal(t, []int{20, 40, 60, 80}, lo.Map(ages, func(m tMember, _ int) int { return m.Age }))

	affected, err = store.Execute(ctx, NewDelete(Gt("age", 50)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	total, err := store.Count(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func Test_GormStore_SQLite_ExplicitTable(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore[tTeam](db)

	teams, err := store.Query(context.Background(), NewQuery().
		WithFrom("teams").
		Where(In("name", "teamB", "teamC")))
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "teamB", teams[0].Name)

	none, err := store.Count(context.Background(), "teams", In[string]("name"))
	require.NoError(t, err)
	assert.Zero(t, none)
}
