package gofilter

import (
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type tTeam struct {
	ID   uint
	Name string
}

func (tTeam) TableName() string {
	return "teams"
}

type tMember struct {
	ID       uint
	Username *string
	Age      int
	TeamID   *uint
}

func (tMember) TableName() string {
	return "members"
}

func newMember(username string, age int, teamID uint) tMember {
	return tMember{Username: lo.ToPtr(username), Age: age, TeamID: lo.ToPtr(teamID)}
}

func usernames(members []tMember) []string {
	return lo.Map(members, func(m tMember, _ int) string {
		return lo.FromPtrOr(m.Username, "<nil>")
	})
}

func newTestGormConfig(t *testing.T) *gorm.Config {
	return &gorm.Config{
		Logger: NewGormLogger(zaptest.NewLogger(t), GormLoggerConfig{LogLevel: gormlogger.Info}),
	}
}

func newGORMMySQLMock(t *testing.T) (string, *gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	})

	db, err := gorm.Open(dialector, newTestGormConfig(t))
	require.NoError(t, err)

	return "mysql", db, mock
}

func newGORMPostgresMock(t *testing.T) (string, *gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})

	db, err := gorm.Open(dialector, newTestGormConfig(t))
	require.NoError(t, err)

	return "postgres", db, mock
}

// newSQLiteDB returns a file backed SQLite database seeded with the
// member/team fixture:
//
//	teamA: member1 (10), member2 (20)
//	teamB: member3 (30), member4 (40)
func newSQLiteDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "members.db")), newTestGormConfig(t))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&tTeam{}, &tMember{}))

	teams := []tTeam{{Name: "teamA"}, {Name: "teamB"}}
	require.NoError(t, db.Create(&teams).Error)

	members := []tMember{
		newMember("member1", 10, teams[0].ID),
		newMember("member2", 20, teams[0].ID),
		newMember("member3", 30, teams[1].ID),
		newMember("member4", 40, teams[1].ID),
	}
	require.NoError(t, db.Create(&members).Error)

	return db
}
