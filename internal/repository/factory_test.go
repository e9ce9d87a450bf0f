package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewGormDB_UnsupportedDriver(t *testing.T) {
	_, err := NewGormDB(DBConfig{Driver: "oracle", DSN: "irrelevant"})
	assert.Error(t, err)
}

// TestGormRunRepository_AgainstMockedMySQLConnection exercises
// GormRunRepository's generated SQL against a sqlmock-backed connection
// rather than a real database, the same way the teacher's mysql/postgres
// repository tests mock the driver layer.
func TestGormRunRepository_AgainstMockedMySQLConnection(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	dialector := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `hprofviz_run`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	repo := NewGormRunRepository(db)
	id, err := repo.CreateRun(context.Background(), &Run{Kind: RunKindBuildIndex, InputPath: "heap.hprof"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.NoError(t, mock.ExpectationsWereMet())
}
