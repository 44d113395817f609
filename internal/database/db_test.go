package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JustJay7/court-data-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabasePath:   filepath.Join(t.TempDir(), "nested", "court_data.db"),
		LogLevel:       "error",
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Initialize(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestInitializeCreatesSchema(t *testing.T) {
	cfg := testConfig(t)
	db, err := Initialize(cfg)
	require.NoError(t, err)
	defer Close(db)

	_, err = os.Stat(cfg.DatabasePath)
	require.NoError(t, err, "database file should exist")

	assert.True(t, db.Migrator().HasTable(&Query{}))
	assert.True(t, db.Migrator().HasTable(&Judgment{}))

	for _, name := range []string{"idx_queries_case", "idx_queries_court", "idx_queries_time", "idx_judgments_query"} {
		var count int64
		err := db.Raw("SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?", name).Scan(&count).Error
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, name)
	}

	require.NoError(t, Ping(context.Background(), db))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)

	var enabled int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error)
	assert.Equal(t, 1, enabled)

	err := db.Create(&Judgment{
		QueryID:      4242,
		Filename:     "judgment.pdf",
		FilePath:     "/tmp/judgment.pdf",
		DownloadTime: time.Now(),
	}).Error
	assert.Error(t, err)
}

func TestCheckConstraints(t *testing.T) {
	db := openTestDB(t)

	valid := &Query{
		Kind:      KindCase,
		CaseType:  "CS",
		CourtType: "high_court",
		CourtName: "Delhi",
		QueryTime: time.Now().UTC(),
		Status:    StatusPending,
	}
	require.NoError(t, db.Create(valid).Error)
	assert.NotZero(t, valid.ID)

	badStatus := *valid
	badStatus.ID = 0
	badStatus.Status = "unknown"
	assert.Error(t, db.Create(&badStatus).Error)

	badCourt := *valid
	badCourt.ID = 0
	badCourt.CourtType = "supreme_court"
	assert.Error(t, db.Create(&badCourt).Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DatabaseDriver: "oracle"})
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
