package db

import (
	"path/filepath"
	"testing"

	"github.com/kasuganosora/autoinvite/config"
	"github.com/kasuganosora/autoinvite/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "autoinvite.db")
	db, err := Open(config.DatabaseConfig{Mode: ModeSQLite, SQLitePath: path})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	require.NoError(t, db.Create(&model.InviteLog{RunID: "r", TargetName: "A"}).Error)

	var n int64
	db.Model(&model.InviteLog{}).Count(&n)
	assert.Equal(t, int64(1), n)

	sqlDB, _ := db.DB()
	require.NoError(t, sqlDB.Close())
}

func TestOpen_MemoryIsPrivate(t *testing.T) {
	a, err := Open(config.DatabaseConfig{Mode: ModeSQLiteMemory})
	require.NoError(t, err)
	b, err := Open(config.DatabaseConfig{Mode: ModeSQLiteMemory})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(a))

	assert.True(t, a.Migrator().HasTable(&model.InviteLog{}))
	assert.False(t, b.Migrator().HasTable(&model.InviteLog{}))
}

func TestOpen_UnknownMode(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: "postgres"})
	assert.ErrorContains(t, err, "unknown mode")
}
