package model_test

import (
	"testing"

	"github.com/kasuganosora/autoinvite/model"
	"github.com/kasuganosora/autoinvite/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	s := &model.PluginSettings{
		ID:                    model.SettingsRowID,
		Version:               1,
		MaxDistance:           42.5,
		DelayBetweenInvitesMs: 3000,
		ShowDebugMessages:     true,
	}
	require.NoError(t, db.Create(s).Error)

	var found model.PluginSettings
	require.NoError(t, db.First(&found, model.SettingsRowID).Error)
	assert.Equal(t, float32(42.5), found.MaxDistance)
	assert.Equal(t, 3000, found.DelayBetweenInvitesMs)
	assert.True(t, found.ShowDebugMessages)
	assert.False(t, found.AutoInviteEnabled)

	entry := &model.InviteLog{
		RunID:      "run-1",
		TargetID:   7,
		TargetName: "Alice",
		Success:    true,
		Detail:     datatypes.JSON(`{"distance":4.5}`),
	}
	require.NoError(t, db.Create(entry).Error)
	assert.Greater(t, entry.ID, int64(0))

	var logs []model.InviteLog
	require.NoError(t, db.Where("run_id = ?", "run-1").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "Alice", logs[0].TargetName)
	assert.False(t, logs[0].CreatedAt.IsZero())
}

func TestAutoMigrate_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, model.AutoMigrate(db))
	require.NoError(t, model.AutoMigrate(db))
}
