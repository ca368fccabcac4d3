package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/autoinvite/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists the settings record.
type Store interface {
	// Load returns the stored record, or Defaults when none exists.
	Load(ctx context.Context) (Settings, error)
	// Save writes s durably before returning.
	Save(ctx context.Context, s Settings) error
}

// GormStore keeps the record in a single plugin_settings row.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore. The table must already be migrated.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) Load(ctx context.Context) (Settings, error) {
	var row model.PluginSettings
	err := g.db.WithContext(ctx).First(&row, model.SettingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: load: %w", err)
	}
	return migrate(Settings{
		Version:               row.Version,
		MaxDistance:           row.MaxDistance,
		DelayBetweenInvitesMs: row.DelayBetweenInvitesMs,
		AutoInviteEnabled:     row.AutoInviteEnabled,
		ShowDebugMessages:     row.ShowDebugMessages,
	}), nil
}

func (g *GormStore) Save(ctx context.Context, s Settings) error {
	row := model.PluginSettings{
		ID:                    model.SettingsRowID,
		Version:               s.Version,
		MaxDistance:           s.MaxDistance,
		DelayBetweenInvitesMs: s.DelayBetweenInvitesMs,
		AutoInviteEnabled:     s.AutoInviteEnabled,
		ShowDebugMessages:     s.ShowDebugMessages,
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"version", "max_distance", "delay_between_invites_ms",
			"auto_invite_enabled", "show_debug_messages", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}
