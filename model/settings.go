package model

import "time"

// SettingsRowID is the primary key of the single settings row.
const SettingsRowID = 1

// PluginSettings is the persisted form of the invite tunables.
type PluginSettings struct {
	ID                    int64     `gorm:"primaryKey" json:"id"`
	Version               int       `gorm:"not null;default:0" json:"version"`
	MaxDistance           float32   `gorm:"not null" json:"max_distance"`
	DelayBetweenInvitesMs int       `gorm:"not null" json:"delay_between_invites_ms"`
	AutoInviteEnabled     bool      `gorm:"not null;default:false" json:"auto_invite_enabled"`
	ShowDebugMessages     bool      `gorm:"not null;default:false" json:"show_debug_messages"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime:milli" json:"updated_at"`
}
