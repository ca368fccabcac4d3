package model

import (
	"time"

	"gorm.io/datatypes"
)

// InviteLog records one invite attempt made during a dispatch run.
type InviteLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string         `gorm:"index:idx_invite_run;size:36;not null" json:"run_id"`
	TargetID   uint32         `gorm:"index:idx_invite_target" json:"target_id"`
	TargetName string         `gorm:"size:32" json:"target_name"`
	Success    bool           `gorm:"not null" json:"success"`
	Error      string         `gorm:"type:text" json:"error"`
	Detail     datatypes.JSON `json:"detail"`
	CreatedAt  time.Time      `gorm:"index:idx_invite_created;autoCreateTime:milli" json:"created_at"`
}
