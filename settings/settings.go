package settings

import (
	"errors"
	"fmt"
	"math"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 1

const (
	MinMaxDistance = 5.0
	MaxMaxDistance = 100.0
	MinDelayMs     = 1000
	MaxDelayMs     = 10000
)

// ErrOutOfRange is returned by Validate for a field outside its panel range.
var ErrOutOfRange = errors.New("settings: value out of range")

// Settings holds the user tunables.
// AutoInviteEnabled is stored but not acted on.
type Settings struct {
	Version               int     `json:"version"`
	MaxDistance           float32 `json:"max_distance"`
	DelayBetweenInvitesMs int     `json:"delay_between_invites_ms"`
	AutoInviteEnabled     bool    `json:"auto_invite_enabled"`
	ShowDebugMessages     bool    `json:"show_debug_messages"`
}

// Defaults returns the first-run settings.
func Defaults() Settings {
	return Settings{
		Version:               CurrentVersion,
		MaxDistance:           30.0,
		DelayBetweenInvitesMs: 2000,
	}
}

// Validate checks every ranged field.
func (s Settings) Validate() error {
	if !finite(s.MaxDistance) || s.MaxDistance < MinMaxDistance || s.MaxDistance > MaxMaxDistance {
		return fmt.Errorf("%w: max_distance=%.1f", ErrOutOfRange, s.MaxDistance)
	}
	if s.DelayBetweenInvitesMs < MinDelayMs || s.DelayBetweenInvitesMs > MaxDelayMs {
		return fmt.Errorf("%w: delay_between_invites_ms=%d", ErrOutOfRange, s.DelayBetweenInvitesMs)
	}
	return nil
}

// Clamp returns s with ranged fields snapped into their bounds.
func (s Settings) Clamp() Settings {
	s.MaxDistance = clampDistance(s.MaxDistance)
	s.DelayBetweenInvitesMs = clampDelay(s.DelayBetweenInvitesMs)
	return s
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// clampDistance maps NaN to the default distance.
func clampDistance(v float32) float32 {
	if math.IsNaN(float64(v)) {
		return Defaults().MaxDistance
	}
	if v < MinMaxDistance {
		return MinMaxDistance
	}
	if v > MaxMaxDistance {
		return MaxMaxDistance
	}
	return v
}

func clampDelay(v int) int {
	if v < MinDelayMs {
		return MinDelayMs
	}
	if v > MaxDelayMs {
		return MaxDelayMs
	}
	return v
}

// migrate upgrades a stored record. Versions only move forward; a record
// written by a newer build keeps its version.
func migrate(s Settings) Settings {
	if s.Version < CurrentVersion {
		d := Defaults()
		// Version 0 records could be saved with zero-valued fields.
		if s.MaxDistance == 0 {
			s.MaxDistance = d.MaxDistance
		}
		if s.DelayBetweenInvitesMs == 0 {
			s.DelayBetweenInvitesMs = d.DelayBetweenInvitesMs
		}
		s.Version = CurrentVersion
	}
	return s
}
