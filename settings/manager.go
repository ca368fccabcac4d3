package settings

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Manager owns the live settings record for the process.
// Readers always see the latest saved value; every setter persists
// synchronously before returning.
type Manager struct {
	mu       sync.RWMutex
	current  Settings
	store    Store
	onChange []func(Settings)
	logger   *zap.Logger
}

// NewManager loads the stored record (or defaults) and returns its owner.
func NewManager(ctx context.Context, store Store, logger *zap.Logger) (*Manager, error) {
	s, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Manager{current: s, store: store, logger: logger}, nil
}

// Current returns the settings as of this call.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnChange registers fn to be called after every successful save.
func (m *Manager) OnChange(fn func(Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

func (m *Manager) SetMaxDistance(ctx context.Context, v float32) error {
	return m.update(ctx, "max_distance", func(s *Settings) { s.MaxDistance = clampDistance(v) })
}

func (m *Manager) SetDelayBetweenInvitesMs(ctx context.Context, v int) error {
	return m.update(ctx, "delay_between_invites_ms", func(s *Settings) { s.DelayBetweenInvitesMs = clampDelay(v) })
}

// SetAutoInviteEnabled stores the flag. Nothing reads it yet.
func (m *Manager) SetAutoInviteEnabled(ctx context.Context, v bool) error {
	return m.update(ctx, "auto_invite_enabled", func(s *Settings) { s.AutoInviteEnabled = v })
}

func (m *Manager) SetShowDebugMessages(ctx context.Context, v bool) error {
	return m.update(ctx, "show_debug_messages", func(s *Settings) { s.ShowDebugMessages = v })
}

// update applies one field change and saves it. On save failure the
// in-memory record is left unchanged.
func (m *Manager) update(ctx context.Context, field string, apply func(*Settings)) error {
	m.mu.Lock()
	next := m.current
	apply(&next)
	if err := m.store.Save(ctx, next); err != nil {
		m.mu.Unlock()
		m.logger.Error("settings save failed", zap.String("field", field), zap.Error(err))
		return err
	}
	m.current = next
	hooks := slices.Clone(m.onChange)
	m.mu.Unlock()

	m.logger.Debug("settings saved", zap.String("field", field))
	for _, fn := range hooks {
		fn(next)
	}
	return nil
}
