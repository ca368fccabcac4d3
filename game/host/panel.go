package host

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kasuganosora/autoinvite/game/chat"
	"github.com/kasuganosora/autoinvite/settings"
)

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrNotANumber     = errors.New("not a finite number")
)

// SettingsEditor is the settings owner the panel edits.
type SettingsEditor interface {
	Current() settings.Settings
	SetMaxDistance(ctx context.Context, v float32) error
	SetDelayBetweenInvitesMs(ctx context.Context, v int) error
	SetAutoInviteEnabled(ctx context.Context, v bool) error
	SetShowDebugMessages(ctx context.Context, v bool) error
}

// SettingsPanel is the text rendition of the settings window.
type SettingsPanel struct {
	editor SettingsEditor
	out    chat.Printer
}

// NewSettingsPanel creates a SettingsPanel.
func NewSettingsPanel(editor SettingsEditor, out chat.Printer) *SettingsPanel {
	return &SettingsPanel{editor: editor, out: out}
}

// OpenSettings prints the current values and how to change them.
func (p *SettingsPanel) OpenSettings() {
	s := p.editor.Current()
	p.out.Print("Auto Invite settings:")
	p.out.Print(fmt.Sprintf("  distance  %.1f yalms (%.0f-%.0f)", s.MaxDistance, settings.MinMaxDistance, settings.MaxMaxDistance))
	p.out.Print(fmt.Sprintf("  delay     %d ms (%d-%d)", s.DelayBetweenInvitesMs, settings.MinDelayMs, settings.MaxDelayMs))
	p.out.Print(fmt.Sprintf("  auto      %s", onOff(s.AutoInviteEnabled)))
	p.out.Print(fmt.Sprintf("  debug     %s", onOff(s.ShowDebugMessages)))
	p.out.Print("Change a value with /fcset <name> <value>.")
}

// Apply sets one field from its text form. Numbers are clamped to range.
func (p *SettingsPanel) Apply(ctx context.Context, name, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ToLower(name) {
	case "distance":
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return fmt.Errorf("distance: %w", err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("distance: %w: %s", ErrNotANumber, value)
		}
		return p.editor.SetMaxDistance(ctx, float32(v))
	case "delay":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("delay: %w", err)
		}
		return p.editor.SetDelayBetweenInvitesMs(ctx, v)
	case "auto":
		v, err := parseSwitch(value)
		if err != nil {
			return fmt.Errorf("auto: %w", err)
		}
		return p.editor.SetAutoInviteEnabled(ctx, v)
	case "debug":
		v, err := parseSwitch(value)
		if err != nil {
			return fmt.Errorf("debug: %w", err)
		}
		return p.editor.SetShowDebugMessages(ctx, v)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
