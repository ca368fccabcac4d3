package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/autoinvite/game/command"
	"github.com/kasuganosora/autoinvite/game/invite"
	"github.com/kasuganosora/autoinvite/model"
	"github.com/kasuganosora/autoinvite/settings"
	"go.uber.org/zap"
)

const (
	defaultHistoryLines = 20
	maxHistoryLines     = 500
	storeTimeout        = 5 * time.Second
)

// SettingsService is the settings owner behind the panel endpoints.
type SettingsService interface {
	Current() settings.Settings
	SetMaxDistance(ctx context.Context, v float32) error
	SetDelayBetweenInvitesMs(ctx context.Context, v int) error
	SetAutoInviteEnabled(ctx context.Context, v bool) error
	SetShowDebugMessages(ctx context.Context, v bool) error
}

// CommandRouter routes the invite command.
type CommandRouter interface {
	Route(command, argument string) command.Action
}

// StatusSource reports the dispatcher state.
type StatusSource interface {
	Status() invite.Status
}

// TaskLister reports background work.
type TaskLister interface {
	Running() []string
	ListTickers() []string
}

// HistoryReader returns recent chat lines, oldest first.
type HistoryReader interface {
	History(ctx context.Context, n int) ([]string, error)
}

// AttemptReader returns the recorded attempts of one run.
type AttemptReader interface {
	ForRun(ctx context.Context, runID string) ([]model.InviteLog, error)
}

// ControlHandler serves the control API: the settings panel, the invite
// command and read-only status.
type ControlHandler struct {
	settings SettingsService
	router   CommandRouter
	status   StatusSource
	tasks    TaskLister
	history  HistoryReader
	attempts AttemptReader
	verb     string
	logger   *zap.Logger
}

// NewControlHandler creates a ControlHandler. verb is the command used
// when a request does not name one.
func NewControlHandler(
	s SettingsService,
	router CommandRouter,
	status StatusSource,
	tasks TaskLister,
	history HistoryReader,
	attempts AttemptReader,
	verb string,
	logger *zap.Logger,
) *ControlHandler {
	return &ControlHandler{
		settings: s,
		router:   router,
		status:   status,
		tasks:    tasks,
		history:  history,
		attempts: attempts,
		verb:     verb,
		logger:   logger,
	}
}

// GetSettings returns the live settings.
// GET /api/settings
func (h *ControlHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Current())
}

type settingsPatch struct {
	MaxDistance           *float32 `json:"max_distance"`
	DelayBetweenInvitesMs *int     `json:"delay_between_invites_ms"`
	AutoInviteEnabled     *bool    `json:"auto_invite_enabled"`
	ShowDebugMessages     *bool    `json:"show_debug_messages"`
}

// PatchSettings applies each present field through its setter, one save
// per field. Out-of-range numbers are clamped.
// PATCH /api/settings
func (h *ControlHandler) PatchSettings(c *gin.Context) {
	var req settingsPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	var steps []func() error
	if req.MaxDistance != nil {
		steps = append(steps, func() error { return h.settings.SetMaxDistance(ctx, *req.MaxDistance) })
	}
	if req.DelayBetweenInvitesMs != nil {
		steps = append(steps, func() error { return h.settings.SetDelayBetweenInvitesMs(ctx, *req.DelayBetweenInvitesMs) })
	}
	if req.AutoInviteEnabled != nil {
		steps = append(steps, func() error { return h.settings.SetAutoInviteEnabled(ctx, *req.AutoInviteEnabled) })
	}
	if req.ShowDebugMessages != nil {
		steps = append(steps, func() error { return h.settings.SetShowDebugMessages(ctx, *req.ShowDebugMessages) })
	}
	if len(steps) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings given"})
		return
	}

	for _, step := range steps {
		if err := step(); err != nil {
			h.logger.Error("settings update failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    "failed to save settings",
				"settings": h.settings.Current(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, h.settings.Current())
}

type commandRequest struct {
	Command  string `json:"command"`
	Argument string `json:"argument"`
}

// Command routes the invite command. A run is started in the background
// and the request returns without waiting for it.
// POST /api/command
func (h *ControlHandler) Command(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Command == "" {
		req.Command = h.verb
	}
	action := h.router.Route(req.Command, req.Argument)
	c.JSON(http.StatusAccepted, gin.H{"action": action})
}

// Status returns the dispatcher state, the last run and background tasks.
// GET /api/status
func (h *ControlHandler) Status(c *gin.Context) {
	st := h.status.Status()
	c.JSON(http.StatusOK, gin.H{
		"state":        st.State,
		"last_outcome": st.LastOutcome,
		"tasks":        h.tasks.Running(),
		"tickers":      h.tasks.ListTickers(),
	})
}

// ChatHistory returns the most recent plugin chat lines.
// GET /api/chat/history?n=20
func (h *ControlHandler) ChatHistory(c *gin.Context) {
	n := defaultHistoryLines
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid n"})
			return
		}
		n = min(v, maxHistoryLines)
	}
	lines, err := h.history.History(c.Request.Context(), n)
	if err != nil {
		h.logger.Error("chat history read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	if lines == nil {
		lines = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

type attemptView struct {
	TargetID   uint32    `json:"target_id"`
	TargetName string    `json:"target_name"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// RunAttempts returns the recorded attempts of one run.
// GET /api/runs/:id/attempts
func (h *ControlHandler) RunAttempts(c *gin.Context) {
	logs, err := h.attempts.ForRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("attempt query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]attemptView, 0, len(logs))
	for _, l := range logs {
		out = append(out, attemptView{
			TargetID:   l.TargetID,
			TargetName: l.TargetName,
			Success:    l.Success,
			Error:      l.Error,
			At:         l.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("id"), "attempts": out})
}
