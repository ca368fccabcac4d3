package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/autoinvite/api/rest"
	"github.com/kasuganosora/autoinvite/game/chat"
	"github.com/kasuganosora/autoinvite/game/command"
	"github.com/kasuganosora/autoinvite/game/invite"
	"github.com/kasuganosora/autoinvite/model"
	"github.com/kasuganosora/autoinvite/scheduler"
	"github.com/kasuganosora/autoinvite/settings"
	"github.com/kasuganosora/autoinvite/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func nopLogger() *zap.Logger { return zap.NewNop() }

type routeCall struct{ command, argument string }

type fakeRouter struct{ calls []routeCall }

func (f *fakeRouter) Route(cmd, arg string) command.Action {
	f.calls = append(f.calls, routeCall{cmd, arg})
	if arg == command.ConfigArgument {
		return command.ActionOpenSettings
	}
	return command.ActionRun
}

type fakeStatus struct{ st invite.Status }

func (f fakeStatus) Status() invite.Status { return f.st }

type fakeAttempts struct {
	logs []model.InviteLog
	err  error
}

func (f fakeAttempts) ForRun(_ context.Context, runID string) ([]model.InviteLog, error) {
	var out []model.InviteLog
	for _, l := range f.logs {
		if l.RunID == runID {
			out = append(out, l)
		}
	}
	return out, f.err
}

// countingStore wraps the gorm store and counts saves.
type countingStore struct {
	settings.Store
	saves int
	fail  bool
}

func (s *countingStore) Save(ctx context.Context, v settings.Settings) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.saves++
	return s.Store.Save(ctx, v)
}

type fixture struct {
	engine  *gin.Engine
	router  *fakeRouter
	store   *countingStore
	mgr     *settings.Manager
	printer *chat.ChannelPrinter
}

func newControlRouter(t *testing.T, st invite.Status, attempts fakeAttempts) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := &countingStore{Store: settings.NewGormStore(db)}
	mgr, err := settings.NewManager(context.Background(), store, nopLogger())
	require.NoError(t, err)

	c, ps := testutil.SetupTestCache(t)
	printer := chat.NewChannelPrinter(c, ps, 10, nopLogger())

	sched := scheduler.New(nopLogger())
	t.Cleanup(sched.Stop)
	sched.AddTicker("fixture-reload", time.Hour, func() {})

	router := &fakeRouter{}
	h := rest.NewControlHandler(mgr, router, fakeStatus{st}, sched, printer, attempts, "/fcinvite", nopLogger())

	r := gin.New()
	r.GET("/api/settings", h.GetSettings)
	r.PATCH("/api/settings", h.PatchSettings)
	r.POST("/api/command", h.Command)
	r.GET("/api/status", h.Status)
	r.GET("/api/chat/history", h.ChatHistory)
	r.GET("/api/runs/:id/attempts", h.RunAttempts)
	return &fixture{engine: r, router: router, store: store, mgr: mgr, printer: printer}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetSettings_Defaults(t *testing.T) {
	f := newControlRouter(t, invite.Status{State: "idle"}, fakeAttempts{})
	w := do(f.engine, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, settings.Defaults(), decode[settings.Settings](t, w))
}

func TestPatchSettings_SavesEachField(t *testing.T) {
	f := newControlRouter(t, invite.Status{State: "idle"}, fakeAttempts{})
	w := do(f.engine, http.MethodPatch, "/api/settings",
		`{"max_distance": 250, "delay_between_invites_ms": 1500, "show_debug_messages": true}`)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[settings.Settings](t, w)
	assert.Equal(t, float32(settings.MaxMaxDistance), got.MaxDistance, "clamped")
	assert.Equal(t, 1500, got.DelayBetweenInvitesMs)
	assert.True(t, got.ShowDebugMessages)
	assert.False(t, got.AutoInviteEnabled)
	assert.Equal(t, 3, f.store.saves)

	persisted, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, persisted)
}

func TestPatchSettings_Errors(t *testing.T) {
	f := newControlRouter(t, invite.Status{State: "idle"}, fakeAttempts{})

	assert.Equal(t, http.StatusBadRequest, do(f.engine, http.MethodPatch, "/api/settings", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(f.engine, http.MethodPatch, "/api/settings", `{"max_distance":"far"}`).Code)

	f.store.fail = true
	w := do(f.engine, http.MethodPatch, "/api/settings", `{"auto_invite_enabled": true}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, f.mgr.Current().AutoInviteEnabled)
}

func TestCommand_Routes(t *testing.T) {
	f := newControlRouter(t, invite.Status{State: "idle"}, fakeAttempts{})

	w := do(f.engine, http.MethodPost, "/api/command", `{"argument":"config"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "open_settings", decode[map[string]string](t, w)["action"])

	w = do(f.engine, http.MethodPost, "/api/command", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "run", decode[map[string]string](t, w)["action"])

	w = do(f.engine, http.MethodPost, "/api/command", `{"command":"/fci","argument":"now"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Equal(t, []routeCall{
		{"/fcinvite", "config"},
		{"/fcinvite", ""},
		{"/fci", "now"},
	}, f.router.calls)

	assert.Equal(t, http.StatusBadRequest, do(f.engine, http.MethodPost, "/api/command", `{bad`).Code)
}

func TestStatus(t *testing.T) {
	last := &invite.Outcome{RunID: "r1", Invited: 2, Total: 3}
	f := newControlRouter(t, invite.Status{State: "dispatching", LastOutcome: last}, fakeAttempts{})

	w := do(f.engine, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		State       string          `json:"state"`
		LastOutcome *invite.Outcome `json:"last_outcome"`
		Tasks       []string        `json:"tasks"`
		Tickers     []string        `json:"tickers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "dispatching", body.State)
	require.NotNil(t, body.LastOutcome)
	assert.Equal(t, 2, body.LastOutcome.Invited)
	assert.Empty(t, body.Tasks)
	assert.Equal(t, []string{"fixture-reload"}, body.Tickers)
}

func TestChatHistory(t *testing.T) {
	f := newControlRouter(t, invite.Status{State: "idle"}, fakeAttempts{})

	w := do(f.engine, http.MethodGet, "/api/chat/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[map[string][]string](t, w)["lines"])

	for _, l := range []string{"one", "two", "three"} {
		f.printer.Print(l)
	}
	w = do(f.engine, http.MethodGet, "/api/chat/history?n=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"two", "three"}, decode[map[string][]string](t, w)["lines"])

	assert.Equal(t, http.StatusBadRequest, do(f.engine, http.MethodGet, "/api/chat/history?n=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(f.engine, http.MethodGet, "/api/chat/history?n=x", "").Code)
}

func TestRunAttempts(t *testing.T) {
	f := newControlRouter(t, invite.Status{State: "idle"}, fakeAttempts{logs: []model.InviteLog{
		{RunID: "r1", TargetID: 7, TargetName: "Alice", Success: true},
		{RunID: "r1", TargetID: 8, TargetName: "Bob", Error: "declined"},
		{RunID: "r2", TargetID: 9, TargetName: "Cid", Success: true},
	}})

	w := do(f.engine, http.MethodGet, "/api/runs/r1/attempts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		RunID    string `json:"run_id"`
		Attempts []struct {
			TargetName string `json:"target_name"`
			Success    bool   `json:"success"`
			Error      string `json:"error"`
		} `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "r1", body.RunID)
	require.Len(t, body.Attempts, 2)
	assert.Equal(t, "Bob", body.Attempts[1].TargetName)
	assert.Equal(t, "declined", body.Attempts[1].Error)
}

func TestRunAttempts_QueryError(t *testing.T) {
	f := newControlRouter(t, invite.Status{State: "idle"}, fakeAttempts{err: errors.New("db gone")})
	assert.Equal(t, http.StatusInternalServerError, do(f.engine, http.MethodGet, "/api/runs/x/attempts", "").Code)
}
