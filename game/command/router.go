package command

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/autoinvite/game/invite"
	"github.com/kasuganosora/autoinvite/scheduler"
	"go.uber.org/zap"
)

// ConfigArgument is the argument that opens the settings surface instead
// of starting a run. The match is exact and case-sensitive.
const ConfigArgument = "config"

// Action tells the caller what Route did.
type Action string

const (
	ActionOpenSettings Action = "open_settings"
	ActionRun          Action = "run"
)

// SettingsOpener shows the settings surface.
type SettingsOpener interface {
	OpenSettings()
}

// Dispatcher performs one invite run.
type Dispatcher interface {
	RunOnce(ctx context.Context) (invite.Outcome, error)
}

// Runner starts background tasks without waiting for them.
type Runner interface {
	Go(name string, fn scheduler.TaskFn)
}

// Router maps the invite command and its argument to an action.
type Router struct {
	opener     SettingsOpener
	dispatcher Dispatcher
	runner     Runner
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRouter creates a Router. A positive timeout bounds each run.
func NewRouter(opener SettingsOpener, d Dispatcher, runner Runner, timeout time.Duration, logger *zap.Logger) *Router {
	return &Router{opener: opener, dispatcher: d, runner: runner, timeout: timeout, logger: logger}
}

// Route handles one invocation and returns immediately; a run started
// here finishes in the background.
func (r *Router) Route(command, argument string) Action {
	if argument == ConfigArgument {
		r.logger.Debug("opening settings", zap.String("command", command))
		r.opener.OpenSettings()
		return ActionOpenSettings
	}
	r.runner.Go("invite-run", r.run)
	return ActionRun
}

func (r *Router) run(ctx context.Context) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	_, err := r.dispatcher.RunOnce(ctx)
	// Precondition failures were already reported in chat.
	if errors.Is(err, invite.ErrAlreadyRunning) || errors.Is(err, invite.ErrNoLocalPlayer) {
		r.logger.Info("invite run not started", zap.Error(err))
		return nil
	}
	return err
}
