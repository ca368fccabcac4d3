package invite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/autoinvite/game/actor"
	"github.com/kasuganosora/autoinvite/game/chat"
	"github.com/kasuganosora/autoinvite/game/scanner"
	"github.com/kasuganosora/autoinvite/settings"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRunning = errors.New("invite: run already in progress")
	ErrNoLocalPlayer  = errors.New("invite: local player unavailable")
	ErrRunFailed      = errors.New("invite: run failed")
)

// State is the dispatcher's position in a run.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateDispatching:
		return "dispatching"
	default:
		return "idle"
	}
}

// SettingsSource returns the live settings. It is consulted at every
// use, so changes made during a run apply from the next candidate on.
type SettingsSource interface {
	Current() settings.Settings
}

// Attempt describes one send made during a run.
type Attempt struct {
	RunID    string
	Index    int // 1-based position in the candidate list
	Total    int
	Target   actor.Snapshot
	Distance float32
	Result   Result
}

// Recorder receives every attempt. It must not block.
type Recorder interface {
	RecordAttempt(a Attempt)
}

// Outcome summarises a finished run.
type Outcome struct {
	RunID      string    `json:"run_id"`
	Invited    int       `json:"invited"`
	Total      int       `json:"total"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// Status is a point-in-time view for the control API.
type Status struct {
	State       string   `json:"state"`
	LastOutcome *Outcome `json:"last_outcome,omitempty"`
}

// Config holds the fixed dispatcher parameters.
type Config struct {
	// Cooldown is the minimum gap between two successful invites,
	// independent of the user delay. Zero disables it.
	Cooldown time.Duration
}

// Dispatcher drains the nearby candidate list one invite at a time.
// At most one run is active at any moment.
type Dispatcher struct {
	cfg      Config
	table    actor.ObjectTable
	client   actor.ClientState
	settings SettingsSource
	sender   Sender
	out      chat.Printer
	recorder Recorder
	logger   *zap.Logger

	state atomicState

	mu          sync.Mutex
	lastSuccess time.Time
	lastOutcome *Outcome

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type atomicState struct{ v atomic.Int32 }

func (s *atomicState) Load() State { return State(s.v.Load()) }

func (s *atomicState) Store(st State) { s.v.Store(int32(st)) }

func (s *atomicState) CompareAndSwap(from, to State) bool {
	return s.v.CompareAndSwap(int32(from), int32(to))
}

// NewDispatcher creates a Dispatcher. recorder may be nil.
func NewDispatcher(
	cfg Config,
	table actor.ObjectTable,
	client actor.ClientState,
	src SettingsSource,
	sender Sender,
	out chat.Printer,
	recorder Recorder,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		table:    table,
		client:   client,
		settings: src,
		sender:   sender,
		out:      out,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// State returns the current run state.
func (d *Dispatcher) State() State { return d.state.Load() }

// Status returns the state and the outcome of the last finished run.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := Status{State: d.state.Load().String()}
	if d.lastOutcome != nil {
		o := *d.lastOutcome
		st.LastOutcome = &o
	}
	return st
}

// RunOnce performs one full scan-and-invite run.
//
// It returns ErrAlreadyRunning without sending anything if another run is
// active, and ErrNoLocalPlayer if the client has no local player. Any
// failure inside the run, including a panic, is reported to the chat,
// returned wrapped in ErrRunFailed, and leaves the dispatcher idle.
func (d *Dispatcher) RunOnce(ctx context.Context) (out Outcome, err error) {
	if d.state.Load() != StateIdle {
		d.out.Print("An invite run is already in progress...")
		return Outcome{}, ErrAlreadyRunning
	}
	local, ok := d.client.LocalPlayer()
	if !ok {
		d.out.Print("Could not read local player information.")
		return Outcome{}, ErrNoLocalPlayer
	}
	if !d.state.CompareAndSwap(StateIdle, StateScanning) {
		d.out.Print("An invite run is already in progress...")
		return Outcome{}, ErrAlreadyRunning
	}

	out = Outcome{RunID: uuid.NewString(), StartedAt: d.now()}
	log := d.logger.With(zap.String("run_id", out.RunID))
	var cause error
	defer func() {
		if r := recover(); r != nil {
			cause = fmt.Errorf("panic: %v", r)
		}
		if cause != nil {
			err = fmt.Errorf("%w: %w", ErrRunFailed, cause)
			d.out.Print(fmt.Sprintf("Error during invite run: %v", cause))
			log.Error("invite run aborted", zap.Error(cause))
			out.Error = cause.Error()
		}
		out.FinishedAt = d.now()
		finished := out
		d.mu.Lock()
		d.lastOutcome = &finished
		d.mu.Unlock()
		d.state.Store(StateIdle)
	}()

	cause = d.run(ctx, local, &out, log)
	return out, nil
}

func (d *Dispatcher) run(ctx context.Context, local actor.Snapshot, out *Outcome, log *zap.Logger) error {
	cfg := d.settings.Current()
	if cfg.ShowDebugMessages {
		d.out.Print(fmt.Sprintf("[debug] run %s: scanning within %.1f yalms", out.RunID, cfg.MaxDistance))
	}
	candidates := scanner.Scan(local, d.table.Snapshot(), cfg.MaxDistance)
	out.Total = len(candidates)
	d.out.Print(fmt.Sprintf("Found %d players without a free company nearby.", len(candidates)))
	log.Info("invite run scanned", zap.Int("candidates", len(candidates)))

	d.state.Store(StateDispatching)
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.waitCooldown(ctx); err != nil {
			return err
		}

		res := d.sender.Send(ctx, c)
		dist := actor.Distance(local.Position, c.Position)
		if d.recorder != nil {
			d.recorder.RecordAttempt(Attempt{
				RunID:    out.RunID,
				Index:    i + 1,
				Total:    len(candidates),
				Target:   c,
				Distance: dist,
				Result:   res,
			})
		}

		if !res.OK {
			d.out.Print(fmt.Sprintf("Failed to invite %s: %v", c.Name, causeOf(res)))
			log.Warn("invite failed", zap.String("target", c.Name), zap.Error(res.Err))
			continue
		}

		out.Invited++
		d.mu.Lock()
		d.lastSuccess = d.now()
		d.mu.Unlock()
		d.out.Print(fmt.Sprintf("Invite sent to %s", c.Name))

		cfg = d.settings.Current()
		if cfg.ShowDebugMessages {
			d.out.Print(fmt.Sprintf("[debug] %s at %.1f yalms (%d/%d)", c.Name, dist, i+1, len(candidates)))
		}
		if delay := time.Duration(cfg.DelayBetweenInvitesMs) * time.Millisecond; delay > 0 {
			if err := d.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	d.out.Print(fmt.Sprintf("Run complete. Sent %d of %d invites.", out.Invited, out.Total))
	log.Info("invite run complete", zap.Int("invited", out.Invited), zap.Int("total", out.Total))
	return nil
}

// waitCooldown suspends until Cooldown has passed since the last
// successful invite.
func (d *Dispatcher) waitCooldown(ctx context.Context) error {
	if d.cfg.Cooldown <= 0 {
		return nil
	}
	d.mu.Lock()
	last := d.lastSuccess
	d.mu.Unlock()
	if last.IsZero() {
		return nil
	}
	remaining := d.cfg.Cooldown - d.now().Sub(last)
	if remaining <= 0 {
		return nil
	}
	if d.settings.Current().ShowDebugMessages {
		d.out.Print(fmt.Sprintf("[debug] cooldown: waiting %s", remaining.Round(time.Millisecond)))
	}
	return d.sleep(ctx, remaining)
}

func causeOf(r Result) string {
	if r.Err == nil {
		return "unknown error"
	}
	return r.Err.Error()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
