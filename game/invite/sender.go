package invite

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/autoinvite/game/actor"
)

// ErrSenderPanicked wraps a panic raised by a host collaborator during a send.
var ErrSenderPanicked = errors.New("invite: sender panicked")

// Result is the outcome of one invite send. Err carries the cause when
// OK is false.
type Result struct {
	OK  bool
	Err error
}

// Sent is the successful Result.
func Sent() Result { return Result{OK: true} }

// Failed returns a failed Result with the given cause.
func Failed(err error) Result { return Result{Err: err} }

// Sender issues a company invite to one candidate.
type Sender interface {
	Send(ctx context.Context, target actor.Snapshot) Result
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, target actor.Snapshot) Result

func (f SenderFunc) Send(ctx context.Context, target actor.Snapshot) Result { return f(ctx, target) }

// Targeter selects the active target in the client.
type Targeter interface {
	SetTarget(id actor.ObjectID) error
}

// CommandExecutor runs a chat command line as if the player typed it.
type CommandExecutor interface {
	Execute(ctx context.Context, line string) error
}

// CommandSender invites by targeting the player and running the
// company invite chat command for them.
type CommandSender struct {
	targets  Targeter
	commands CommandExecutor
	verb     string
}

// NewCommandSender creates a CommandSender that issues `verb "Name"`.
func NewCommandSender(t Targeter, c CommandExecutor, verb string) *CommandSender {
	return &CommandSender{targets: t, commands: c, verb: verb}
}

// Send never panics: collaborator panics become failed results.
func (s *CommandSender) Send(ctx context.Context, target actor.Snapshot) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed(fmt.Errorf("%w: %v", ErrSenderPanicked, r))
		}
	}()
	if err := s.targets.SetTarget(target.ID); err != nil {
		return Failed(fmt.Errorf("select target: %w", err))
	}
	if err := s.commands.Execute(ctx, InviteCommand(s.verb, target.Name)); err != nil {
		return Failed(err)
	}
	return Sent()
}

// InviteCommand formats the chat command that invites name. The name is
// quoted as is, without escaping.
func InviteCommand(verb, name string) string {
	return verb + " \"" + name + "\""
}
