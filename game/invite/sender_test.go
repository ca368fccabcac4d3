package invite

import (
	"context"
	"errors"
	"testing"

	"github.com/kasuganosora/autoinvite/game/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type targetFunc func(id actor.ObjectID) error

func (f targetFunc) SetTarget(id actor.ObjectID) error { return f(id) }

type execFunc func(ctx context.Context, line string) error

func (f execFunc) Execute(ctx context.Context, line string) error { return f(ctx, line) }

func TestInviteCommand(t *testing.T) {
	assert.Equal(t, `/fcinvite "Alice Example"`, InviteCommand("/fcinvite", "Alice Example"))
	assert.Equal(t, `/fcinvite "O'Brien"`, InviteCommand("/fcinvite", "O'Brien"))
	assert.Equal(t, `/fcinvite "A\B"`, InviteCommand("/fcinvite", `A\B`))
	assert.Equal(t, "/fcinvite \"Zoë Ålund\"", InviteCommand("/fcinvite", "Zoë Ålund"))
}

func TestCommandSender_Success(t *testing.T) {
	var targeted actor.ObjectID
	var line string
	s := NewCommandSender(
		targetFunc(func(id actor.ObjectID) error { targeted = id; return nil }),
		execFunc(func(_ context.Context, l string) error { line = l; return nil }),
		"/fcinvite",
	)

	res := s.Send(context.Background(), actor.Snapshot{ID: 42, Name: "Alice"})
	assert.True(t, res.OK)
	assert.NoError(t, res.Err)
	assert.Equal(t, actor.ObjectID(42), targeted)
	assert.Equal(t, `/fcinvite "Alice"`, line)
}

func TestCommandSender_TargetFailure(t *testing.T) {
	executed := false
	s := NewCommandSender(
		targetFunc(func(actor.ObjectID) error { return errors.New("out of range") }),
		execFunc(func(context.Context, string) error { executed = true; return nil }),
		"/fcinvite",
	)
	res := s.Send(context.Background(), actor.Snapshot{ID: 1, Name: "Bob"})
	assert.False(t, res.OK)
	assert.EqualError(t, res.Err, "select target: out of range")
	assert.False(t, executed)
}

func TestCommandSender_ExecuteFailure(t *testing.T) {
	cause := errors.New("already in a company")
	s := NewCommandSender(
		targetFunc(func(actor.ObjectID) error { return nil }),
		execFunc(func(context.Context, string) error { return cause }),
		"/fcinvite",
	)
	res := s.Send(context.Background(), actor.Snapshot{ID: 1, Name: "Bob"})
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, cause)
}

func TestCommandSender_PanicBecomesFailure(t *testing.T) {
	s := NewCommandSender(
		targetFunc(func(actor.ObjectID) error { return nil }),
		execFunc(func(context.Context, string) error { panic("ui not ready") }),
		"/fcinvite",
	)
	var res Result
	require.NotPanics(t, func() { res = s.Send(context.Background(), actor.Snapshot{Name: "Cid"}) })
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, ErrSenderPanicked)
	assert.Contains(t, res.Err.Error(), "ui not ready")
}

func TestSenderFunc(t *testing.T) {
	var s Sender = SenderFunc(func(_ context.Context, target actor.Snapshot) Result {
		if target.Name == "" {
			return Failed(errors.New("no name"))
		}
		return Sent()
	})
	assert.True(t, s.Send(context.Background(), actor.Snapshot{Name: "A"}).OK)
	assert.False(t, s.Send(context.Background(), actor.Snapshot{}).OK)
}
