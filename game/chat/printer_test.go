package chat

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/autoinvite/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { return zap.NewNop() }

func TestChannelPrinter_HistoryCapped(t *testing.T) {
	c, ps := testutil.SetupTestCache(t)
	p := NewChannelPrinter(c, ps, 3, nop())

	for _, l := range []string{"one", "two", "three", "four"} {
		p.Print(l)
	}
	got, err := p.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "three", "four"}, got)

	got, err = p.History(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "four"}, got)
}

func TestChannelPrinter_Publishes(t *testing.T) {
	c, ps := testutil.SetupTestCache(t)
	p := NewChannelPrinter(c, ps, 10, nop())

	ch, cancel, err := ps.Subscribe(context.Background(), Channel)
	require.NoError(t, err)
	defer cancel()

	p.Print("Found 2 players without a free company nearby.")
	select {
	case msg := <-ch:
		assert.Equal(t, Channel, msg.Channel)
		assert.Equal(t, "Found 2 players without a free company nearby.", msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("line was not published")
	}
}

func TestMultiPrinter_Order(t *testing.T) {
	var got []string
	m := MultiPrinter{
		PrinterFunc(func(l string) { got = append(got, "a:"+l) }),
		PrinterFunc(func(l string) { got = append(got, "b:"+l) }),
		NewLogPrinter(nop()),
	}
	m.Print("hi")
	assert.Equal(t, []string{"a:hi", "b:hi"}, got)
}
