package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

// subscription is one Subscribe call, possibly covering several channels.
type subscription struct {
	ch       chan *LocalMessage
	channels []string
	closed   bool
}

// LocalPubSub is an in-process fan-out pub/sub implementation.
// Slow subscribers lose messages instead of blocking publishers.
type LocalPubSub struct {
	mu      sync.Mutex
	byChan  map[string]map[*subscription]struct{}
	bufSize int
}

// NewPubSub creates a new LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		byChan:  make(map[string]map[*subscription]struct{}),
		bufSize: bufSize,
	}
}

// Publish delivers message to every current subscriber of channel.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for sub := range ps.byChan[channel] {
		select {
		case sub.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of messages for the given channels and a
// cancel function that unsubscribes and closes it. The subscription also
// ends when ctx is done.
func (ps *LocalPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	sub := &subscription{
		ch:       make(chan *LocalMessage, ps.bufSize),
		channels: channels,
	}

	ps.mu.Lock()
	for _, c := range channels {
		set, ok := ps.byChan[c]
		if !ok {
			set = make(map[*subscription]struct{})
			ps.byChan[c] = set
		}
		set[sub] = struct{}{}
	}
	ps.mu.Unlock()

	cancel := func() { ps.unsubscribe(sub) }
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			cancel()
		}()
	}
	return sub.ch, cancel, nil
}

func (ps *LocalPubSub) unsubscribe(sub *subscription) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	for _, c := range sub.channels {
		delete(ps.byChan[c], sub)
		if len(ps.byChan[c]) == 0 {
			delete(ps.byChan, c)
		}
	}
	close(sub.ch)
}
