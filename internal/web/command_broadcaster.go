package web

import (
	"sync"

	"acro-ng/internal/bus"
)

// CommandBroadcaster fans rate commands out to stream listeners. It keeps the
// most recent command so new subscribers get an immediate sample. Slow
// subscribers miss messages instead of blocking the publisher.
type CommandBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan bus.RateCommand
	nextID   int
	last     bus.RateCommand
	haveLast bool
	dropped  uint64
}

func NewCommandBroadcaster() *CommandBroadcaster {
	return &CommandBroadcaster{
		subs: make(map[int]chan bus.RateCommand),
	}
}

func (b *CommandBroadcaster) Subscribe(buffer int) (int, <-chan bus.RateCommand) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan bus.RateCommand, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if b.haveLast {
		ch <- b.last
	}
	b.mu.Unlock()
	return id, ch
}

func (b *CommandBroadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *CommandBroadcaster) Publish(cmd bus.RateCommand) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = cmd
	b.haveLast = true
	for _, ch := range b.subs {
		select {
		case ch <- cmd:
		default:
			b.dropped++
		}
	}
}

// Latest returns the most recent command, if any.
func (b *CommandBroadcaster) Latest() (bus.RateCommand, bool) {
	if b == nil {
		return bus.RateCommand{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.haveLast
}

func (b *CommandBroadcaster) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped counts messages not delivered to a full subscriber channel.
func (b *CommandBroadcaster) Dropped() uint64 {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
