package bus

import "sync"

// Topic holds the latest message published on it.
//
// Subscribers poll with Update, which reports whether a message newer than the
// one they last saw is available. Safe for concurrent use.
type Topic[T any] struct {
	name string

	mu   sync.RWMutex
	gen  uint64
	last T
}

func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name}
}

func (t *Topic[T]) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Publish replaces the latest message and bumps the generation.
func (t *Topic[T]) Publish(msg T) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.last = msg
	t.gen++
	t.mu.Unlock()
}

// Latest returns the most recent message and whether anything was published yet.
func (t *Topic[T]) Latest() (T, bool) {
	if t == nil {
		var zero T
		return zero, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.gen > 0
}

func (t *Topic[T]) Subscribe() *Subscription[T] {
	return &Subscription[T]{topic: t}
}

// Subscription tracks which generation of a topic its owner has consumed.
// A Subscription belongs to one goroutine.
type Subscription[T any] struct {
	topic *Topic[T]
	seen  uint64
}

// Update copies the latest message into dst if it is newer than the last one
// consumed and reports whether it did.
func (s *Subscription[T]) Update(dst *T) bool {
	if s == nil || s.topic == nil || dst == nil {
		return false
	}
	s.topic.mu.RLock()
	defer s.topic.mu.RUnlock()
	if s.topic.gen == s.seen {
		return false
	}
	*dst = s.topic.last
	s.seen = s.topic.gen
	return true
}

// Copy copies the latest message into dst regardless of whether it was seen.
// It reports false when nothing has been published.
func (s *Subscription[T]) Copy(dst *T) bool {
	if s == nil || s.topic == nil || dst == nil {
		return false
	}
	s.topic.mu.RLock()
	defer s.topic.mu.RUnlock()
	if s.topic.gen == 0 {
		return false
	}
	*dst = s.topic.last
	s.seen = s.topic.gen
	return true
}
