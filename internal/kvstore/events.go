package kvstore

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

const subscriptionBuffer = 64

// Change is emitted after a committed write alters a key. Old is nil when the
// key was created and New is nil when it was deleted.
type Change struct {
	Key string
	Old json.RawMessage
	New json.RawMessage
}

// Deleted reports whether the change removed the key.
func (c Change) Deleted() bool {
	return c.New == nil
}

// Decode unmarshals the new value into dst. It reports false for deletions.
func (c Change) Decode(dst any) (bool, error) {
	if c.New == nil {
		return false, nil
	}
	if err := json.Unmarshal(c.New, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Subscription delivers changes for the keys it was created with. Delivery is
// non-blocking: when the buffer is full further changes are dropped and
// counted.
type Subscription struct {
	id      int
	keys    map[string]struct{}
	ch      chan Change
	store   *Store
	once    sync.Once
	dropped atomic.Int64
}

// Subscribe registers interest in keys. With no keys every change is delivered.
func (s *Store) Subscribe(keys ...string) *Subscription {
	sub := &Subscription{
		ch:    make(chan Change, subscriptionBuffer),
		store: s,
	}
	if len(keys) > 0 {
		sub.keys = make(map[string]struct{}, len(keys))
		for _, key := range keys {
			sub.keys[key] = struct{}{}
		}
	}

	s.subMu.Lock()
	s.nextSub++
	sub.id = s.nextSub
	s.subs[sub.id] = sub
	s.subMu.Unlock()
	return sub
}

// C returns the delivery channel. It is closed by Close or when the store closes.
func (sub *Subscription) C() <-chan Change {
	return sub.ch
}

// Dropped returns how many changes were discarded because the buffer was full.
func (sub *Subscription) Dropped() int64 {
	return sub.dropped.Load()
}

// Close unregisters the subscription and closes its channel.
func (sub *Subscription) Close() {
	sub.store.subMu.Lock()
	delete(sub.store.subs, sub.id)
	sub.store.subMu.Unlock()
	sub.close()
}

func (sub *Subscription) close() {
	sub.once.Do(func() { close(sub.ch) })
}

func (sub *Subscription) wants(key string) bool {
	if sub.keys == nil {
		return true
	}
	_, ok := sub.keys[key]
	return ok
}

func (s *Store) publish(change Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, sub := range s.subs {
		if !sub.wants(change.Key) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			sub.dropped.Add(1)
		}
	}
}
