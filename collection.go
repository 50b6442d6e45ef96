package walletcore

import (
	"sync"

	"github.com/lynxwallet/walletcore/schema"
)

// Col is one canonical in-memory collection. All writes funnel through
// Upsert/Merge/ReplaceAll/Delete, each of which emits its own will/did
// change pair, so observers never see a half-applied refresh. A single
// mutex serializes writes even though the fetches feeding them run in
// parallel.
type Col[V Keyed] struct {
	topic    Topic
	bus      *Bus
	preserve func(old, fresh V) V

	locker sync.RWMutex
	items  []V
}

func NewCol[V Keyed](topic Topic, bus *Bus) *Col[V] {
	return &Col[V]{topic: topic, bus: bus}
}

// Items returns a read-only snapshot.
func (c *Col[V]) Items() []V {
	c.locker.RLock()
	defer c.locker.RUnlock()
	out := make([]V, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Col[V]) Get(id string) (V, bool) {
	c.locker.RLock()
	defer c.locker.RUnlock()
	for _, v := range c.items {
		if v.ID() == id {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func (c *Col[V]) Len() int {
	c.locker.RLock()
	defer c.locker.RUnlock()
	return len(c.items)
}

func (c *Col[V]) Upsert(item V) {
	c.MergeIn([]V{item})
}

// MergeIn merges a freshly fetched batch into the canonical collection.
func (c *Col[V]) MergeIn(incoming []V) {
	if len(incoming) == 0 {
		return
	}
	c.bus.willChange(c.topic)
	c.locker.Lock()
	c.items = Merge(c.items, incoming, c.preserve)
	snapshot := make([]V, len(c.items))
	copy(snapshot, c.items)
	c.locker.Unlock()
	c.bus.didChange(c.topic, snapshot)
}

// ReplaceAll swaps the whole collection, used only by LoadAll and explicit
// deletion flows; refreshes go through MergeIn.
func (c *Col[V]) ReplaceAll(items []V) {
	c.bus.willChange(c.topic)
	c.locker.Lock()
	c.items = make([]V, len(items))
	copy(c.items, items)
	snapshot := make([]V, len(c.items))
	copy(snapshot, c.items)
	c.locker.Unlock()
	c.bus.didChange(c.topic, snapshot)
}

// Delete removes by identity. Deletion is always explicit, never implied by
// a refresh.
func (c *Col[V]) Delete(id string) error {
	c.locker.Lock()
	idx := -1
	for i, v := range c.items {
		if v.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.locker.Unlock()
		return schema.ErrNotExist
	}
	c.bus.willChange(c.topic)
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	snapshot := make([]V, len(c.items))
	copy(snapshot, c.items)
	c.locker.Unlock()
	c.bus.didChange(c.topic, snapshot)
	return nil
}
