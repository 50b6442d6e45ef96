package walletcore

import (
	"encoding/json"
	"sync"
)

type Topic string

const (
	ColChainProviders  Topic = "chainProviders"
	ColAccounts        Topic = "accounts"
	ColTokenContracts  Topic = "tokenContracts"
	ColTokenBalances   Topic = "tokenBalances"
	ColTransferActions Topic = "tokenTransferActions"
	ColContacts        Topic = "contacts"
	ColSessions        Topic = "esrSessions"
	ColActiveAccount   Topic = "activeAccount"
	ColActiveRequest   Topic = "activeRequest"
)

type Phase string

const (
	PhaseWillChange Phase = "willChange"
	PhaseDidChange  Phase = "didChange"
)

type Event struct {
	Topic Topic       `json:"collection"`
	Phase Phase       `json:"phase"`
	Value interface{} `json:"value,omitempty"`
}

// Bus fans canonical-collection change events out to registered subscribers.
// Subscribers own their channel lifetime; a slow subscriber loses events
// rather than blocking a mutating pipeline.
type Bus struct {
	locker sync.Mutex
	nextID int
	subs   map[int]chan Event

	kafka *KWriter // nil unless event export is configured
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

func (b *Bus) Subscribe() (int, <-chan Event) {
	b.locker.Lock()
	defer b.locker.Unlock()
	b.nextID++
	ch := make(chan Event, 64)
	b.subs[b.nextID] = ch
	return b.nextID, ch
}

func (b *Bus) Unsubscribe(id int) {
	b.locker.Lock()
	defer b.locker.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

func (b *Bus) SetKafka(kw *KWriter) {
	b.locker.Lock()
	defer b.locker.Unlock()
	b.kafka = kw
}

func (b *Bus) Publish(ev Event) {
	b.locker.Lock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	kw := b.kafka
	b.locker.Unlock()

	if kw != nil && ev.Phase == PhaseDidChange {
		body, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err := kw.Write(body); err != nil {
			log.Error("event export write failed", "err", err, "topic", ev.Topic)
		}
	}
}

func (b *Bus) willChange(col Topic) {
	b.Publish(Event{Topic: col, Phase: PhaseWillChange})
}

func (b *Bus) didChange(col Topic, value interface{}) {
	b.Publish(Event{Topic: col, Phase: PhaseDidChange, Value: value})
}
