// Package eventbus implements the company workflow's event stream: an
// in-process publish/subscribe channel of immutable Event records emitted by
// every workflow node and forwarded, after tagging, by the outer workflow.
//
// Grounded on spec.md §9's redesign guidance ("model as a channel/iterator
// of immutable Event{kind, name, data, tags} records"). Implemented with
// stdlib channels/sync only: the event stream is a single process-local
// fan-out with no persistence, ordering, or delivery guarantees beyond what
// channels already provide, so no pack library (kafka, nats, redis pubsub)
// has a concern here to attach to.
package eventbus

import "sync"

const (
	KindChainStart = "on_chain_start"
	KindCustom     = "on_custom"
	KindChainEnd   = "on_chain_end"
)

// Event is one immutable record in the stream. Kind is one of the Kind*
// constants, Name identifies the emitting node (e.g. "data_agent:news"),
// Data carries the node's payload (nil for on_chain_start), and Tags lets
// forwarders attribute an event to its originating agent/stage without
// mutating the record itself.
type Event struct {
	Kind string
	Name string
	Data any
	Tags []string
}

// WithTags returns a copy of e with additional tags appended, leaving e
// untouched — this is how the outer workflow forwards a child agent's
// events after tagging them with its own stage/agent id (spec.md §9).
func (e Event) WithTags(tags ...string) Event {
	out := e
	out.Tags = append(append([]string{}, e.Tags...), tags...)
	return out
}

// Bus is a single-process, multi-subscriber fan-out of Events. The zero
// value is not usable; construct with NewBus.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBus returns a ready-to-use Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new listener and returns its channel along with an
// unsubscribe function that must be called when the caller is done
// listening (it closes the channel and stops further sends). The channel is
// buffered so a slow subscriber cannot block Publish; buffer overflow drops
// the oldest undelivered event rather than blocking the publisher, since
// the event stream is a best-effort UI/observability feed, not an
// authoritative record (SaveReport/SaveFactor artifacts are authoritative).
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 256)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish fans e out to every current subscriber without blocking: a
// subscriber whose buffer is full has its oldest pending event dropped to
// make room, rather than stalling the emitting node.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// PublishChainStart emits an on_chain_start event for node name.
func (b *Bus) PublishChainStart(name string, tags ...string) {
	b.Publish(Event{Kind: KindChainStart, Name: name, Tags: tags})
}

// PublishCustom emits an on_custom event carrying data, forwarded as-is from
// a child agent's own subgraph.
func (b *Bus) PublishCustom(name string, data any, tags ...string) {
	b.Publish(Event{Kind: KindCustom, Name: name, Data: data, Tags: tags})
}

// PublishChainEnd emits an on_chain_end event for node name. Callers MUST
// emit this even on failure (data carrying the error) so the stream remains
// a reliable start/end driver for UIs (spec.md §7).
func (b *Bus) PublishChainEnd(name string, data any, tags ...string) {
	b.Publish(Event{Kind: KindChainEnd, Name: name, Data: data, Tags: tags})
}
