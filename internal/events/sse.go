package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels.
// Huma's SSE handlers consume events in a select loop. Events are dropped
// when ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return SubscribeFiltered(bus, ch, func(T) bool { return true })
}

// SubscribeFiltered is SubscribeToChannel with a predicate, used to follow a
// single service.
func SubscribeFiltered[T Event](bus *Bus, ch chan<- any, keep func(T) bool) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		if !keep(e) {
			return
		}
		select {
		case ch <- e:
		default:
		}
	})
}
