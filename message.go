package handoff

import "fmt"

// Message is a unit moved through a [Buffer]: either an item or the stop sentinel.
//
// The sentinel is a separate tag, so it never collides with an item value. The zero value is
// an item holding the zero Item.
type Message[Item any] struct {
	item Item
	stop bool
}

// Value wraps an item into a message.
func Value[Item any](item Item) Message[Item] {
	return Message[Item]{item: item}
}

// Stop returns the stop sentinel.
func Stop[Item any]() Message[Item] {
	return Message[Item]{stop: true}
}

// Item returns the wrapped item. The second result is false for the stop sentinel.
func (m Message[Item]) Item() (Item, bool) {
	if m.stop {
		var zero Item
		return zero, false
	}
	return m.item, true
}

// IsStop reports whether the message is the stop sentinel.
func (m Message[Item]) IsStop() bool {
	return m.stop
}

func (m Message[Item]) String() string {
	if m.stop {
		return "<stop>"
	}
	return fmt.Sprint(m.item)
}
