// Package events is a synchronous publish/subscribe router. Handlers run on
// the caller's goroutine, in registration order, and a handler panic unwinds
// straight out of Emit.
package events

// Kind names a class of event, e.g. BarArrived.
type Kind string

const BarArrived Kind = "bar"

// Event is the envelope handed to every handler. Payload must not be
// mutated by handlers.
type Event struct {
	Kind    Kind
	Payload any
}

// Handler receives one event. A returned error stops delivery and is
// returned from Emit.
type Handler func(Event) error

// HandlerID identifies a registration so it can be removed later.
type HandlerID uint64

type registration struct {
	id HandlerID
	fn Handler
}

// Dispatcher is not safe for concurrent use; one dispatcher belongs to one
// replay loop.
type Dispatcher struct {
	handlers map[Kind][]registration
	nextID   HandlerID
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Kind][]registration)}
}

// Register appends fn to the handler list of kind.
func (d *Dispatcher) Register(kind Kind, fn Handler) HandlerID {
	d.nextID++
	d.handlers[kind] = append(d.handlers[kind], registration{id: d.nextID, fn: fn})
	return d.nextID
}

// Unregister removes a handler. Called from inside a handler, the removal
// applies from the next Emit; the current delivery still reaches it.
func (d *Dispatcher) Unregister(kind Kind, id HandlerID) bool {
	regs := d.handlers[kind]
	for i, r := range regs {
		if r.id != id {
			continue
		}
		// Copy so a snapshot held by an in-flight Emit is left untouched.
		next := make([]registration, 0, len(regs)-1)
		next = append(next, regs[:i]...)
		next = append(next, regs[i+1:]...)
		d.handlers[kind] = next
		return true
	}
	return false
}

// Emit delivers ev to the handlers registered for ev.Kind when Emit was
// called. The first handler error aborts delivery.
func (d *Dispatcher) Emit(ev Event) error {
	snapshot := d.handlers[ev.Kind]
	for _, r := range snapshot {
		if err := r.fn(ev); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of handlers registered for kind.
func (d *Dispatcher) Len(kind Kind) int {
	return len(d.handlers[kind])
}
