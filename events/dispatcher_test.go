package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitRegistrationOrder(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	var got []string

	d.Register(BarArrived, func(Event) error { got = append(got, "a"); return nil })
	d.Register(BarArrived, func(Event) error { got = append(got, "b"); return nil })
	d.Register("other", func(Event) error { got = append(got, "x"); return nil })

	require.NoError(t, d.Emit(Event{Kind: BarArrived, Payload: 1}))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestEmitNoHandlers(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	assert.NoError(t, d.Emit(Event{Kind: BarArrived}))
}

func TestEmitStopsOnError(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	boom := errors.New("boom")
	called := false

	d.Register(BarArrived, func(Event) error { return boom })
	d.Register(BarArrived, func(Event) error { called = true; return nil })

	err := d.Emit(Event{Kind: BarArrived})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestEmitPropagatesPanic(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	d.Register(BarArrived, func(Event) error { panic("handler failed") })

	assert.PanicsWithValue(t, "handler failed", func() {
		_ = d.Emit(Event{Kind: BarArrived})
	})
}

func TestUnregisterDuringEmitIsDeferred(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	calls := map[string]int{}

	var selfID HandlerID
	selfID = d.Register(BarArrived, func(Event) error {
		calls["self"]++
		d.Unregister(BarArrived, selfID)
		return nil
	})

	var laterID HandlerID
	d.Register(BarArrived, func(Event) error {
		calls["remover"]++
		d.Unregister(BarArrived, laterID)
		return nil
	})
	laterID = d.Register(BarArrived, func(Event) error {
		calls["later"]++
		return nil
	})

	require.NoError(t, d.Emit(Event{Kind: BarArrived}))
	assert.Equal(t, map[string]int{"self": 1, "remover": 1, "later": 1}, calls)
	assert.Equal(t, 1, d.Len(BarArrived))

	require.NoError(t, d.Emit(Event{Kind: BarArrived}))
	assert.Equal(t, map[string]int{"self": 1, "remover": 2, "later": 1}, calls)
}

func TestRegisterDuringEmitIsDeferred(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	added := 0

	d.Register(BarArrived, func(Event) error {
		d.Register(BarArrived, func(Event) error { added++; return nil })
		return nil
	})

	require.NoError(t, d.Emit(Event{Kind: BarArrived}))
	assert.Equal(t, 0, added)

	require.NoError(t, d.Emit(Event{Kind: BarArrived}))
	assert.Equal(t, 1, added)
}

func TestUnregisterUnknown(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	assert.False(t, d.Unregister(BarArrived, 42))
}
