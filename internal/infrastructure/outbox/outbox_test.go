package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/mgallardo/gamestore/internal/domain/outbox"
	"github.com/mgallardo/gamestore/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBus_FanoutToSubscribers(t *testing.T) {
	bus := NewBus(observability.NopLogger())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 2)

	handler := func(ctx context.Context, e domoutbox.Event) error {
		mu.Lock()
		got = append(got, e.EventName())
		mu.Unlock()
		done <- struct{}{}
		return nil
	}
	bus.Subscribe("purchase.settled", handler)
	bus.Subscribe("purchase.settled", handler)

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "purchase.settled"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not invoked")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"purchase.settled", "purchase.settled"}, got)
}

func TestBus_DropsEventsWithoutSubscriber(t *testing.T) {
	bus := NewBus(observability.NopLogger())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	assert.NoError(t, bus.Publish(context.Background(), testEvent{name: "nobody.cares"}))
}

func TestBus_HandlerPanicDoesNotKillDispatch(t *testing.T) {
	bus := NewBus(observability.NopLogger())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	done := make(chan struct{}, 1)
	bus.Subscribe("boom", func(context.Context, domoutbox.Event) error {
		panic("handler bug")
	})
	bus.Subscribe("after", func(context.Context, domoutbox.Event) error {
		done <- struct{}{}
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "boom"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "after"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch loop died after a handler panic")
	}
}

func TestBus_PublishNilIsNoop(t *testing.T) {
	bus := NewBus(observability.NopLogger())
	assert.NoError(t, bus.Publish(context.Background(), nil))
}
