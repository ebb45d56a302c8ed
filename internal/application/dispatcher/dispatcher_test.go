package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func newSubmitted() *event.Event {
	form := &entity.Form{ID: "f-1", Type: entity.FormTypeBlastHoleLog, SiteID: "site-1"}
	return event.NewEvent(event.TypeFormSubmitted, form, nil)
}

func noop(context.Context, *event.Event) error { return nil }

func TestSubscribe(t *testing.T) {
	d := NewDispatcher()

	require.NoError(t, d.Subscribe(event.TypeFormSubmitted, "propagate", noop))
	err := d.Subscribe(event.TypeFormSubmitted, "propagate", noop)
	assert.ErrorIs(t, err, ErrDuplicateHandler)

	require.NoError(t, d.Subscribe(event.TypeSafetyAlert, "propagate", noop), "names are scoped per event type")
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()

	var order []string
	require.NoError(t, d.Subscribe(event.TypeFormSubmitted, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	}))
	require.NoError(t, d.Subscribe(event.TypeFormSubmitted, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second:"+evt.FormID)
		return nil
	}))

	require.NoError(t, d.Dispatch(context.Background(), newSubmitted()))
	assert.Equal(t, []string{"first", "second:f-1"}, order)
}

func TestDispatch_IsolatesFailures(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))

	boom := errors.New("boom")
	var ran atomic.Int32
	require.NoError(t, d.Subscribe(event.TypeFormSubmitted, "fails", func(context.Context, *event.Event) error {
		return boom
	}))
	require.NoError(t, d.Subscribe(event.TypeFormSubmitted, "panics", func(context.Context, *event.Event) error {
		panic("nil map")
	}))
	require.NoError(t, d.Subscribe(event.TypeFormSubmitted, "runs", func(context.Context, *event.Event) error {
		ran.Add(1)
		return nil
	}))

	err := d.Dispatch(context.Background(), newSubmitted())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "handler panics failed")
	assert.Equal(t, int32(1), ran.Load())
	assert.GreaterOrEqual(t, logger.ErrorCount(), 3)
}

func TestDispatch_NoHandlers(t *testing.T) {
	d := NewDispatcher()
	assert.NoError(t, d.Dispatch(context.Background(), newSubmitted()))
}

func TestDispatchAsync_WaitsOnClose(t *testing.T) {
	d := NewDispatcher()

	var count atomic.Int32
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, d.Subscribe(event.TypeFormSubmitted, name, func(context.Context, *event.Event) error {
			count.Add(1)
			return nil
		}))
	}

	d.DispatchAsync(context.Background(), newSubmitted())
	require.NoError(t, d.Close())
	assert.Equal(t, int32(3), count.Load())
}

func TestClose(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Close(), ErrClosed)
	assert.ErrorIs(t, d.Dispatch(context.Background(), newSubmitted()), ErrClosed)

	d.DispatchAsync(context.Background(), newSubmitted())
	assert.Equal(t, 1, logger.ErrorCount())
}

func TestListHandlers(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Subscribe(event.TypeFormSubmitted, "one", noop))
	require.NoError(t, d.Subscribe(event.TypeFormSubmitted, "two", noop))
	require.NoError(t, d.Subscribe(event.TypeSafetyAlert, "other", noop))

	handlers := d.ListHandlers(event.TypeFormSubmitted)
	require.Len(t, handlers, 2)
	assert.Equal(t, "one", handlers[0].Name)
	assert.Equal(t, event.TypeFormSubmitted, handlers[0].EventType)
	assert.Nil(t, handlers[0].Handler)
}
