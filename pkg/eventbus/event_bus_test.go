package eventbus

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type deltaEvent struct {
	amount int
}

type otherEvent struct{}

func TestPublish_NoMatchingSubscribers(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.WarnLevel)

	bus := NewEventPublisher(log)
	bus.Subscribe(func(e *deltaEvent) {
		t.Error("should not be called")
	})
	bus.Publish(&otherEvent{})

	require.True(t, strings.Contains(buf.String(), "no matching subscribers"))
}

func TestPublish_Delivers(t *testing.T) {
	bus := NewEventPublisher(nil)

	var got int
	bus.Subscribe(func(e *deltaEvent) { got = e.amount })
	bus.Publish(&deltaEvent{amount: 42})

	require.Equal(t, 42, got)
}

func TestPublishE_PropagatesHandlerError(t *testing.T) {
	bus := NewEventPublisher(nil)

	wantErr := errors.New("apply failed")
	bus.Subscribe(func(e *deltaEvent) error { return wantErr })

	err := bus.PublishE(&deltaEvent{amount: 1})
	require.ErrorIs(t, err, wantErr)
}

func TestPublishE_NoSubscribers(t *testing.T) {
	bus := NewEventPublisher(nil)
	err := bus.PublishE(&deltaEvent{})
	require.ErrorIs(t, err, ErrNoSubscribers)
}

func TestPublishE_RecoversPanic(t *testing.T) {
	bus := NewEventPublisher(nil)
	bus.Subscribe(func(e *deltaEvent) error { panic("boom") })

	err := bus.PublishE(&deltaEvent{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "panicked")
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventPublisher(nil)

	called := false
	handler := func(e *deltaEvent) { called = true }
	bus.Subscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Unsubscribe(handler)
	require.Zero(t, bus.SubscribersCount())

	bus.Publish(&deltaEvent{})
	require.False(t, called)
}
