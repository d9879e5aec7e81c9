package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_ReceivesEvent(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(NotifyEvent, "Executing: echo hi")

	msg := ListenCmd(ctx, ch)()

	event, ok := msg.(Event[string])
	require.True(t, ok, "msg should be Event[string]")
	require.Equal(t, "Executing: echo hi", event.Payload)
}

func TestListenCmd_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan Event[string])
	require.Nil(t, ListenCmd(ctx, ch)())
}

func TestListenCmd_ChannelClosed(t *testing.T) {
	ch := make(chan Event[string])
	close(ch)

	require.Equal(t, ClosedMsg{}, ListenCmd(context.Background(), ch)())
}

func TestContinuousListener_Listen(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewContinuousListener[int](ctx, broker)

	broker.Publish(LogEvent, 1)
	broker.Publish(NotifyEvent, 2)

	for _, want := range []int{1, 2} {
		event, ok := listener.Listen()().(Event[int])
		require.True(t, ok)
		require.Equal(t, want, event.Payload)
	}
}

func TestContinuousListener_BrokerClose(t *testing.T) {
	broker := NewBroker[int](WithReplay(1))

	broker.Publish(LogEvent, 7)
	listener := NewContinuousListener[int](context.Background(), broker)
	broker.Close()

	event, ok := listener.Listen()().(Event[int])
	require.True(t, ok, "replayed event is delivered before the close")
	require.Equal(t, 7, event.Payload)
	require.Equal(t, ClosedMsg{}, listener.Listen()())
}
