package broadcast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroadcaster_FansOutToAllSubscribers(t *testing.T) {
	t.Parallel()

	b := New(4)
	defer b.Close()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	require.NoError(t, b.Publish("ledger_totals_updated", "payload"))

	for _, sub := range []<-chan Message{sub1, sub2} {
		msg := <-sub
		require.Equal(t, "ledger_totals_updated", msg.Topic)
		require.Equal(t, "payload", msg.Event)
	}
}

func TestBroadcaster_DropsWhenSubscriberIsFull(t *testing.T) {
	t.Parallel()

	b := New(1)
	defer b.Close()

	sub := b.Subscribe()

	require.NoError(t, b.Publish("t", 1))
	require.NoError(t, b.Publish("t", 2)) // dropped, buffer full

	msg := <-sub
	require.Equal(t, 1, msg.Event)

	select {
	case extra := <-sub:
		require.Nil(t, extra.Event, "expected the second publish to be dropped")
	default:
	}
}

func TestBroadcaster_CloseClosesChannels(t *testing.T) {
	t.Parallel()

	b := New(1)
	sub := b.Subscribe()
	b.Close()

	_, open := <-sub
	require.False(t, open)

	// Publishing after close is a harmless no-op.
	require.NoError(t, b.Publish("t", 3))
}
