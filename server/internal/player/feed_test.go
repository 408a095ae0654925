package player

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeedFansOut(t *testing.T) {
	f := NewFeed(4)
	a, cancelA := f.Subscribe()
	b, cancelB := f.Subscribe()
	defer cancelB()

	f.Publish(Notification{Type: "phase_changed", MatchID: "m"})

	require.Equal(t, "phase_changed", (<-a).Type)
	require.Equal(t, "phase_changed", (<-b).Type)

	cancelA()
	_, open := <-a
	require.False(t, open)
	require.Equal(t, 1, f.Subscribers())

	cancelA()
}

func TestFeedDropsWhenFull(t *testing.T) {
	f := NewFeed(1)
	ch, cancel := f.Subscribe()
	defer cancel()

	f.Publish(Notification{Type: "first"})
	f.Publish(Notification{Type: "second"})

	require.Equal(t, "first", (<-ch).Type)
	require.Empty(t, ch)
}

func TestFeedClose(t *testing.T) {
	f := NewFeed(1)
	ch, cancel := f.Subscribe()
	f.Close()
	_, open := <-ch
	require.False(t, open)
	cancel()
	f.Close()

	late, _ := f.Subscribe()
	_, open = <-late
	require.False(t, open)

	f.Publish(Notification{Type: "ignored"})
}
