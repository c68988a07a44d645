package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalFanout(t *testing.T) {
	l := NewLocal()
	var a, b []Event
	cancelA := l.Subscribe(func(ev Event) { a = append(a, ev) })
	defer cancelA()
	cancelB := l.Subscribe(func(ev Event) { b = append(b, ev) })

	require.NoError(t, l.Publish(context.Background(), Event{Type: LobbyUpdated, LobbyID: "L1"}))
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	require.Equal(t, LobbyUpdated, a[0].Type)
	require.Equal(t, "L1", a[0].LobbyID)

	cancelB()
	require.NoError(t, l.Publish(context.Background(), Event{Type: GameStarted, LobbyID: "L1"}))
	require.Len(t, a, 2)
	require.Len(t, b, 1, "cancelled subscriber must not receive")
}
