package message

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/procwatch/internal/pubsub"
)

func TestBus_PublishesToSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe(ctx)
	bus.Error("win-1", "Editor crashed!", true)

	select {
	case ev := <-ch:
		require.Equal(t, pubsub.NotifyEvent, ev.Type)
		require.Equal(t, "Editor crashed!", ev.Payload.Text)
		require.Equal(t, Error, ev.Payload.Level)
		require.True(t, ev.Payload.Immediate)
		require.Equal(t, "win-1", ev.Payload.WinID)
		require.NotEmpty(t, ev.Payload.ID)
	case <-time.After(time.Second):
		require.FailNow(t, "no message received")
	}
}

func TestBus_RecentIsPerWindow(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	bus.Info("a", "one")
	bus.Warning("b", "two")
	bus.Error("a", "three", false)

	a := bus.Recent("a")
	require.Len(t, a, 2)
	require.Equal(t, "one", a[0].Text)
	require.Equal(t, Info, a[0].Level)
	require.Equal(t, "three", a[1].Text)

	b := bus.Recent("b")
	require.Len(t, b, 1)
	require.Equal(t, Warning, b[0].Level)

	require.Empty(t, bus.Recent("missing"))
}

func TestBus_UsesClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bus := NewBus(WithClock(func() time.Time { return fixed }))
	defer bus.Close()

	bus.Info("w", "hello")

	require.Equal(t, fixed, bus.Recent("w")[0].Time)
}

func TestBus_RecentIsBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 10).Draw(t, "limit")
		n := rapid.IntRange(0, 30).Draw(t, "n")
		bus := NewBus(WithHistory(limit))
		defer bus.Close()

		for i := 0; i < n; i++ {
			bus.Info("w", string(rune('a'+i%26)))
		}

		recent := bus.Recent("w")
		want := n
		if want > limit {
			want = limit
		}
		if len(recent) != want {
			t.Fatalf("len(recent) = %d, want %d", len(recent), want)
		}
		if n > 0 && recent[len(recent)-1].Text != string(rune('a'+(n-1)%26)) {
			t.Fatalf("newest message not retained")
		}
	})
}

func TestTee(t *testing.T) {
	var a, b Collector
	sink := Tee(&a, &b)

	sink.Error("w", "boom", true)
	sink.Info("w", "ok")

	require.Equal(t, []string{"boom", "ok"}, a.Texts())
	require.Equal(t, a.Texts(), b.Texts())
	require.True(t, b.Messages()[0].Immediate)
}

func TestCollector_Reset(t *testing.T) {
	var c Collector
	c.Info("w", "x")
	require.Equal(t, 1, c.Len())

	c.Reset()
	require.Zero(t, c.Len())
}

func TestLevel_String(t *testing.T) {
	require.Equal(t, "info", Info.String())
	require.Equal(t, "warning", Warning.String())
	require.Equal(t, "error", Error.String())
	require.Equal(t, "Level(9)", Level(9).String())
}
