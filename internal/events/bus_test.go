package events

import "testing"

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := NewBus()
	stream, unsub := b.Subscribe(EventBarProcessed, 4)
	defer unsub()

	b.Publish(EventBarProcessed, BarProgress{Index: 1, Total: 10})

	msg := <-stream
	got, ok := msg.(BarProgress)
	if !ok || got.Index != 1 {
		t.Fatalf("got %#v, want BarProgress{Index: 1}", msg)
	}
}

func TestSubscribeReplaysRecentPublishes(t *testing.T) {
	b := NewBus()

	for i := 0; i < 3; i++ {
		b.Publish(EventBarProcessed, BarProgress{Index: i})
	}

	stream, unsub := b.Subscribe(EventBarProcessed, 8)
	defer unsub()

	for want := 0; want < 3; want++ {
		msg := <-stream
		got := msg.(BarProgress)
		if got.Index != want {
			t.Fatalf("replay order = %d, want %d", got.Index, want)
		}
	}
}

func TestReplayDepthBoundsHistory(t *testing.T) {
	b := NewBus()

	for i := 0; i < replayDepth+5; i++ {
		b.Publish(EventBarProcessed, BarProgress{Index: i})
	}

	stream, unsub := b.Subscribe(EventBarProcessed, replayDepth+5)
	defer unsub()

	first := (<-stream).(BarProgress)
	if first.Index != 5 {
		t.Fatalf("oldest replayed index = %d, want %d (replay window should have dropped the first 5)", first.Index, 5)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	stream, unsub := b.Subscribe(EventTradeClosed, 1)
	unsub()

	if _, ok := <-stream; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}

func TestPublishWithNoSubscribersDoesNotPanic(t *testing.T) {
	b := NewBus()
	b.Publish(EventRunCompleted, "anything")
}
