package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.PublishChainStart("data_agent:news", "data-stage")

	select {
	case e := <-ch:
		assert.Equal(t, KindChainStart, e.Kind)
		assert.Equal(t, "data_agent:news", e.Name)
		assert.Equal(t, []string{"data-stage"}, e.Tags)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	ch1, unsub1 := bus.Subscribe()
	defer unsub1()
	ch2, unsub2 := bus.Subscribe()
	defer unsub2()

	bus.PublishCustom("research_agent:growth", map[string]string{"step": "tool_selection"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			assert.Equal(t, KindCustom, e.Kind)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event on one subscriber")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	unsubscribe()

	bus.PublishChainEnd("data_agent:news", nil)

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")
}

func TestPublishDoesNotBlockWhenSubscriberBufferIsFull(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.PublishCustom("node", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked despite a full, undrained subscriber buffer")
	}

	// Drain whatever made it through; the most recent events should be present.
	var last Event
	for {
		select {
		case e := <-ch:
			last = e
			continue
		default:
		}
		break
	}
	assert.Equal(t, 999, last.Data)
}

func TestWithTagsDoesNotMutateOriginal(t *testing.T) {
	original := Event{Kind: KindChainStart, Name: "n", Tags: []string{"a"}}
	tagged := original.WithTags("b")

	require.Equal(t, []string{"a"}, original.Tags)
	assert.Equal(t, []string{"a", "b"}, tagged.Tags)
}
