package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"agentfabric/internal/fabconfig"
	"agentfabric/message"
	"agentfabric/validate"
)

func newText(payload string) message.Message {
	return message.New("", message.KindText, "A", "", "c", "", payload)
}

func TestSendRejectsWhenNotRunning(t *testing.T) {
	c := New("c", "owner", 4, fabconfig.PolicyContinue, nil, nil)
	if c.Send(newText("x"), false) {
		t.Fatal("expected reject: channel not started")
	}
}

func TestStartIsIdempotentAndStopIsTerminal(t *testing.T) {
	c := New("c", "owner", 4, fabconfig.PolicyContinue, nil, nil)
	c.Start()
	c.Start()
	if c.State() != Running {
		t.Fatalf("expected Running, got %s", c.State())
	}

	c.Stop()
	c.Stop()
	if c.State() != Stopped {
		t.Fatalf("expected Stopped, got %s", c.State())
	}

	if c.Send(newText("x"), false) {
		t.Fatal("expected reject: channel is Stopped")
	}
}

func TestFIFODeliveryOrder(t *testing.T) {
	c := New("c", "owner", 8, fabconfig.PolicyContinue, nil, nil)
	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 8)
	c.SetHandler(func(m message.Message) {
		mu.Lock()
		got = append(got, m.Payload)
		mu.Unlock()
		done <- struct{}{}
	})
	c.Start()
	defer c.Stop()

	for _, p := range []string{"1", "2", "3", "4"} {
		if !c.Send(newText(p), false) {
			t.Fatalf("expected send of %s to succeed", p)
		}
	}
	for range []string{"1", "2", "3", "4"} {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"1", "2", "3", "4"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBackpressureDropsWhenQueueFull(t *testing.T) {
	c := New("c", "owner", 2, fabconfig.PolicyContinue, nil, nil)
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	c.SetHandler(func(message.Message) {
		started <- struct{}{}
		<-block
	})
	c.Start()
	defer func() {
		close(block)
		c.Stop()
	}()

	if !c.Send(newText("1"), false) {
		t.Fatal("expected first send to succeed")
	}
	<-started // worker has pulled message 1 and is now blocked in the handler

	if !c.Send(newText("2"), false) {
		t.Fatal("expected second send to succeed (queue has room)")
	}
	if !c.Send(newText("3"), false) {
		t.Fatal("expected third send to succeed (fills queue capacity)")
	}
	if c.Send(newText("4"), false) {
		t.Fatal("expected fourth send to fail: queue is full")
	}
}

func TestSetHandlerAppliesToNextDeliveryOnly(t *testing.T) {
	c := New("c", "owner", 4, fabconfig.PolicyContinue, nil, nil)
	results := make(chan string, 2)
	c.SetHandler(func(m message.Message) { results <- "first:" + m.Payload })
	c.Start()
	defer c.Stop()

	if !c.Send(newText("a"), false) {
		t.Fatal("expected send to succeed")
	}
	if got := <-results; got != "first:a" {
		t.Fatalf("got %q", got)
	}

	c.SetHandler(func(m message.Message) { results <- "second:" + m.Payload })
	if !c.Send(newText("b"), false) {
		t.Fatal("expected send to succeed")
	}
	if got := <-results; got != "second:b" {
		t.Fatalf("got %q", got)
	}
}

func TestStopDrainsRemainingMessagesWithoutDelivering(t *testing.T) {
	c := New("c", "owner", 4, fabconfig.PolicyContinue, nil, nil)
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	delivered := 0
	var mu sync.Mutex
	c.SetHandler(func(message.Message) {
		mu.Lock()
		delivered++
		mu.Unlock()
		started <- struct{}{}
		<-block
	})
	c.Start()

	require.True(t, c.Send(newText("1"), false))
	<-started // worker is now blocked inside the handler for message 1

	require.True(t, c.Send(newText("2"), false))
	require.True(t, c.Send(newText("3"), false))

	// Request stop while the worker is still blocked delivering message 1,
	// and only unblock the handler once Stop has transitioned the channel
	// out of Running. This forces the race: does the worker, on returning
	// from the in-flight handler call, pick up message 2 from the queue or
	// honor the stop request first?
	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		return c.State() == Stopping
	}, time.Second, time.Millisecond, "Stop did not move the channel to Stopping")

	close(block)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}

	require.Equal(t, Stopped, c.State())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, delivered, "messages queued before Stop must be discarded, not delivered")
}

func TestSendRunsStructuralValidationWhenRequested(t *testing.T) {
	c := New("c", "owner", 4, fabconfig.PolicyContinue, nil, nil)
	c.SetValidator(validate.WellFormed)
	c.Start()
	defer c.Stop()

	malformed := message.Message{}
	if c.Send(malformed, true) {
		t.Fatal("expected reject: malformed message fails structural validation")
	}

	if !c.Send(newText("ok"), true) {
		t.Fatal("expected accept: well-formed message passes structural validation")
	}
}

func TestParticipantTracking(t *testing.T) {
	c := New("c", "owner", 4, fabconfig.PolicyContinue, nil, nil)
	if c.IsParticipant("a") {
		t.Fatal("expected a to not yet be a participant")
	}
	c.AddParticipant("a")
	c.AddParticipant("a")
	if !c.IsParticipant("a") {
		t.Fatal("expected a to be a participant")
	}
	if len(c.Participants()) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(c.Participants()))
	}
	c.RemoveParticipant("a")
	if c.IsParticipant("a") {
		t.Fatal("expected a to no longer be a participant")
	}
}
