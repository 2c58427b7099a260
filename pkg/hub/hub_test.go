package hub

import (
	"testing"
	"time"
)

func TestStopEndsRunLoop(t *testing.T) {
	h := New(nil)

	finished := make(chan struct{})
	go func() {
		h.Run()
		close(finished)
	}()

	h.Publish(NewEvent(EventStage, map[string]interface{}{"totalMs": 42}))
	h.Stop()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("run loop did not exit after Stop")
	}
}

func TestStopDisconnectsClients(t *testing.T) {
	h := New(nil)

	client := &Client{hub: h, send: make(chan []byte, 1)}
	go func() { h.register <- client }()

	finished := make(chan struct{})
	go func() {
		h.Run()
		close(finished)
	}()

	// Wait for the registration to land before stopping.
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	h.Stop()
	<-finished

	if h.ClientCount() != 0 {
		t.Errorf("expected no clients after Stop, got %d", h.ClientCount())
	}
	if _, open := <-client.send; open {
		t.Error("expected the client send channel to be closed")
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := New(nil)

	// No Run loop draining: fill the buffer past capacity. Publish must
	// not block.
	for i := 0; i < 300; i++ {
		h.Publish(NewEvent(EventTranscript, map[string]interface{}{"i": i}))
	}

	if n := len(h.broadcast); n != cap(h.broadcast) {
		t.Errorf("expected a full broadcast buffer, got %d of %d", n, cap(h.broadcast))
	}
}
