package util

import (
	"context"
	"testing"
	"time"
)

func TestEmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var em Emitter

	l := em.Listen(ctx)
	em.Emit("test")

	select {
	case msg := <-l:
		if msg != "test" {
			t.Errorf("Event malformed: %v", msg)
			return
		}
	case <-time.After(time.Millisecond * 100):
		t.Error("Event was not emitted")
	}
}

func TestEmissionOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var em Emitter
	l := em.Listen(ctx)
	for i := 0; i < 10; i++ {
		em.Emit(i)
	}
	for i := 0; i < 10; i++ {
		select {
		case msg := <-l:
			if msg != i {
				t.Fatalf("Unexpected event: got %v, want %v", msg, i)
			}
		case <-time.After(time.Millisecond * 100):
			t.Fatalf("Event %d was not emitted", i)
		}
	}
}

func TestUnlistenOnCancel(t *testing.T) {
	var em Emitter
	ctx, cancel := context.WithCancel(context.Background())
	em.Listen(ctx)
	if n := em.NumListeners(); n != 1 {
		t.Fatalf("Unexpected number of listeners: %d", n)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for em.NumListeners() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Listener was not removed after cancellation")
		}
		time.Sleep(time.Millisecond * 5)
	}
	// Emitting without listeners must not block.
	em.Emit("nobody")
}

func TestSlowListenerDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var em Emitter
	em.Listen(ctx)
	done := make(chan struct{})
	go func() {
		for i := 0; i < listenerBuffer*2; i++ {
			em.Emit(i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full listener")
	}
}
