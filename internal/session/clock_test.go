package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestClock_StopsWhenSessionFinishes(t *testing.T) {
	sink := &memSink{}
	s := newTestSession(t, twoChoiceExam(), sink)

	c := NewClock(s, zerolog.Nop())
	c.interval = time.Millisecond

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("clock did not stop after countdown expiry")
	}

	if s.State() != StateFinished {
		t.Fatalf("expected FINISHED, got %s", s.State())
	}
	if sink.count() != 1 {
		t.Fatalf("expected exactly one forced submission, got %d", sink.count())
	}
	if s.Remaining() != 0 {
		t.Fatalf("expected remaining 0, got %d", s.Remaining())
	}
}

func TestClock_StopHaltsTicking(t *testing.T) {
	s := newTestSession(t, twoChoiceExam(), nil)

	c := NewClock(s, zerolog.Nop())
	c.interval = time.Millisecond

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	c.Stop()
	c.Stop() // safe twice

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clock did not honor Stop")
	}

	if s.State() != StateActive {
		t.Fatalf("stopping the clock must not touch the session, got %s", s.State())
	}
}

func TestClock_ContextCancelHaltsTicking(t *testing.T) {
	s := newTestSession(t, twoChoiceExam(), nil)

	c := NewClock(s, zerolog.Nop())
	c.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clock did not honor context cancellation")
	}
}
