package loop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueueRunsInOrder(t *testing.T) {
	q := New()
	var got []int
	for i := 1; i <= 3; i++ {
		i := i
		q.Post(func() { got = append(got, i) })
	}
	q.Post(q.Stop)

	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("callbacks ran as %v", got)
	}
}

func TestPostFromInsideLoop(t *testing.T) {
	q := New()
	var order []string
	q.Post(func() {
		order = append(order, "outer")
		q.Post(func() {
			order = append(order, "inner")
			q.Stop()
		})
	})

	done := make(chan error, 1)
	go func() { done <- q.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("nested Post deadlocked")
	}
	if len(order) != 2 || order[1] != "inner" {
		t.Errorf("unexpected order %v", order)
	}
}

func TestPostFromOtherGoroutine(t *testing.T) {
	q := New()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Post(q.Stop)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunHonoursContext(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestDispatch(t *testing.T) {
	var forwarded int
	q := NewWithDispatch(func(fn func()) {
		forwarded++
		fn()
	})
	q.Post(func() {})
	q.Post(q.Stop)
	q.Run(context.Background())
	if forwarded != 2 {
		t.Errorf("expected 2 dispatched callbacks, got %d", forwarded)
	}
}
