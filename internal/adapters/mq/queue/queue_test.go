package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	p := NewPhrase("ナイス", time.Now())
	if p.ID == "" {
		t.Fatal("expected phrase ID")
	}
	if !q.Enqueue(ctx, p) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	got := <-q.Dequeue(dctx)
	if got.ID != p.ID || got.Text != "ナイス" {
		t.Errorf("expected %+v, got %+v", p, got)
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, text := range []string{"a", "b"} {
		if !q.Enqueue(ctx, NewPhrase(text, time.Now())) {
			t.Fatalf("expected enqueue of %q to succeed", text)
		}
	}
	if q.Enqueue(ctx, NewPhrase("c", time.Now())) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	q.Enqueue(ctx, NewPhrase("first", time.Now()))
	q.Enqueue(ctx, NewPhrase("second", time.Now()))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, NewPhrase("late", time.Now())) {
		t.Error("expected enqueue after close to fail")
	}

	var texts []string
	for p := range q.Dequeue(ctx) {
		texts = append(texts, p.Text)
	}
	if len(texts) != 2 || texts[0] != "first" || texts[1] != "second" {
		t.Errorf("expected [first second], got %v", texts)
	}
}

func TestInMemoryQueue_DequeueStopsOnCancel(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	ch := q.Dequeue(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected no phrase")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue channel not closed after cancel")
	}
}

func TestInMemoryQueue_CancelledEnqueue(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Enqueue(ctx, NewPhrase("x", time.Now())) {
		t.Error("expected enqueue with cancelled context to fail")
	}
}
