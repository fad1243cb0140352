package queue

import (
	"context"
	"io"
	"testing"
	"time"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue[string](2)
	t.Cleanup(func() { _ = q.Close() })

	if got := q.Enqueue("a"); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if got := q.Enqueue("b"); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if q.Len() != 2 {
		t.Fatalf("expected len 2, got %d", q.Len())
	}

	batch, err := q.DequeueBatch(context.Background(), 2, time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if len(batch) != 2 || batch[0] != "a" || batch[1] != "b" {
		t.Fatalf("unexpected batch: %#v", batch)
	}
}

func TestMemoryQueue_FullQueueDrops(t *testing.T) {
	q := NewMemoryQueue[int](1)
	t.Cleanup(func() { _ = q.Close() })

	if got := q.Enqueue(1); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if got := q.Enqueue(2); got != EnqueueDropped {
		t.Fatalf("expected enqueue dropped, got %s", got)
	}
}

func TestMemoryQueue_EmptyQueueTimesOut(t *testing.T) {
	q := NewMemoryQueue[int](1)
	t.Cleanup(func() { _ = q.Close() })

	batch, err := q.DequeueBatch(context.Background(), 4, 10*time.Millisecond)
	if err != nil || len(batch) != 0 {
		t.Fatalf("expected empty batch without error, got %v %v", batch, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.DequeueBatch(ctx, 1, time.Second); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryQueue_CloseReturnsEOFWhenDrained(t *testing.T) {
	q := NewMemoryQueue[int](1)
	if got := q.Enqueue(7); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := q.Enqueue(8); got != EnqueueDropped {
		t.Fatalf("expected closed queue to drop, got %s", got)
	}

	batch, err := q.DequeueBatch(context.Background(), 2, 0)
	if len(batch) != 1 {
		t.Fatalf("expected 1 item after close, got %d", len(batch))
	}
	if err != io.EOF {
		t.Fatalf("expected io.EOF with final drained batch, got %v", err)
	}

	batch, err = q.DequeueBatch(context.Background(), 1, 0)
	if err != io.EOF {
		t.Fatalf("expected io.EOF on empty closed queue, got %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("expected 0 items, got %d", len(batch))
	}
}
