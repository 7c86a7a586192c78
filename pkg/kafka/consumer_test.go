package kafka

import (
	"context"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	t.Helper()
	base := []ConsumerOption{
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerGroupID("test-group"),
	}
	c, err := NewConsumer(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return c
}

// Stop must not close the message queue while a read loop is still blocked
// sending into it; a send on a closed channel panics and takes the process
// down mid-shutdown.
func TestConsumerStopWithBlockedEnqueue(t *testing.T) {
	c := newTestConsumer(t, WithConsumerBufferSize(1))

	// Fill the queue so the next enqueue cannot complete its send.
	c.msgChan <- &inboundMessage{topic: "candles", data: []byte("x")}

	enqueued := make(chan bool, 1)
	c.readerWg.Add(1)
	go func() {
		defer c.readerWg.Done()
		enqueued <- c.enqueue("candles", kafkago.Message{Value: []byte("y")})
	}()

	// Give the goroutine time to park inside enqueue.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case ok := <-enqueued:
		if ok {
			t.Fatalf("enqueue returned true during shutdown")
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue did not unblock after Stop")
	}
}

func TestConsumerStopIdempotent(t *testing.T) {
	c := newTestConsumer(t)

	ctx := context.Background()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestPartitionLockReuse(t *testing.T) {
	c := newTestConsumer(t)

	a := c.partitionLock("candles", 0)
	b := c.partitionLock("candles", 0)
	if a != b {
		t.Fatalf("same (topic, partition) returned different locks")
	}
	if other := c.partitionLock("candles", 1); other == a {
		t.Fatalf("different partitions share a lock")
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 50*time.Millisecond, 2*time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v outside (0, %v]", attempt, d, max)
		}
	}
}
