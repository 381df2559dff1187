package queue

import (
	"context"
	"testing"
	"time"
)

type job struct {
	ID string `json:"id"`
}

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewMessage(TypeRegistration, job{ID: "j1"})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ch, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	select {
	case got := <-ch:
		var j job
		if err := got.Decode(&j); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.Type != TypeRegistration || j.ID != "j1" {
			t.Errorf("got %s %+v", got.Type, j)
		}
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
}

func TestInMemoryConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := NewInMemory(1).Consume(ctx)
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received a message from an empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Publish(ctx, Message{Type: "x"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	cancel()
	if err := q.Publish(ctx, Message{Type: "x"}); err == nil {
		t.Error("Publish on a full queue with a cancelled context returned nil")
	}
}

func TestEncodingKeepsPipesInBody(t *testing.T) {
	msg, _ := NewMessage(TypeRegistration, job{ID: "a|b"})
	data, err := encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var j job
	if err := got.Decode(&j); err != nil || j.ID != "a|b" {
		t.Errorf("decoded %+v, %v", j, err)
	}
	if _, err := decode([]byte("registration|{}")); err == nil {
		t.Error("decode accepted a non-JSON entry")
	}
}
