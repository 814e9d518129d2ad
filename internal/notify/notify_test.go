package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled dispatcher must be nil")
	}

	// Nil dispatchers are safe to use.
	d.Emit(context.Background(), Event{Type: EventLogout})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports zero drops")
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []string
		sink = NewCallbackSink(func(e Event) {
			mu.Lock()
			got = append(got, e.Type)
			mu.Unlock()
		})
	)

	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	d.Emit(context.Background(), Event{Type: EventLoginSuccess})
	d.Emit(context.Background(), Event{Type: EventRefreshSuccess})
	d.Emit(context.Background(), Event{Type: EventLogout})
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	want := []string{EventLoginSuccess, EventRefreshSuccess, EventLogout}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestDispatcherCloseDrainsBuffer(t *testing.T) {
	block := make(chan struct{})
	var delivered sync.WaitGroup
	delivered.Add(3)

	sink := NewCallbackSink(func(Event) {
		<-block
		delivered.Done()
	})

	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{Type: EventLogout})
	}
	close(block)
	d.Close()
	delivered.Wait()
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := NewCallbackSink(func(Event) { <-block })

	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer func() {
		close(block)
		d.Close()
	}()

	// One in the sink, one in the buffer, the rest dropped.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{Type: EventLogout})
	}

	deadline := time.After(time.Second)
	for d.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected drops on a full buffer")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestDispatcherEmitAfterClose(t *testing.T) {
	var count int
	sink := NewCallbackSink(func(Event) { count++ })

	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Emit(context.Background(), Event{Type: EventLogout})

	if count != 0 {
		t.Fatalf("emit after close must be a no-op, delivered %d", count)
	}
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Emit(context.Background(), Event{Type: EventAuthFailure, Status: 401})

	select {
	case e := <-sink.Events():
		if e.Type != EventAuthFailure || e.Status != 401 {
			t.Fatalf("unexpected event: %+v", e)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{Type: EventRefreshFailure, Endpoint: "/auth/refresh_token", Status: 401, Error: "rejected"})
	sink.Emit(context.Background(), Event{Type: EventAuthFailure})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one JSON object per line, got %d lines", len(lines))
	}

	var e Event
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("first line is not valid JSON: %v", err)
	}
	if e.Type != EventRefreshFailure || e.Status != 401 || e.Error != "rejected" {
		t.Fatalf("unexpected decoded event: %+v", e)
	}
}
