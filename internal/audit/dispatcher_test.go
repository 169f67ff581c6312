package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDispatcherDeliversEvents(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	d.Emit(context.Background(), Event{EventType: "auth.login", AccountID: "acct-1", Success: true})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "auth.login" || ev.AccountID != "acct-1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}

	d.Close()
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "auth.logout"})
	}
	d.Close()

	delivered := 0
	for {
		select {
		case <-sink.Events():
			delivered++
		default:
			if delivered != 5 {
				t.Fatalf("expected 5 delivered after drain, got %d", delivered)
			}
			return
		}
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// A sink held shut while events pile up: buffer 1, drop-if-full.
	gate := make(chan struct{})
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, gateSink{release: gate})

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "auth.login"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops with a saturated buffer")
	}

	close(gate)
	d.Close()
}

type gateSink struct {
	release chan struct{}
}

func (g gateSink) Emit(ctx context.Context, event Event) {
	<-g.release
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled dispatcher should be nil")
	}

	// Nil receivers are safe on every method.
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports zero drops")
	}
}

func TestJSONWriterSinkOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "auth.login", Success: true})
	sink.Emit(context.Background(), Event{EventType: "auth.logout", Success: false, Error: "boom"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var ev Event
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if ev.EventType != "auth.logout" || ev.Error != "boom" {
		t.Fatalf("unexpected decoded event: %+v", ev)
	}
}
