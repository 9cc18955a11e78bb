package logs

import (
	"context"
	"testing"

	"engagectl/internal/platform/logsink"
)

func TestAppendCapsLines(t *testing.T) {
	m := New(context.Background(), nil)
	batch := make([]logsink.Event, maxLines+25)
	for i := range batch {
		batch[i] = logsink.Event{Severity: logsink.Info, Message: "tick"}
	}
	m.Append(batch)
	if m.Len() != maxLines {
		t.Fatalf("expected %d lines, got %d", maxLines, m.Len())
	}
	m.Clear()
	if m.Len() != 0 {
		t.Fatalf("expected empty view after clear, got %d", m.Len())
	}
}

func TestWaitReadsBurstFromSink(t *testing.T) {
	sink := logsink.New(10)
	for _, msg := range []string{"a", "b", "c"} {
		if err := sink.Publishf(logsink.Info, "live", "%s", msg); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	m := New(context.Background(), sink)
	msg, ok := m.waitCmd()().(EventsMsg)
	if !ok {
		t.Fatalf("expected EventsMsg")
	}
	if msg.Closed || len(msg.Events) != 3 || msg.Events[0].Message != "a" || msg.Events[2].Message != "c" {
		t.Fatalf("unexpected batch: %+v", msg)
	}

	sink.Close()
	closed, _ := m.waitCmd()().(EventsMsg)
	if !closed.Closed {
		t.Fatalf("expected closed message after sink close")
	}
}
