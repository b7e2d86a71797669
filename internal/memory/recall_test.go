package memory

import (
	"testing"
)

func TestCrossChannelExcludesRequestingChannel(t *testing.T) {
	e := newTestEngine(t, Options{})
	e.RecordInteraction("c1", "chat", "chat message")
	e.RecordInteraction("c1", "email", "email message")

	events := e.CrossChannel("c1", "chat", 5)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Channel != "email" {
		t.Errorf("Channel = %q, want email", events[0].Channel)
	}
}

func TestCrossChannelMostRecentFirst(t *testing.T) {
	e := newTestEngine(t, Options{})
	e.RecordInteraction("c1", "email", "older email")
	e.RecordInteraction("c1", "voice", "newer call")
	e.RecordInteraction("c1", "email", "newest email")

	events := e.CrossChannel("c1", "chat", 2)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Text != "newest email" || events[1].Text != "newer call" {
		t.Errorf("order = [%q, %q], want newest first", events[0].Text, events[1].Text)
	}
}

func TestCrossChannelSkipsQuarantinedAndSynthetic(t *testing.T) {
	e := newTestEngine(t, Options{})
	e.RecordInteraction("c1", "email", injectionText)
	e.RecordInteraction("c1", "email", "legit email")

	c := e.clients["c1"]
	c.Events = append(c.Events, &Event{
		ID: "mem_x", TS: formatTS(e.now()), Channel: SyntheticChannel,
		Text: "Multiple interactions", Tokens: 2,
	})

	events := e.CrossChannel("c1", "chat", 5)
	if len(events) != 1 {
		t.Fatalf("got %d events, want only the legit one", len(events))
	}
	if events[0].Text != "legit email" {
		t.Errorf("Text = %q, want the legit email", events[0].Text)
	}
}

func TestCrossChannelIncrementsAccessCount(t *testing.T) {
	e := newTestEngine(t, Options{})
	e.RecordInteraction("c1", "email", "email message")

	got := e.CrossChannel("c1", "chat", 5)
	if got[0].AccessCount != 2 {
		t.Errorf("returned AccessCount = %d, want 2 (created at 1, +1 on recall)", got[0].AccessCount)
	}
	if stored := e.clients["c1"].Events[0].AccessCount; stored != 2 {
		t.Errorf("stored AccessCount = %d, want 2", stored)
	}

	e.CrossChannel("c1", "chat", 5)
	if stored := e.clients["c1"].Events[0].AccessCount; stored != 3 {
		t.Errorf("stored AccessCount after second recall = %d, want 3", stored)
	}

	// An event outside the limit is not touched.
	e.RecordInteraction("c1", "email", "second email")
	before := e.clients["c1"].Events[0].AccessCount
	e.CrossChannel("c1", "chat", 1)
	if after := e.clients["c1"].Events[0].AccessCount; after != before {
		t.Errorf("older event incremented despite limit: %d -> %d", before, after)
	}
}

func TestCrossChannelUnknownClient(t *testing.T) {
	e := newTestEngine(t, Options{})

	if events := e.CrossChannel("ghost", "chat", 5); len(events) != 0 {
		t.Errorf("got %d events for unknown client, want 0", len(events))
	}
	if e.ClientExists("ghost") {
		t.Error("recall created a client")
	}
}

func TestCrossChannelZeroLimitUsesDefault(t *testing.T) {
	e := newTestEngine(t, Options{})
	for i := 0; i < DefaultContextLimit+2; i++ {
		e.RecordInteraction("c1", "email", "email message")
	}

	events := e.CrossChannel("c1", "chat", 0)
	if len(events) != DefaultContextLimit {
		t.Errorf("got %d events, want default limit %d", len(events), DefaultContextLimit)
	}
}

func TestContextReturnsCrossChannelEvents(t *testing.T) {
	e := newTestEngine(t, Options{})
	e.RecordInteraction("c1", "email", "I want to pay my invoice")

	res, err := e.Context("c1", "chat")
	if err != nil {
		t.Fatalf("Context failed: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	if res.Events[0].Channel != "email" {
		t.Errorf("Channel = %q, want email", res.Events[0].Channel)
	}
	if res.StateSummary == "" {
		t.Error("StateSummary empty")
	}
	if res.Suggestion == "" {
		t.Error("Suggestion empty")
	}
}
