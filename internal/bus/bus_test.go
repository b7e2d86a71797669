package bus

import (
	"testing"
	"time"
)

func TestSessionKey(t *testing.T) {
	msg := InboundMessage{Channel: "telegram", ChatID: "12345"}
	if got := msg.SessionKey(); got != "telegram:12345" {
		t.Errorf("SessionKey = %q, want telegram:12345", got)
	}
}

func TestInboundBuffered(t *testing.T) {
	b := NewMessageBus(2)

	// Writes up to the buffer size must not block.
	b.Inbound <- InboundMessage{Channel: "chat", Text: "one", Timestamp: time.Now()}
	b.Inbound <- InboundMessage{Channel: "chat", Text: "two", Timestamp: time.Now()}

	got := <-b.Inbound
	if got.Text != "one" {
		t.Errorf("Text = %q, want fifo order", got.Text)
	}
}

func TestPublishOutboundRoutes(t *testing.T) {
	b := NewMessageBus(1)

	var received []OutboundMessage
	b.SubscribeOutbound("telegram", func(msg OutboundMessage) {
		received = append(received, msg)
	})

	b.PublishOutbound(OutboundMessage{Channel: "telegram", ChatID: "1", Text: "hi"})

	if len(received) != 1 || received[0].Text != "hi" {
		t.Errorf("received = %+v, want the published message", received)
	}
}

func TestPublishOutboundUnknownChannelDropped(t *testing.T) {
	b := NewMessageBus(1)

	// No handler registered; must not panic.
	b.PublishOutbound(OutboundMessage{Channel: "ghost", Text: "hi"})
}

func TestSubscribeOutboundReplacesHandler(t *testing.T) {
	b := NewMessageBus(1)

	first, second := 0, 0
	b.SubscribeOutbound("chat", func(OutboundMessage) { first++ })
	b.SubscribeOutbound("chat", func(OutboundMessage) { second++ })

	b.PublishOutbound(OutboundMessage{Channel: "chat"})

	if first != 0 || second != 1 {
		t.Errorf("handlers called first=%d second=%d, want replacement", first, second)
	}
}
