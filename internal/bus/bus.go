package bus

import (
	"log"
	"sync"
)

// MessageBus decouples channel adapters from the gateway loop. Inbound is a
// buffered channel the adapters write to; outbound messages are dispatched
// to the handler registered for their channel name.
type MessageBus struct {
	Inbound chan InboundMessage

	mu       sync.RWMutex
	outbound map[string]func(OutboundMessage)
}

func NewMessageBus(bufSize int) *MessageBus {
	return &MessageBus{
		Inbound:  make(chan InboundMessage, bufSize),
		outbound: make(map[string]func(OutboundMessage)),
	}
}

// SubscribeOutbound registers the send handler for a channel name,
// replacing any previous handler.
func (b *MessageBus) SubscribeOutbound(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outbound[channel] = fn
}

// PublishOutbound routes a reply to its channel's handler. Messages for
// channels without a handler are dropped with a log line.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.mu.RLock()
	fn := b.outbound[msg.Channel]
	b.mu.RUnlock()

	if fn == nil {
		log.Printf("[bus] no outbound handler for channel %s, dropping message", msg.Channel)
		return
	}
	fn(msg)
}
