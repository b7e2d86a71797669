package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/nortechlabs/recall/internal/bus"
	"github.com/nortechlabs/recall/internal/config"
)

const webChatChannelName = "webchat"

type wsMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	id   string
}

// WebChatChannel accepts websocket connections and turns each text frame
// into an inbound interaction. Replies are pushed back on the sender's
// socket.
type WebChatChannel struct {
	BaseChannel
	port    int
	server  *http.Server
	clients sync.Map
	nextID  atomic.Int64
}

func NewWebChatChannel(cfg config.WebChatConfig, b *bus.MessageBus) (*WebChatChannel, error) {
	port := cfg.Port
	if port == 0 {
		port = config.DefaultPort + 1
	}

	ch := &WebChatChannel{
		BaseChannel: NewBaseChannel(webChatChannelName, b, cfg.AllowFrom),
		port:        port,
	}
	return ch, nil
}

func (w *WebChatChannel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.handleWS)

	w.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", w.port),
		Handler: mux,
	}

	go func() {
		log.Printf("[webchat] listening on :%d", w.port)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[webchat] server error: %v", err)
		}
	}()

	return nil
}

func (w *WebChatChannel) handleWS(wr http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[webchat] websocket accept error: %v", err)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = fmt.Sprintf("webchat-%d", w.nextID.Add(1))
	}
	client := &wsClient{conn: conn, id: clientID}
	w.clients.Store(clientID, client)
	log.Printf("[webchat] client connected: %s", clientID)

	defer func() {
		w.clients.Delete(clientID)
		conn.CloseNow()
		log.Printf("[webchat] client disconnected: %s", clientID)
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Type != "message" || msg.Text == "" {
			continue
		}

		if !w.IsAllowed(clientID) {
			log.Printf("[webchat] rejected message from %s", clientID)
			continue
		}

		w.bus.Inbound <- bus.InboundMessage{
			Channel:   webChatChannelName,
			SenderID:  clientID,
			ChatID:    clientID,
			Text:      msg.Text,
			Timestamp: time.Now(),
		}
	}
}

func (w *WebChatChannel) Send(msg bus.OutboundMessage) error {
	data, err := json.Marshal(wsMessage{
		Type: "message",
		Text: msg.Text,
	})
	if err != nil {
		return err
	}

	client, ok := w.clients.Load(msg.ChatID)
	if !ok {
		return fmt.Errorf("webchat client %s not connected", msg.ChatID)
	}

	c := client.(*wsClient)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (w *WebChatChannel) Stop() error {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			log.Printf("[webchat] shutdown error: %v", err)
		}
	}
	w.clients.Range(func(key, value any) bool {
		c := value.(*wsClient)
		c.conn.CloseNow()
		return true
	})
	log.Printf("[webchat] stopped")
	return nil
}
