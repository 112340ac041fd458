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

	"github.com/stellarlinkco/leadflow/internal/bus"
	"github.com/stellarlinkco/leadflow/internal/config"
)

const webchatChannelName = "webchat"

// wsFrame is the wire format in both directions. The widget sends message,
// scroll, activity and recovery frames; the server sends message frames.
type wsFrame struct {
	Type        string         `json:"type"`
	Content     string         `json:"content,omitempty"`
	SourceURL   string         `json:"sourceUrl,omitempty"`
	DeltaPx     float64        `json:"deltaPx,omitempty"`
	Choice      string         `json:"choice,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Action      map[string]any `json:"action,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	id   string
}

// WebchatChannel serves the embedded site widget over a websocket.
type WebchatChannel struct {
	bus     *bus.MessageBus
	host    string
	port    int
	server  *http.Server
	clients sync.Map
	nextID  atomic.Int64
}

func NewWebchatChannel(gwCfg config.GatewayConfig, b *bus.MessageBus) (*WebchatChannel, error) {
	port := gwCfg.Port
	if port == 0 {
		port = config.DefaultPort
	}
	return &WebchatChannel{
		bus:  b,
		host: gwCfg.Host,
		port: port,
	}, nil
}

func (w *WebchatChannel) Name() string { return webchatChannelName }

func (w *WebchatChannel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.handleWS)
	mux.HandleFunc("/healthz", func(wr http.ResponseWriter, r *http.Request) {
		wr.WriteHeader(http.StatusOK)
		_, _ = wr.Write([]byte("ok"))
	})

	w.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", w.host, w.port),
		Handler: mux,
	}

	go func() {
		log.Printf("[webchat] listening on %s", w.server.Addr)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[webchat] server error: %v", err)
		}
	}()

	return nil
}

func (w *WebchatChannel) handleWS(wr http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[webchat] websocket accept error: %v", err)
		return
	}

	// A widget that reconnects passes its previous session id so the
	// conversation can be restored.
	clientID := r.URL.Query().Get("session")
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

	// The gateway decides whether a snapshot exists for this session.
	w.bus.Inbound <- bus.InboundMessage{
		Channel:   webchatChannelName,
		SenderID:  clientID,
		ChatID:    clientID,
		Timestamp: time.Now(),
		SourceURL: r.URL.Query().Get("page"),
		Metadata:  map[string]any{"event": "connect"},
	}

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		msg := bus.InboundMessage{
			Channel:   webchatChannelName,
			SenderID:  clientID,
			ChatID:    clientID,
			Timestamp: time.Now(),
			SourceURL: frame.SourceURL,
		}

		switch frame.Type {
		case "message":
			if frame.Content == "" {
				continue
			}
			msg.Content = frame.Content
		case "scroll":
			msg.Metadata = map[string]any{"event": "scroll", "deltaPx": frame.DeltaPx}
		case "activity":
			msg.Metadata = map[string]any{"event": "activity"}
		case "recovery":
			msg.Metadata = map[string]any{"event": "recovery", "choice": frame.Choice}
		default:
			continue
		}

		w.bus.Inbound <- msg
	}
}

func (w *WebchatChannel) Send(msg bus.OutboundMessage) error {
	data, err := json.Marshal(wsFrame{
		Type:        "message",
		Content:     msg.Content,
		Suggestions: msg.Suggestions,
		Action:      msg.Action,
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

func (w *WebchatChannel) Stop() error {
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
