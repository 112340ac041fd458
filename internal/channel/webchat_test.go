package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/stellarlinkco/leadflow/internal/bus"
	"github.com/stellarlinkco/leadflow/internal/config"
)

func dialTestWidget(t *testing.T, b *bus.MessageBus, query string) (*WebchatChannel, *websocket.Conn) {
	t.Helper()
	ch, err := NewWebchatChannel(config.GatewayConfig{}, b)
	if err != nil {
		t.Fatalf("NewWebchatChannel: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(ch.handleWS))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return ch, conn
}

func recvInbound(t *testing.T, b *bus.MessageBus) bus.InboundMessage {
	t.Helper()
	select {
	case msg := <-b.Inbound:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for inbound message")
		return bus.InboundMessage{}
	}
}

func TestWebchat_ConnectAnnouncesSession(t *testing.T) {
	b := bus.NewMessageBus(16)
	dialTestWidget(t, b, "?session=abc&page=https://example.com/pricing")

	msg := recvInbound(t, b)
	if msg.ChatID != "abc" {
		t.Errorf("chatID = %q, want reused session id", msg.ChatID)
	}
	if msg.SessionKey() != "webchat:abc" {
		t.Errorf("sessionKey = %q", msg.SessionKey())
	}
	if msg.Metadata["event"] != "connect" {
		t.Errorf("metadata = %v", msg.Metadata)
	}
	if msg.SourceURL != "https://example.com/pricing" {
		t.Errorf("sourceURL = %q", msg.SourceURL)
	}
}

func TestWebchat_FramesBecomeInboundMessages(t *testing.T) {
	b := bus.NewMessageBus(16)
	_, conn := dialTestWidget(t, b, "?session=abc")
	recvInbound(t, b) // connect event
	ctx := context.Background()

	write := func(frame wsFrame) {
		data, err := json.Marshal(frame)
		if err != nil {
			t.Fatalf("marshal frame: %v", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}

	write(wsFrame{Type: "message", Content: "hello", SourceURL: "https://example.com/"})
	msg := recvInbound(t, b)
	if msg.Content != "hello" || msg.SourceURL != "https://example.com/" {
		t.Errorf("message inbound = %+v", msg)
	}

	write(wsFrame{Type: "scroll", DeltaPx: 240})
	msg = recvInbound(t, b)
	if msg.Metadata["event"] != "scroll" || msg.Metadata["deltaPx"] != 240.0 {
		t.Errorf("scroll inbound = %+v", msg.Metadata)
	}

	write(wsFrame{Type: "recovery", Choice: "continue"})
	msg = recvInbound(t, b)
	if msg.Metadata["event"] != "recovery" || msg.Metadata["choice"] != "continue" {
		t.Errorf("recovery inbound = %+v", msg.Metadata)
	}
}

func TestWebchat_SendDeliversFrame(t *testing.T) {
	b := bus.NewMessageBus(16)
	ch, conn := dialTestWidget(t, b, "?session=abc")
	recvInbound(t, b)

	err := ch.Send(bus.OutboundMessage{
		Channel:     webchatChannelName,
		ChatID:      "abc",
		Content:     "How many people work there?",
		Suggestions: []string{"1-100 employees", "100-500 employees"},
		Action:      map[string]any{"type": "show_panel", "panel": "scheduler"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame wsFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Type != "message" || frame.Content != "How many people work there?" {
		t.Errorf("frame = %+v", frame)
	}
	if len(frame.Suggestions) != 2 || frame.Action["panel"] != "scheduler" {
		t.Errorf("frame extras = %+v", frame)
	}
}

func TestWebchat_SendToUnknownClient(t *testing.T) {
	b := bus.NewMessageBus(16)
	ch, err := NewWebchatChannel(config.GatewayConfig{}, b)
	if err != nil {
		t.Fatalf("NewWebchatChannel: %v", err)
	}
	if err := ch.Send(bus.OutboundMessage{ChatID: "ghost", Content: "hi"}); err == nil {
		t.Error("expected error for disconnected client")
	}
}

func TestChannelManager_RegistersWebchat(t *testing.T) {
	b := bus.NewMessageBus(16)
	m, err := NewChannelManager(config.DefaultConfig(), b)
	if err != nil {
		t.Fatalf("NewChannelManager: %v", err)
	}
	names := m.EnabledChannels()
	if len(names) != 1 || names[0] != webchatChannelName {
		t.Errorf("channels = %v", names)
	}
}
