package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/leadflow/internal/config"
	"github.com/stellarlinkco/leadflow/internal/profile"
	"github.com/stellarlinkco/leadflow/internal/scoring"
)

type mockBot struct {
	sent    []tgbotapi.Chattable
	sendErr error
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	m.sent = append(m.sent, c)
	return tgbotapi.Message{MessageID: len(m.sent)}, nil
}

func (m *mockBot) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "leadflow_bot"}
}

func qualifiedLead() (*profile.Profile, *scoring.Result) {
	now := time.Date(2026, 5, 12, 15, 0, 0, 0, time.UTC)
	p := profile.New(now)
	p.Name = "Jordan Vale"
	p.Company = "Initech"
	p.CompanySize = "500-5,000 employees"
	p.Role = "VP of Operations"
	p.Email = "jordan@initech.example.com"
	p.PrimaryChallenge = "AI adoption & integration"
	p.BudgetBracket = "$250K-$500K"
	p.Timeframe = "Immediate"
	res := scoring.Analyze(p, now)
	return p, &res
}

func newMockedTelegram(t *testing.T, bot *mockBot) *TelegramNotifier {
	t.Helper()
	n, err := NewTelegramNotifierWithFactory(
		config.TelegramNotifyConfig{Token: "token", ChatID: 42},
		func(token string, client *http.Client) (TelegramBot, error) { return bot, nil },
	)
	if err != nil {
		t.Fatalf("NewTelegramNotifierWithFactory: %v", err)
	}
	return n
}

func TestTelegram_AnalysisComplete(t *testing.T) {
	bot := &mockBot{}
	n := newMockedTelegram(t, bot)
	p, res := qualifiedLead()

	if err := n.AnalysisComplete(context.Background(), p, res); err != nil {
		t.Fatalf("AnalysisComplete: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", bot.sent[0])
	}
	if msg.ChatID != 42 {
		t.Errorf("chatID = %d", msg.ChatID)
	}
	for _, want := range []string{"Jordan Vale", "Initech", "jordan@initech.example.com", "fit"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("message missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestTelegram_SessionAbandoned(t *testing.T) {
	bot := &mockBot{}
	n := newMockedTelegram(t, bot)
	p, _ := qualifiedLead()

	if err := n.SessionAbandoned(context.Background(), "webchat:abc", p); err != nil {
		t.Fatalf("SessionAbandoned: %v", err)
	}
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	if !strings.Contains(msg.Text, "webchat:abc") {
		t.Errorf("message missing session key:\n%s", msg.Text)
	}
}

func TestTelegram_RecoveryLinkRequested(t *testing.T) {
	bot := &mockBot{}
	n := newMockedTelegram(t, bot)
	p, _ := qualifiedLead()

	if err := n.RecoveryLinkRequested(context.Background(), "webchat:abc", p); err != nil {
		t.Fatalf("RecoveryLinkRequested: %v", err)
	}
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	for _, want := range []string{"webchat:abc", "jordan@initech.example.com"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("message missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestTelegram_ConfigValidation(t *testing.T) {
	if _, err := NewTelegramNotifierWithFactory(config.TelegramNotifyConfig{ChatID: 42},
		func(string, *http.Client) (TelegramBot, error) { return &mockBot{}, nil }); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := NewTelegramNotifierWithFactory(config.TelegramNotifyConfig{Token: "t"},
		func(string, *http.Client) (TelegramBot, error) { return &mockBot{}, nil }); err == nil {
		t.Error("expected error for missing chat id")
	}
}

func TestWebhook_AnalysisComplete(t *testing.T) {
	var got webhookEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Leadflow-Secret") != "hunter2" {
			t.Errorf("secret header = %q", r.Header.Get("X-Leadflow-Secret"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(config.WebhookNotifyConfig{URL: srv.URL, Secret: "hunter2"})
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}
	p, res := qualifiedLead()
	if err := n.AnalysisComplete(context.Background(), p, res); err != nil {
		t.Fatalf("AnalysisComplete: %v", err)
	}
	if got.Event != "analysis_complete" {
		t.Errorf("event = %q", got.Event)
	}
	if got.Profile == nil || got.Profile.Email != "jordan@initech.example.com" {
		t.Errorf("profile = %+v", got.Profile)
	}
	if got.Scores == nil || got.Predicted == nil {
		t.Error("scores or predictions missing")
	}
}

func TestWebhook_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(config.WebhookNotifyConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}
	p, _ := qualifiedLead()
	if err := n.SessionAbandoned(context.Background(), "webchat:abc", p); err == nil {
		t.Error("expected error for 502")
	}
}

type countingSink struct {
	name      string
	analyses  int
	abandons  int
	links     int
	returnErr error
}

func (c *countingSink) Name() string { return c.name }
func (c *countingSink) AnalysisComplete(context.Context, *profile.Profile, *scoring.Result) error {
	c.analyses++
	return c.returnErr
}
func (c *countingSink) SessionAbandoned(context.Context, string, *profile.Profile) error {
	c.abandons++
	return c.returnErr
}
func (c *countingSink) RecoveryLinkRequested(context.Context, string, *profile.Profile) error {
	c.links++
	return c.returnErr
}

func TestDispatcher_FanOutContinuesPastFailure(t *testing.T) {
	failing := &countingSink{name: "failing", returnErr: errors.New("boom")}
	healthy := &countingSink{name: "healthy"}
	d := NewDispatcher(failing, healthy)
	p, res := qualifiedLead()

	d.AnalysisComplete(context.Background(), p, res)
	d.SessionAbandoned(context.Background(), "webchat:abc", p)
	d.RecoveryLinkRequested(context.Background(), "webchat:abc", p)

	if failing.analyses != 1 || healthy.analyses != 1 {
		t.Errorf("analyses = %d/%d, want 1/1", failing.analyses, healthy.analyses)
	}
	if failing.abandons != 1 || healthy.abandons != 1 {
		t.Errorf("abandons = %d/%d, want 1/1", failing.abandons, healthy.abandons)
	}
	if failing.links != 1 || healthy.links != 1 {
		t.Errorf("links = %d/%d, want 1/1", failing.links, healthy.links)
	}
}
