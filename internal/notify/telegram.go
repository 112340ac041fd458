package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/leadflow/internal/config"
	"github.com/stellarlinkco/leadflow/internal/profile"
	"github.com/stellarlinkco/leadflow/internal/scoring"
)

// TelegramBot is the slice of the bot API the notifier needs, kept small
// for mocking.
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// TelegramNotifier posts lead summaries to a sales channel.
type TelegramNotifier struct {
	chatID int64
	bot    TelegramBot
}

func NewTelegramNotifier(cfg config.TelegramNotifyConfig) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithFactory(cfg, defaultBotFactory)
}

// NewTelegramNotifierWithFactory creates a TelegramNotifier with a custom bot factory (for testing)
func NewTelegramNotifierWithFactory(cfg config.TelegramNotifyConfig, factory BotFactory) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	bot, err := factory(cfg.Token, http.DefaultClient)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{chatID: cfg.ChatID, bot: bot}, nil
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) AnalysisComplete(_ context.Context, p *profile.Profile, res *scoring.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "New qualified lead: %s\n", orDash(p.Name))
	fmt.Fprintf(&b, "Company: %s (%s)\n", orDash(p.Company), orDash(p.CompanySize))
	fmt.Fprintf(&b, "Role: %s\n", orDash(p.Role))
	fmt.Fprintf(&b, "Email: %s\n", orDash(p.Email))
	fmt.Fprintf(&b, "Challenge: %s\n", orDash(p.PrimaryChallenge))
	fmt.Fprintf(&b, "Budget: %s, timeframe: %s\n", orDash(p.BudgetBracket), orDash(p.Timeframe))
	fmt.Fprintf(&b, "Scores: fit %d, engagement %d, urgency %d, budget %d, authority %d\n",
		res.Scores.Fit, res.Scores.Engagement, res.Scores.Urgency, res.Scores.Budget, res.Scores.Authority)
	fmt.Fprintf(&b, "Est. deal $%.0f, close in ~%d days, success %.0f%%",
		res.Predictions.DealSize, res.Predictions.TimeToCloseDays, res.Predictions.SuccessProbability*100)

	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, b.String()))
	return err
}

func (t *TelegramNotifier) SessionAbandoned(_ context.Context, sessionKey string, p *profile.Profile) error {
	msg := fmt.Sprintf("Session %s went quiet mid-conversation.\nName: %s\nCompany: %s\nEmail: %s\nFields collected: %d/6",
		sessionKey, orDash(p.Name), orDash(p.Company), orDash(p.Email), p.FieldsPopulated())
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, msg))
	return err
}

func (t *TelegramNotifier) RecoveryLinkRequested(_ context.Context, sessionKey string, p *profile.Profile) error {
	msg := fmt.Sprintf("Visitor asked for a resume link by email.\nSession: %s\nEmail: %s\nName: %s\nCompany: %s",
		sessionKey, orDash(p.Email), orDash(p.Name), orDash(p.Company))
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, msg))
	return err
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
