// Package gateway wires the channels, the intake machine, the completion
// backend, and the session lifecycle into one message loop.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/stellarlinkco/leadflow/internal/bus"
	"github.com/stellarlinkco/leadflow/internal/channel"
	"github.com/stellarlinkco/leadflow/internal/config"
	"github.com/stellarlinkco/leadflow/internal/enrich"
	"github.com/stellarlinkco/leadflow/internal/intake"
	"github.com/stellarlinkco/leadflow/internal/llm"
	"github.com/stellarlinkco/leadflow/internal/notify"
	"github.com/stellarlinkco/leadflow/internal/profile"
	"github.com/stellarlinkco/leadflow/internal/session"
	"github.com/stellarlinkco/leadflow/internal/toolcall"
)

const systemPrompt = `You are a friendly product specialist for an automation platform, chatting with a visitor who already finished a guided qualification conversation. Answer follow-up questions helpfully and concisely.

When a UI action would help, emit a directive inline in your reply:
[TOOL: tool_name | param: value]

Available tools: show_roi_calculator, schedule_demo, start_assessment, explain_solution (solution_id), show_case_study (industry), navigate_to (page).`

const fallbackReply = "Sorry, I'm having trouble answering right now. Want to schedule a call with the team instead?"

// Completer is the completion backend (allows mocking in tests).
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Options for creating a Gateway
type Options struct {
	Completer  Completer
	Notifiers  []notify.Notifier
	SignalChan chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	completer  Completer
	tools      *toolcall.Registry
	store      *session.Store
	lifecycle  *session.Lifecycle
	enricher   *enrich.Enricher
	dispatcher *notify.Dispatcher
	channels   *channel.ChannelManager

	// mu serializes turns: the process loop, the lifecycle callbacks, and
	// enrichment completions all touch conversations under it.
	mu    sync.Mutex
	convs map[string]*Conversation

	signalChan chan os.Signal
	now        func() time.Time
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{
		cfg:   cfg,
		convs: make(map[string]*Conversation),
		now:   time.Now,
	}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	store, err := session.NewStore(cfg.Session.DBPath, time.Duration(cfg.Session.SnapshotTTLHours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	g.store = store

	g.lifecycle = session.NewLifecycle(session.LifecycleOptions{
		AutosaveInterval: "@every " + cfg.Session.AutosaveInterval,
		SweepInterval:    "@every " + cfg.Session.AbandonInterval,
		AbandonAfter:     time.Duration(cfg.Session.AbandonAfterSeconds) * time.Second,
		ScrollThreshold:  float64(cfg.Session.ScrollThresholdPx),
	})
	g.lifecycle.OnAutosave = g.saveAll
	g.lifecycle.OnAbandon = g.handleAbandon

	enricher, err := enrich.NewEnricher(cfg)
	if err != nil {
		_ = g.store.Close()
		return nil, fmt.Errorf("create enricher: %w", err)
	}
	g.enricher = enricher

	g.dispatcher = notify.NewDispatcher(opts.Notifiers...)
	if len(opts.Notifiers) == 0 {
		if cfg.Notify.Telegram.Enabled {
			tn, err := notify.NewTelegramNotifier(cfg.Notify.Telegram)
			if err != nil {
				log.Printf("[gateway] telegram notifier warning: %v", err)
			} else {
				g.dispatcher.Register(tn)
			}
		}
		if cfg.Notify.Webhook.Enabled {
			wn, err := notify.NewWebhookNotifier(cfg.Notify.Webhook)
			if err != nil {
				log.Printf("[gateway] webhook notifier warning: %v", err)
			} else {
				g.dispatcher.Register(wn)
			}
		}
	}

	g.tools = toolcall.NewRegistry()
	toolcall.RegisterBuiltins(g.tools)

	if opts.Completer != nil {
		g.completer = opts.Completer
	} else {
		g.completer = llm.NewClient(cfg)
	}

	chMgr, err := channel.NewChannelManager(cfg, g.bus)
	if err != nil {
		_ = g.store.Close()
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	g.signalChan = opts.SignalChan

	return g, nil
}

// Bus exposes the message bus for channels and tests.
func (g *Gateway) Bus() *bus.MessageBus { return g.bus }

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.lifecycle.Start(ctx); err != nil {
		return fmt.Errorf("start lifecycle: %w", err)
	}

	go g.processLoop(ctx)

	log.Printf("[gateway] running on %s:%d", g.cfg.Gateway.Host, g.cfg.Gateway.Port)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			g.handleInbound(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := msg.SessionKey()

	if ev, ok := msg.Metadata["event"].(string); ok && msg.Content == "" {
		g.handleEvent(ctx, key, ev, msg)
		return
	}
	if strings.TrimSpace(msg.Content) == "" {
		return
	}

	log.Printf("[gateway] inbound from %s: %s", key, truncate(msg.Content, 80))

	conv := g.conversation(key, msg.SourceURL)
	g.lifecycle.RecordMessage(key)
	conv.appendMessage(profile.RoleUser, msg.Content, g.now())

	prevState := conv.Machine.State()

	var turn intake.Turn
	var action map[string]any
	if prevState == intake.StateCompleted && !strings.Contains(strings.ToLower(msg.Content), "start over") {
		turn, action = g.freeform(ctx, conv)
	} else {
		turn = conv.Machine.ProcessTurn(msg.Content, conv.Profile)
		if turn.Analysis != nil {
			action = map[string]any{"type": "analysis_complete"}
		}
	}

	if prevState != intake.StateInitial && conv.Machine.State() == intake.StateInitial {
		// The machine reset itself; drop the transcript and latched flags
		// with it.
		conv.Messages = nil
		conv.notified = false
		conv.enriched = false
		conv.gen++
		if err := g.store.Delete(key); err != nil {
			log.Printf("[gateway] delete snapshot warning: %v", err)
		}
	}

	if turn.Analysis != nil && !conv.notified {
		conv.notified = true
		g.dispatcher.AnalysisComplete(ctx, conv.Profile, turn.Analysis)
	}
	if conv.Machine.State() == intake.StateCompleted {
		g.lifecycle.MarkCompleted(key)
	}
	g.maybeEnrich(conv)

	conv.appendMessage(profile.RoleAssistant, turn.Reply, g.now())
	if err := g.store.Put(conv.snapshot()); err != nil {
		log.Printf("[gateway] persist snapshot warning: %v", err)
	}

	g.bus.Outbound <- bus.OutboundMessage{
		Channel:     msg.Channel,
		ChatID:      msg.ChatID,
		Content:     turn.Reply,
		Suggestions: turn.Suggestions,
		Action:      action,
	}
}

// freeform answers post-qualification questions with the completion
// backend, honoring inline tool directives.
func (g *Gateway) freeform(ctx context.Context, conv *Conversation) (intake.Turn, map[string]any) {
	messages := []llm.Message{{Role: "system", Content: systemPrompt + profileContext(conv.Profile)}}
	transcript := conv.Messages
	if len(transcript) > 20 {
		transcript = transcript[len(transcript)-20:]
	}
	for _, m := range transcript {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := g.completer.Complete(ctx, llm.Request{
		Model:       g.cfg.Assistant.Model,
		Messages:    messages,
		Temperature: g.cfg.Assistant.Temperature,
		MaxTokens:   g.cfg.Assistant.MaxTokens,
	})
	if err != nil {
		log.Printf("[gateway] completion error: %v", err)
		return intake.Turn{Reply: fallbackReply, Suggestions: []string{"Schedule a demo"}}, nil
	}

	det := toolcall.Detect(resp.Content)
	if !det.HasTool {
		return intake.Turn{Reply: det.CleanedText}, nil
	}

	res, err := g.tools.Execute(ctx, det.ToolName, det.Params)
	if err != nil {
		log.Printf("[gateway] tool %s error: %v", det.ToolName, err)
	}
	reply := det.CleanedText
	if reply == "" {
		reply = res.Message
	}
	var action map[string]any
	if res.Action != "" {
		action = map[string]any{"type": res.Action}
		for k, v := range res.Data {
			action[k] = v
		}
	}
	return intake.Turn{Reply: reply}, action
}

func profileContext(p *profile.Profile) string {
	var b strings.Builder
	b.WriteString("\n\nVisitor context:")
	if p.Name != "" {
		fmt.Fprintf(&b, " name %s.", p.Name)
	}
	if p.Company != "" {
		fmt.Fprintf(&b, " company %s (%s).", p.Company, p.CompanySize)
	}
	if p.PrimaryChallenge != "" {
		fmt.Fprintf(&b, " main challenge: %s.", p.PrimaryChallenge)
	}
	return b.String()
}

// conversation returns the live conversation for a key, creating one if
// needed.
func (g *Gateway) conversation(key, sourceURL string) *Conversation {
	if conv, ok := g.convs[key]; ok {
		if sourceURL != "" {
			conv.SourceURL = sourceURL
		}
		return conv
	}
	conv := newConversation(key, g.cfg.Assistant.Funnel, sourceURL, g.now())
	g.convs[key] = conv
	g.lifecycle.Track(key)
	return conv
}

func (g *Gateway) handleEvent(ctx context.Context, key, ev string, msg bus.InboundMessage) {
	switch ev {
	case "connect":
		g.handleConnect(key, msg)
	case "scroll":
		if px, ok := msg.Metadata["deltaPx"].(float64); ok {
			g.lifecycle.RecordScroll(key, px)
		}
	case "activity":
		g.lifecycle.RecordActivity(key)
	case "recovery":
		choice, _ := msg.Metadata["choice"].(string)
		g.handleRecovery(ctx, key, choice, msg)
	default:
		log.Printf("[gateway] unknown event %q from %s", ev, key)
	}
}

func (g *Gateway) handleConnect(key string, msg bus.InboundMessage) {
	if _, ok := g.convs[key]; ok {
		g.lifecycle.RecordActivity(key)
		return
	}

	snap, err := g.store.Get(key)
	if err != nil {
		// No usable snapshot; a fresh conversation starts on the first
		// message.
		g.conversation(key, msg.SourceURL)
		return
	}

	conv := fromSnapshot(snap, g.cfg.Assistant.Funnel)
	g.convs[key] = conv
	g.lifecycle.Track(key)
	log.Printf("[gateway] restored session %s at state %s", key, conv.Machine.State())

	g.bus.Outbound <- bus.OutboundMessage{
		Channel:     msg.Channel,
		ChatID:      msg.ChatID,
		Content:     "Welcome back! We can pick up right where we left off.",
		Suggestions: []string{"Continue where we left off", "Start over"},
	}
}

func (g *Gateway) handleRecovery(ctx context.Context, key, choice string, msg bus.InboundMessage) {
	conv, ok := g.convs[key]
	if !ok {
		return
	}
	g.lifecycle.RecordActivity(key)

	var content string
	switch choice {
	case "continue":
		content = "Great, let's keep going."
	case "email":
		if conv.Profile.Email == "" {
			content = "Happy to send you a link. What's the best email for it?"
		} else {
			// The saved record is handed to the notifier and cleared; the
			// emailed link is the way back in.
			g.dispatcher.RecoveryLinkRequested(ctx, key, conv.Profile)
			if err := g.store.Delete(key); err != nil {
				log.Printf("[gateway] delete snapshot warning: %v", err)
			}
			content = fmt.Sprintf("Done! A link to pick this conversation back up is on its way to %s.", conv.Profile.Email)
		}
	case "browse":
		// Discard both the saved record and the live conversation; the next
		// message starts fresh.
		if err := g.store.Delete(key); err != nil {
			log.Printf("[gateway] delete snapshot warning: %v", err)
		}
		delete(g.convs, key)
		g.lifecycle.Forget(key)
		content = "No problem, browse away. I'll be right here if anything comes up."
	default:
		return
	}

	g.bus.Outbound <- bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: content,
	}
}

// maybeEnrich kicks off a firmographic lookup after the email lands. The
// lookup never blocks the turn and never overwrites visitor-stated fields.
func (g *Gateway) maybeEnrich(conv *Conversation) {
	if conv.enriched || conv.Profile.Email == "" {
		return
	}
	conv.enriched = true

	domain, ok := enrich.DomainFromEmail(conv.Profile.Email)
	if !ok {
		return
	}
	gen := conv.gen
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		data, err := g.enricher.Lookup(ctx, domain)
		if err != nil {
			log.Printf("[enrich] lookup %s: %v", domain, err)
			return
		}
		g.applyEnrichment(conv, gen, data)
	}()
}

// applyEnrichment merges a completed lookup unless the conversation was
// reset while the lookup was in flight.
func (g *Gateway) applyEnrichment(conv *Conversation, gen int, data profile.EnrichmentData) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if conv.gen != gen {
		return
	}
	conv.Profile.ApplyEnrichment(data)
}

// handleAbandon runs from the lifecycle sweep: notify sales and offer the
// visitor a way back in.
func (g *Gateway) handleAbandon(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	conv, ok := g.convs[key]
	if !ok {
		return
	}
	log.Printf("[gateway] session %s abandoned at state %s", key, conv.Machine.State())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g.dispatcher.SessionAbandoned(ctx, key, conv.Profile)

	if err := g.store.Put(conv.snapshot()); err != nil {
		log.Printf("[gateway] persist snapshot warning: %v", err)
	}

	channelName, chatID, found := strings.Cut(key, ":")
	if !found {
		return
	}
	g.bus.Outbound <- bus.OutboundMessage{
		Channel:     channelName,
		ChatID:      chatID,
		Content:     "Still there? I saved our conversation, so nothing is lost.",
		Suggestions: []string{"Continue where we left off", "Email me a link", "Just browsing"},
	}
}

// saveAll flushes every live conversation; runs from the autosave timer.
func (g *Gateway) saveAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, conv := range g.convs {
		if err := g.store.Put(conv.snapshot()); err != nil {
			log.Printf("[gateway] autosave %s warning: %v", key, err)
		}
	}

	if n, err := g.store.PurgeExpired(); err != nil {
		log.Printf("[gateway] purge snapshots warning: %v", err)
	} else if n > 0 {
		log.Printf("[gateway] purged %d expired snapshots", n)
	}
}

func (g *Gateway) Shutdown() error {
	g.lifecycle.Stop()
	g.saveAll()
	if err := g.store.Close(); err != nil {
		log.Printf("[gateway] close session store warning: %v", err)
	}
	_ = g.channels.StopAll()
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
