package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// watch is the live-session bookkeeping behind abandonment detection.
type watch struct {
	lastActivity time.Time
	scrollDelta  float64
	messages     int
	completed    bool
	fired        bool
}

// LifecycleOptions tunes the two background timers and the abandonment
// condition.
type LifecycleOptions struct {
	AutosaveInterval string // cron spec, e.g. "@every 30s"
	SweepInterval    string // cron spec, e.g. "@every 10s"
	AbandonAfter     time.Duration
	ScrollThreshold  float64 // px
}

// Lifecycle runs the autosave and abandonment timers over the set of live
// sessions. The gateway registers sessions and feeds it activity; callbacks
// fire from the cron goroutine.
type Lifecycle struct {
	mu       sync.Mutex
	sessions map[string]*watch

	// OnAutosave flushes every live conversation to the store.
	OnAutosave func()
	// OnAbandon fires at most once per engagement lull, with the session key.
	OnAbandon func(sessionKey string)

	opts LifecycleOptions
	cron *rcron.Cron
	now  func() time.Time
}

func NewLifecycle(opts LifecycleOptions) *Lifecycle {
	return &Lifecycle{
		sessions: make(map[string]*watch),
		opts:     opts,
		now:      time.Now,
	}
}

func (l *Lifecycle) Start(ctx context.Context) error {
	l.cron = rcron.New()
	if _, err := l.cron.AddFunc(l.opts.AutosaveInterval, l.autosave); err != nil {
		return fmt.Errorf("register autosave timer: %w", err)
	}
	if _, err := l.cron.AddFunc(l.opts.SweepInterval, l.sweep); err != nil {
		return fmt.Errorf("register abandonment timer: %w", err)
	}
	l.cron.Start()
	log.Printf("[session] lifecycle started (autosave %s, sweep %s)", l.opts.AutosaveInterval, l.opts.SweepInterval)

	go func() {
		<-ctx.Done()
		l.Stop()
	}()
	return nil
}

func (l *Lifecycle) Stop() {
	if l.cron == nil {
		return
	}
	stopCtx := l.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[session] stop timeout waiting for running timers")
	}
	l.cron = nil
	log.Printf("[session] lifecycle stopped")
}

// Track starts watching a session. Tracking an already-watched key is a
// no-op.
func (l *Lifecycle) Track(sessionKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[sessionKey]; ok {
		return
	}
	l.sessions[sessionKey] = &watch{lastActivity: l.now()}
}

// Forget stops watching a session; pending abandonment checks for it are
// cancelled with it.
func (l *Lifecycle) Forget(sessionKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, sessionKey)
}

// RecordActivity marks the visitor as engaged. It rearms abandonment
// detection and zeroes the scroll accumulator.
func (l *Lifecycle) RecordActivity(sessionKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.sessions[sessionKey]
	if !ok {
		return
	}
	w.lastActivity = l.now()
	w.scrollDelta = 0
	w.fired = false
}

// RecordScroll accumulates scroll movement since the last activity mark.
func (l *Lifecycle) RecordScroll(sessionKey string, px float64) {
	if px < 0 {
		px = -px
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.sessions[sessionKey]; ok {
		w.scrollDelta += px
	}
}

// RecordMessage counts a visitor message, which is also activity.
func (l *Lifecycle) RecordMessage(sessionKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.sessions[sessionKey]
	if !ok {
		return
	}
	w.messages++
	w.lastActivity = l.now()
	w.scrollDelta = 0
	w.fired = false
}

// MarkCompleted excludes a finished conversation from abandonment checks.
func (l *Lifecycle) MarkCompleted(sessionKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.sessions[sessionKey]; ok {
		w.completed = true
	}
}

func (l *Lifecycle) autosave() {
	if l.OnAutosave != nil {
		l.OnAutosave()
	}
}

// sweep fires OnAbandon for every session that has gone quiet: no activity
// past the threshold, negligible scrolling, at least one message exchanged,
// and the conversation not completed. Each lull fires at most once.
func (l *Lifecycle) sweep() {
	now := l.now()

	l.mu.Lock()
	var abandoned []string
	for key, w := range l.sessions {
		if w.fired || w.completed || w.messages == 0 {
			continue
		}
		if now.Sub(w.lastActivity) <= l.opts.AbandonAfter {
			continue
		}
		if w.scrollDelta >= l.opts.ScrollThreshold {
			continue
		}
		w.fired = true
		abandoned = append(abandoned, key)
	}
	l.mu.Unlock()

	for _, key := range abandoned {
		log.Printf("[session] %s looks abandoned", key)
		if l.OnAbandon != nil {
			l.OnAbandon(key)
		}
	}
}
