package session

import (
	"testing"
	"time"
)

func newTestLifecycle() (*Lifecycle, *time.Time) {
	l := NewLifecycle(LifecycleOptions{
		AutosaveInterval: "@every 30s",
		SweepInterval:    "@every 10s",
		AbandonAfter:     120 * time.Second,
		ScrollThreshold:  100,
	})
	clock := storeNow
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestLifecycle_AbandonmentFiresOnce(t *testing.T) {
	l, clock := newTestLifecycle()
	var fired []string
	l.OnAbandon = func(key string) { fired = append(fired, key) }

	l.Track("webchat:abc")
	l.RecordMessage("webchat:abc")

	*clock = clock.Add(121 * time.Second)
	l.sweep()
	l.sweep()

	if len(fired) != 1 || fired[0] != "webchat:abc" {
		t.Errorf("fired = %v, want exactly one for webchat:abc", fired)
	}
}

func TestLifecycle_EachConditionSuppresses(t *testing.T) {
	cases := []struct {
		name  string
		setup func(l *Lifecycle, clock *time.Time)
	}{
		{"still active", func(l *Lifecycle, clock *time.Time) {
			l.RecordMessage("webchat:abc")
			*clock = clock.Add(60 * time.Second)
		}},
		{"scrolling", func(l *Lifecycle, clock *time.Time) {
			l.RecordMessage("webchat:abc")
			*clock = clock.Add(121 * time.Second)
			l.RecordScroll("webchat:abc", 150)
		}},
		{"no messages yet", func(l *Lifecycle, clock *time.Time) {
			*clock = clock.Add(121 * time.Second)
		}},
		{"completed", func(l *Lifecycle, clock *time.Time) {
			l.RecordMessage("webchat:abc")
			l.MarkCompleted("webchat:abc")
			*clock = clock.Add(121 * time.Second)
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l, clock := newTestLifecycle()
			fired := false
			l.OnAbandon = func(string) { fired = true }

			l.Track("webchat:abc")
			c.setup(l, clock)
			l.sweep()

			if fired {
				t.Error("abandonment fired despite suppressing condition")
			}
		})
	}
}

func TestLifecycle_ScrollAccumulatesBelowThreshold(t *testing.T) {
	l, clock := newTestLifecycle()
	fired := false
	l.OnAbandon = func(string) { fired = true }

	l.Track("webchat:abc")
	l.RecordMessage("webchat:abc")
	*clock = clock.Add(121 * time.Second)
	l.RecordScroll("webchat:abc", 40)
	l.RecordScroll("webchat:abc", -40) // magnitude counts, direction doesn't

	l.sweep()
	if !fired {
		t.Error("80px of scrolling should not suppress abandonment")
	}
}

func TestLifecycle_ActivityRearms(t *testing.T) {
	l, clock := newTestLifecycle()
	var count int
	l.OnAbandon = func(string) { count++ }

	l.Track("webchat:abc")
	l.RecordMessage("webchat:abc")
	*clock = clock.Add(121 * time.Second)
	l.sweep()

	// Visitor comes back, then goes quiet again.
	l.RecordActivity("webchat:abc")
	*clock = clock.Add(121 * time.Second)
	l.sweep()

	if count != 2 {
		t.Errorf("count = %d, want 2 (one per lull)", count)
	}
}

func TestLifecycle_ForgetCancels(t *testing.T) {
	l, clock := newTestLifecycle()
	fired := false
	l.OnAbandon = func(string) { fired = true }

	l.Track("webchat:abc")
	l.RecordMessage("webchat:abc")
	l.Forget("webchat:abc")
	*clock = clock.Add(121 * time.Second)
	l.sweep()

	if fired {
		t.Error("abandonment fired for a forgotten session")
	}
}

func TestLifecycle_AutosaveCallback(t *testing.T) {
	l, _ := newTestLifecycle()
	called := false
	l.OnAutosave = func() { called = true }
	l.autosave()
	if !called {
		t.Error("autosave callback not invoked")
	}
}
