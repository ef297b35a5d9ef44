package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity of a transient notification.
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
	SeverityCrit Severity = "crit"
)

// Notification is an ephemeral toast-style message. It is UI affordance,
// not business state: it self-removes after the display TTL and carries
// no meaning once dismissed.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Center holds the currently visible notifications for the session.
// Every state mutation pushes exactly one notification; failures push a
// critical one.
type Center struct {
	mu    sync.Mutex
	items []Notification

	ttl   time.Duration
	clock func() time.Time

	// after schedules the auto-dismiss callback; injectable for tests.
	after func(d time.Duration, fn func()) *time.Timer
}

func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = 4 * time.Second
	}
	return &Center{
		ttl:   ttl,
		clock: time.Now,
		after: time.AfterFunc,
	}
}

// Push adds a notification and schedules its dismissal. The dismissal
// timer is a no-op if the notification was already cleared.
func (c *Center) Push(message string, severity Severity) Notification {
	if severity == "" {
		severity = SeverityInfo
	}
	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		CreatedAt: c.clock().UTC(),
	}

	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()

	c.after(c.ttl, func() { c.Dismiss(n.ID) })
	return n
}

// Info pushes an informational notification.
func (c *Center) Info(message string) Notification { return c.Push(message, SeverityInfo) }

// Crit pushes a critical notification (denied checkout, invalid login).
func (c *Center) Crit(message string) Notification { return c.Push(message, SeverityCrit) }

// Dismiss removes a notification by id; removing an already-gone entry
// is a no-op.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// List returns the visible notifications, newest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	for i, n := range c.items {
		out[len(c.items)-1-i] = n
	}
	return out
}

// Clear drops all visible notifications. Pending dismissal timers then
// fire against an empty list, which is harmless.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
