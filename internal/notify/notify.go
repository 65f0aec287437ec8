// Package notify raises desktop notifications over D-Bus.
package notify

import "sync"

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

const (
	appName      = "airwaves"
	appLabel     = "Airwaves"
	desktopEntry = appName
)

// CategoryNetworkError marks failures to reach a stream.
const CategoryNetworkError = "network.error"

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional, supports basic markup)
	Icon       string  // Path to image file or icon name (optional)
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
	Category   string  // freedesktop category hint, e.g. CategoryNetworkError
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are disabled or unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// replacing keeps a single notification on screen: each one replaces the
// previous.
type replacing struct {
	next Notifier

	mu   sync.Mutex
	last uint32
}

// Replacing wraps n so that successive notifications replace each other
// instead of stacking up.
func Replacing(n Notifier) Notifier {
	return &replacing{next: n}
}

func (r *replacing) Notify(n Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ReplacesID == 0 {
		n.ReplacesID = r.last
	}
	id, err := r.next.Notify(n)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		r.last = id
	}
	return id, nil
}

func (r *replacing) Close(id uint32) error {
	r.mu.Lock()
	if id == r.last {
		r.last = 0
	}
	r.mu.Unlock()
	return r.next.Close(id)
}

// Disabled returns a notifier that drops everything.
func Disabled() Notifier {
	return stubNotifier{}
}

type stubNotifier struct{}

func (stubNotifier) Notify(Notification) (uint32, error) { return 0, nil }

func (stubNotifier) Close(uint32) error { return nil }
