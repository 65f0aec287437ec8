//go:build linux

package notify

import (
	"html"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"

	capBodyMarkup = "body-markup"
)

// caller is the part of dbus.BusObject the notifier uses.
type caller interface {
	Call(method string, flags dbus.Flags, args ...any) *dbus.Call
}

// busNotifier talks to the freedesktop notification server.
type busNotifier struct {
	obj caller

	capsOnce sync.Once
	markup   bool
}

// New connects to the session bus. Without a session bus it returns a
// notifier that drops everything, so callers never need to special-case
// headless runs.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return stubNotifier{}, nil //nolint:nilerr // headless: notifications are optional
	}
	return newBusNotifier(conn.Object(dbusNotifyDest, dbusNotifyPath)), nil
}

func newBusNotifier(obj caller) *busNotifier {
	return &busNotifier{obj: obj}
}

// supportsMarkup asks the server once whether bodies are parsed as markup.
// Failure messages carry raw URLs and error text, which must be escaped
// when they are.
func (n *busNotifier) supportsMarkup() bool {
	n.capsOnce.Do(func() {
		var caps []string
		call := n.obj.Call(dbusNotifyInterface+".GetCapabilities", 0)
		if call.Err == nil && call.Store(&caps) == nil {
			n.markup = slices.Contains(caps, capBodyMarkup)
		}
	})
	return n.markup
}

func (n *busNotifier) Notify(notif Notification) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(notif.Urgency)),
		"desktop-entry": dbus.MakeVariant(desktopEntry),
	}
	if notif.Category != "" {
		hints["category"] = dbus.MakeVariant(notif.Category)
	}
	body := notif.Body
	if n.supportsMarkup() {
		body = html.EscapeString(body)
	}

	// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout) -> id
	call := n.obj.Call(
		dbusNotifyInterface+".Notify",
		0,
		appLabel,
		notif.ReplacesID,
		notif.Icon,
		notif.Title,
		body,
		[]string{},
		hints,
		notif.Timeout,
	)
	if call.Err != nil {
		return 0, call.Err
	}
	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (n *busNotifier) Close(id uint32) error {
	return n.obj.Call(dbusNotifyInterface+".CloseNotification", 0, id).Err
}
