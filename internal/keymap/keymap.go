package keymap

// Binding maps keys to an action within one context, with a description
// for help.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
	Context     string
}

// Binding contexts. A key may be bound once per context.
const (
	ContextInterrupt = "interrupt"
	ContextGlobal    = "global"
	ContextStations  = "stations"
	ContextPlayback  = "playback"
	ContextPopup     = "popup"
	ContextHistory   = "history"
	ContextHelp      = "help"
)

// Bindings contains all key bindings.
var Bindings = []Binding{
	{ActionQuit, []string{"ctrl+c"}, "Quit", ContextInterrupt},

	{ActionQuit, []string{"q"}, "Quit", ContextGlobal},
	{ActionHelp, []string{"?"}, "Show help", ContextGlobal},
	{ActionHistory, []string{"h"}, "Recently played", ContextGlobal},

	{ActionMoveUp, []string{"k", "up"}, "Previous station", ContextStations},
	{ActionMoveDown, []string{"j", "down"}, "Next station", ContextStations},
	{ActionJumpStart, []string{"g", "home"}, "First station", ContextStations},
	{ActionJumpEnd, []string{"G", "end"}, "Last station", ContextStations},

	{ActionToggle, []string{"enter", " "}, "Play/stop selected station", ContextPlayback},
	{ActionStop, []string{"s"}, "Stop", ContextPlayback},
	{ActionVolumeUp, []string{"+", "="}, "Volume up", ContextPlayback},
	{ActionVolumeDown, []string{"-"}, "Volume down", ContextPlayback},

	{ActionDismiss, []string{"esc", "enter", " ", "q"}, "Close popup", ContextPopup},
	{ActionDismiss, []string{"h"}, "Close history", ContextHistory},

	{ActionDismiss, []string{"?", "esc", "q"}, "Close help", ContextHelp},
	{ActionMoveUp, []string{"k", "up"}, "Scroll up", ContextHelp},
	{ActionMoveDown, []string{"j", "down"}, "Scroll down", ContextHelp},
}

// Mode is the part of the UI that has the keyboard.
type Mode int

const (
	ModeMain Mode = iota
	ModeHelp
	ModeFailure
	ModeHistory
)

// modeContexts lists the contexts each mode resolves keys in, first match
// wins. Modal popups never see the main view's bindings.
var modeContexts = map[Mode][]string{
	ModeMain:    {ContextInterrupt, ContextGlobal, ContextStations, ContextPlayback},
	ModeHelp:    {ContextInterrupt, ContextHelp},
	ModeFailure: {ContextInterrupt, ContextPopup},
	ModeHistory: {ContextInterrupt, ContextHistory, ContextPopup},
}

// ByContext returns key bindings filtered by context.
func ByContext(context string) []Binding {
	var result []Binding
	for _, kb := range Bindings {
		if kb.Context == context {
			result = append(result, kb)
		}
	}
	return result
}

// Contexts lists the binding contexts shown in help, in order.
func Contexts() []string {
	return []string{ContextGlobal, ContextInterrupt, ContextStations, ContextPlayback, ContextPopup}
}

// Default returns a resolver over Bindings.
func Default() *Resolver {
	return NewResolver(Bindings)
}
