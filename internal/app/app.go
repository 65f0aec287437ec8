// internal/app/app.go
package app

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/llehouerou/airwaves/internal/catalog"
	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/guard"
	"github.com/llehouerou/airwaves/internal/keymap"
	"github.com/llehouerou/airwaves/internal/report"
	"github.com/llehouerou/airwaves/internal/session"
	"github.com/llehouerou/airwaves/internal/state"
	"github.com/llehouerou/airwaves/internal/ui/helpbindings"
	"github.com/llehouerou/airwaves/internal/ui/stationlist"
	"github.com/llehouerou/airwaves/internal/ui/styles"
)

const (
	volumeStep   = 0.05
	historyLimit = 10
)

// Volume is the output level control, 0.0 to 1.0.
type Volume interface {
	SetVolume(level float64)
	Volume() float64
}

// Deps are the collaborators the shell drives. Controller, Catalog and
// Volume are required.
type Deps struct {
	Controller *session.Controller
	Catalog    *catalog.Catalog
	Volume     Volume
	State      state.Interface       // optional
	Reporter   report.Reporter       // receives failures raised by key handling
	Failures   <-chan report.Failure // failures to show, usually a report.Channel
	Stderr     <-chan string         // captured native library output
	Logger     zerolog.Logger
}

// overlay is the popup drawn over the main view.
type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayHistory
	overlayFailure
)

// Model is the root application model.
type Model struct {
	ctrl    *session.Controller
	catalog *catalog.Catalog
	volume  Volume
	state   state.Interface
	rep     report.Reporter
	log     zerolog.Logger

	sub      *session.Subscription
	failures <-chan report.Failure
	stderr   <-chan string

	keys     *keymap.Resolver
	stations stationlist.Model
	spinner  spinner.Model
	help     helpbindings.Model

	snapshot session.Snapshot
	overlay  overlay
	failure  report.Failure
	history  []state.Play
	notice   string // last captured stderr line

	width, height int
}

// New creates the shell and restores the saved selection and volume.
func New(d Deps) Model {
	rep := d.Reporter
	if rep == nil {
		rep = report.Discard
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.T().S().Warning

	m := Model{
		ctrl:     d.Controller,
		catalog:  d.Catalog,
		volume:   d.Volume,
		state:    d.State,
		rep:      rep,
		log:      d.Logger,
		sub:      d.Controller.Subscribe(),
		failures: d.Failures,
		stderr:   d.Stderr,
		keys:     keymap.Default(),
		stations: stationlist.New(d.Catalog.Names()),
		spinner:  sp,
		help:     helpbindings.New(),
	}
	m.restore()
	m.snapshot = m.ctrl.Snapshot()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.watchSession(),
		m.watchFailures(),
		m.watchStderr(),
		m.spinner.Tick,
		tickCmd(),
	)
}

// restore applies the saved UI state. A saved URI wins over the saved index
// so the selection follows a station that moved in the catalog.
func (m *Model) restore() {
	if m.state == nil {
		return
	}
	ui, err := m.state.GetUI()
	if err != nil {
		m.log.Warn().Err(err).Msg("load ui state")
		guard.Report(m.rep, errmsg.OpStateLoad, errmsg.Describe(err))
		return
	}
	if ui == nil {
		return
	}
	index := ui.StationIndex
	for i, src := range m.catalog.All() {
		if src.URI == ui.StationURI {
			index = i
			break
		}
	}
	m.stations.Select(m.catalog.Clamp(index))
	if ui.Volume >= 0 && ui.Volume <= 1 {
		m.volume.SetVolume(ui.Volume)
	}
}

// saveUI persists the selection and volume. Saves are debounced by the
// state manager.
func (m Model) saveUI() {
	if m.state == nil {
		return
	}
	ui := state.UIState{
		StationIndex: m.stations.Selected(),
		Volume:       m.volume.Volume(),
	}
	if src, err := m.catalog.At(ui.StationIndex); err == nil {
		ui.StationURI = src.URI
	}
	m.state.SaveUI(ui)
}
