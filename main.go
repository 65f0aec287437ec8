package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/llehouerou/airwaves/internal/app"
	"github.com/llehouerou/airwaves/internal/config"
	"github.com/llehouerou/airwaves/internal/engine/stream"
	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/guard"
	"github.com/llehouerou/airwaves/internal/icons"
	"github.com/llehouerou/airwaves/internal/logging"
	"github.com/llehouerou/airwaves/internal/mpris"
	"github.com/llehouerou/airwaves/internal/notify"
	"github.com/llehouerou/airwaves/internal/report"
	"github.com/llehouerou/airwaves/internal/session"
	"github.com/llehouerou/airwaves/internal/state"
	"github.com/llehouerou/airwaves/internal/stderr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}

	log, logFile, err := logging.Open(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer logFile.Close()

	// The audio backend writes to fd 2; keep it off the terminal.
	var stderrLines <-chan string
	capture, err := stderr.Start(log)
	if err != nil {
		log.Warn().Err(err).Msg("stderr capture unavailable")
	} else {
		defer capture.Stop()
		stderrLines = capture.Lines()
	}

	icons.Init(cfg.Icons)

	cat, err := cfg.Catalog()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}

	failures := report.NewChannel(0)
	rep := report.Multi(report.Log(log), notifier(cfg, log), failures)

	var st state.Interface
	if mgr, err := state.Open(); err != nil {
		log.Warn().Err(err).Msg("state unavailable, running without persistence")
	} else {
		mgr.OnSaveError(func(err error) {
			rep.Report(errmsg.OpStateSave, errmsg.Describe(err))
		})
		st = mgr
		defer closeLogged(log, "state", mgr)
	}

	eng := stream.New(stream.Config{
		UserAgent:      cfg.HTTP.UserAgent,
		ConnectTimeout: cfg.HTTP.ConnectTimeout,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		Volume:         cfg.VolumeLevel(),
		Logger:         log.With().Str("component", "stream").Logger(),
	})

	ctrl := session.New(eng, cat, rep, session.WithLogger(log.With().Str("component", "session").Logger()))
	// Runs before the state manager closes so a final selection save is flushed.
	defer closeLogged(log, "session", ctrl)

	if adapter, err := mpris.New(ctrl, cat, eng, savedStation(st), rep); err != nil {
		log.Warn().Err(err).Msg("mpris unavailable")
	} else {
		defer closeLogged(log, "mpris", adapter)
	}

	model := app.New(app.Deps{
		Controller: ctrl,
		Catalog:    cat,
		Volume:     eng,
		State:      st,
		Reporter:   rep,
		Failures:   failures.C(),
		Stderr:     stderrLines,
		Logger:     log,
	})

	log.Info().Int("stations", cat.Len()).Msg("starting")
	p := tea.NewProgram(guard.Wrap(model, rep), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	return nil
}

// notifier returns the desktop notifier, or one that drops everything when
// notifications are disabled or no session bus is available.
func notifier(cfg *config.Config, log zerolog.Logger) report.Reporter {
	if !cfg.NotificationsEnabled() {
		return nil
	}
	n, err := notify.New()
	if err != nil {
		log.Debug().Err(err).Msg("desktop notifications unavailable")
		return nil
	}
	return report.Notify(notify.Replacing(n), log)
}

// savedStation is the station selected when the program last exited.
func savedStation(st state.Interface) int {
	if st == nil {
		return 0
	}
	ui, err := st.GetUI()
	if err != nil || ui == nil {
		return 0
	}
	return ui.StationIndex
}

func closeLogged(log zerolog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Str("component", what).Msg("close")
	}
}
