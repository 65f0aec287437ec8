// Package state persists UI preferences and listening history in SQLite.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "airwaves"
	dbFileName   = "airwaves.db"
	saveDebounce = 500 * time.Millisecond
)

type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *UIState
	onError   func(error)
}

// Open opens the database under $XDG_DATA_HOME.
func Open() (*Manager, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens the database at dbPath, creating it if needed.
func OpenPath(dbPath string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{db: db, onError: func(error) {}}, nil
}

// OnSaveError sets the callback for failed background saves.
func (m *Manager) OnSaveError(fn func(error)) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	if fn == nil {
		fn = func(error) {}
	}
	m.onError = fn
}

func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	// Flush pending state
	if pending != nil {
		_ = saveUI(m.db, *pending, time.Now())
	}

	return m.db.Close()
}

// GetUI returns the saved UI state, or nil if none was saved.
func (m *Manager) GetUI() (*UIState, error) {
	return getUI(m.db)
}

// SaveUI stores state after a short quiet period. Only the latest state of a
// burst is written.
func (m *Manager) SaveUI(state UIState) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &state

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		onError := m.onError
		m.saveMu.Unlock()

		if pending != nil {
			if err := saveUI(m.db, *pending, time.Now()); err != nil {
				onError(err)
			}
		}
	})
}

func getDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
