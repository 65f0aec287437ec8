package state

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/airwaves/internal/db"
)

// UIState is what the shell restores on startup.
type UIState struct {
	StationIndex int
	StationURI   string // used to find the station again if the catalog changed
	Volume       float64
}

func getUI(db *sql.DB) (*UIState, error) {
	var (
		state UIState
		uri   sql.NullString
	)
	err := db.QueryRow(`
		SELECT station_index, station_uri, volume FROM ui_state WHERE id = 1
	`).Scan(&state.StationIndex, &uri, &state.Volume)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no saved state is not an error
	}
	if err != nil {
		return nil, err
	}
	state.StationURI = dbutil.NullStringValue(uri)
	return &state, nil
}

func saveUI(db *sql.DB, state UIState, now time.Time) error {
	var uri any
	if state.StationURI != "" {
		uri = state.StationURI
	}
	_, err := db.Exec(`
		INSERT INTO ui_state (id, station_index, station_uri, volume, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			station_index = excluded.station_index,
			station_uri = excluded.station_uri,
			volume = excluded.volume,
			updated_at = excluded.updated_at
	`, state.StationIndex, uri, state.Volume, now.Unix())
	return err
}
