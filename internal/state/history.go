package state

import (
	"context"
	"database/sql"
	"time"

	dbutil "github.com/llehouerou/airwaves/internal/db"
)

const (
	maxHistory   = 100 // rows kept in play_history
	writeTimeout = 5 * time.Second
)

// Play is one stream that reached playback.
type Play struct {
	StationName string
	StationURI  string
	Title       string // in-band title when the play was recorded, if any
	StartedAt   time.Time
}

// RecordPlay appends play and trims the history to its newest entries.
func (m *Manager) RecordPlay(play Play) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return recordPlay(ctx, m.db, play, maxHistory)
}

// RecentPlays returns up to limit plays, newest first.
func (m *Manager) RecentPlays(limit int) ([]Play, error) {
	return recentPlays(m.db, limit)
}

func recordPlay(ctx context.Context, db *sql.DB, play Play, keep int) error {
	if play.StartedAt.IsZero() {
		play.StartedAt = time.Now()
	}
	var title any
	if play.Title != "" {
		title = play.Title
	}
	return dbutil.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO play_history (station_name, station_uri, title, started_at)
			VALUES (?, ?, ?, ?)
		`, play.StationName, play.StationURI, title, play.StartedAt.UnixMilli())
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM play_history WHERE id NOT IN (
				SELECT id FROM play_history ORDER BY started_at DESC, id DESC LIMIT ?
			)
		`, keep)
		return err
	})
}

func recentPlays(db *sql.DB, limit int) ([]Play, error) {
	rows, err := db.Query(`
		SELECT station_name, station_uri, title, started_at
		FROM play_history
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var (
			p       Play
			title   sql.NullString
			started int64
		)
		if err := rows.Scan(&p.StationName, &p.StationURI, &title, &started); err != nil {
			return nil, err
		}
		p.Title = dbutil.NullStringValue(title)
		p.StartedAt = time.UnixMilli(started)
		plays = append(plays, p)
	}
	return plays, rows.Err()
}
