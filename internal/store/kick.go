package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/blockloop/scan"
)

// Kick represents a penalty kick within a video. Direction is nil until the
// kick is labeled.
type Kick struct {
	ID         int64     `db:"kick_id"`
	VideoID    int64     `db:"video_id"`
	Timestamp  float64   `db:"timestamp"`
	Direction  *int      `db:"kick_direction"`
	PlayerName string    `db:"player_name"`
	PlayerTeam string    `db:"player_team"`
	GoalScored *bool     `db:"goal_scored"`
	CreatedAt  time.Time `db:"created_at"`
}

const kickSelect = `SELECT kick_id, video_id, timestamp, kick_direction, player_name, player_team, goal_scored, created_at FROM kicks`

var kickColumns = []string{"video_id", "timestamp", "kick_direction", "player_name", "player_team", "goal_scored", "created_at"}

// KickRepository provides CRUD operations for kicks.
type KickRepository struct {
	db *sql.DB
}

// Kicks returns the kick repository for this store.
func (s *Store) Kicks() *KickRepository {
	return &KickRepository{db: s.db}
}

// Create inserts a new kick and sets its ID.
func (r *KickRepository) Create(ctx context.Context, k *Kick) error {
	k.CreatedAt = time.Now().UTC()

	vals, err := scan.Values(kickColumns, k)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO kicks (video_id, timestamp, kick_direction, player_name, player_team, goal_scored, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		vals...,
	)
	if err != nil {
		return uniqueViolation(err)
	}
	k.ID, err = res.LastInsertId()
	return err
}

// GetByID retrieves a kick by its ID.
func (r *KickRepository) GetByID(ctx context.Context, id int64) (*Kick, error) {
	return r.get(ctx, kickSelect+` WHERE kick_id = ?`, id)
}

// GetForSession retrieves a kick by its ID, returning ErrNotFound when its
// video belongs to another session.
func (r *KickRepository) GetForSession(ctx context.Context, id int64, sessionID string) (*Kick, error) {
	return r.get(ctx,
		kickSelect+` WHERE kick_id = ? AND video_id IN (SELECT video_id FROM videos WHERE session_id = ?)`,
		id, sessionID)
}

func (r *KickRepository) get(ctx context.Context, q string, args ...any) (*Kick, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var k Kick
	if err := scan.RowStrict(&k, rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &k, nil
}

// ListByVideo returns the kicks of a video ordered by timestamp.
func (r *KickRepository) ListByVideo(ctx context.Context, videoID int64) ([]Kick, error) {
	rows, err := r.db.QueryContext(ctx, kickSelect+` WHERE video_id = ? ORDER BY timestamp`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kicks []Kick
	if err := scan.RowsStrict(&kicks, rows); err != nil {
		return nil, err
	}
	return kicks, nil
}

// SetDirection labels a kick with its quadrant.
func (r *KickRepository) SetDirection(ctx context.Context, id int64, direction int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE kicks SET kick_direction = ? WHERE kick_id = ?`, direction, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Directions returns the label of every labeled kick keyed by kick ID.
func (r *KickRepository) Directions(ctx context.Context) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kick_id, kick_direction FROM kicks WHERE kick_direction IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var dir int
		if err := rows.Scan(&id, &dir); err != nil {
			return nil, err
		}
		out[id] = dir
	}
	return out, rows.Err()
}

// Delete removes a kick along with its frames and landmarks.
func (r *KickRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM kicks WHERE kick_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
