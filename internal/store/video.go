package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/blockloop/scan"
)

// Video represents an uploaded kick video.
type Video struct {
	ID           int64     `db:"video_id"`
	SessionID    string    `db:"session_id"`
	OriginalName string    `db:"original_name"`
	Path         string    `db:"path"`
	CreatedAt    time.Time `db:"created_at"`
}

const videoSelect = `SELECT video_id, session_id, original_name, path, created_at FROM videos`

var videoColumns = []string{"session_id", "original_name", "path", "created_at"}

// VideoRepository provides CRUD operations for videos.
type VideoRepository struct {
	db *sql.DB
}

// Videos returns the video repository for this store.
func (s *Store) Videos() *VideoRepository {
	return &VideoRepository{db: s.db}
}

// Create inserts a new video and sets its ID.
func (r *VideoRepository) Create(ctx context.Context, v *Video) error {
	v.CreatedAt = time.Now().UTC()

	vals, err := scan.Values(videoColumns, v)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO videos (session_id, original_name, path, created_at) VALUES (?, ?, ?, ?)`,
		vals...,
	)
	if err != nil {
		return uniqueViolation(err)
	}
	v.ID, err = res.LastInsertId()
	return err
}

// GetByID retrieves a video by its ID.
func (r *VideoRepository) GetByID(ctx context.Context, id int64) (*Video, error) {
	return r.get(ctx, videoSelect+` WHERE video_id = ?`, id)
}

// GetForSession retrieves a video by its ID, returning ErrNotFound when it
// was uploaded in another session.
func (r *VideoRepository) GetForSession(ctx context.Context, id int64, sessionID string) (*Video, error) {
	return r.get(ctx, videoSelect+` WHERE video_id = ? AND session_id = ?`, id, sessionID)
}

func (r *VideoRepository) get(ctx context.Context, q string, args ...any) (*Video, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var v Video
	if err := scan.RowStrict(&v, rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// ListBySession returns the videos uploaded in a session, oldest first.
func (r *VideoRepository) ListBySession(ctx context.Context, sessionID string) ([]Video, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT video_id, session_id, original_name, path, created_at
		 FROM videos WHERE session_id = ? ORDER BY video_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []Video
	if err := scan.RowsStrict(&videos, rows); err != nil {
		return nil, err
	}
	return videos, nil
}

// DeleteSession removes every video of a session along with its kicks,
// frames and landmarks. It returns the removed videos so callers can clean
// up files.
func (r *VideoRepository) DeleteSession(ctx context.Context, sessionID string) ([]Video, error) {
	videos, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE session_id = ?`, sessionID); err != nil {
		return nil, err
	}
	return videos, nil
}
