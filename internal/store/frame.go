package store

import (
	"context"
	"database/sql"

	"github.com/blockloop/scan"
)

// Frame represents an extracted frame image of a kick.
type Frame struct {
	ID      int64  `db:"frame_id"`
	KickID  int64  `db:"kick_id"`
	VideoID int64  `db:"video_id"`
	FrameNo uint32 `db:"frame_no"`
	Path    string `db:"frame_path"`
}

// FrameRepository provides operations for extracted frames.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// CreateBatch inserts the frames of one kick in a single transaction and sets
// their IDs.
func (r *FrameRepository) CreateBatch(ctx context.Context, frames []Frame) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO frames (kick_id, video_id, frame_no, frame_path) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range frames {
			f := &frames[i]
			res, err := stmt.ExecContext(ctx, f.KickID, f.VideoID, f.FrameNo, f.Path)
			if err != nil {
				return err
			}
			if f.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByKick returns a kick's frames ordered by frame number.
func (r *FrameRepository) ListByKick(ctx context.Context, kickID int64) ([]Frame, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT frame_id, kick_id, video_id, frame_no, frame_path
		 FROM frames WHERE kick_id = ? ORDER BY frame_no`, kickID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	if err := scan.RowsStrict(&frames, rows); err != nil {
		return nil, err
	}
	return frames, nil
}
