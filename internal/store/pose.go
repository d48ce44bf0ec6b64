package store

import (
	"context"
	"database/sql"

	"github.com/blockloop/scan"

	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

const poseRowSelect = `SELECT f.frame_id, f.kick_id, f.video_id, f.frame_no,
	p.landmark_name, p.x, p.y, p.z, p.visibility
	FROM pose_features p
	JOIN frames f ON f.frame_id = p.frame_id`

// PoseRepository provides access to detected landmarks.
type PoseRepository struct {
	db *sql.DB
}

// Poses returns the pose repository for this store.
func (s *Store) Poses() *PoseRepository {
	return &PoseRepository{db: s.db}
}

// ReplaceFrame stores the landmarks detected in one frame, replacing any
// earlier detection of the same frame.
func (r *PoseRepository) ReplaceFrame(ctx context.Context, frameID int64, rows []pose.Row) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pose_features WHERE frame_id = ?`, frameID); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO pose_features (frame_id, landmark_name, x, y, z, visibility) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, frameID, row.LandmarkName, row.X, row.Y, row.Z, row.Visibility); err != nil {
				return err
			}
		}
		return nil
	})
}

// RowsForKick returns every landmark row of a kick ordered by frame number.
func (r *PoseRepository) RowsForKick(ctx context.Context, kickID int64) ([]pose.Row, error) {
	return r.query(ctx, poseRowSelect+` WHERE f.kick_id = ? ORDER BY f.frame_no, p.feature_id`, kickID)
}

// LabeledRows returns the landmark rows of every labeled kick, the training
// corpus input.
func (r *PoseRepository) LabeledRows(ctx context.Context) ([]pose.Row, error) {
	return r.query(ctx, poseRowSelect+`
		JOIN kicks k ON k.kick_id = f.kick_id
		WHERE k.kick_direction IS NOT NULL
		ORDER BY f.kick_id, f.frame_no, p.feature_id`)
}

// LandmarkNames counts stored rows per raw landmark name.
func (r *PoseRepository) LandmarkNames(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT landmark_name, COUNT(*) FROM pose_features GROUP BY landmark_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}

func (r *PoseRepository) query(ctx context.Context, q string, args ...any) ([]pose.Row, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pose.Row
	if err := scan.RowsStrict(&out, rows); err != nil {
		return nil, err
	}
	return out, nil
}
