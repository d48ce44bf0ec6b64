package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Videos table - one uploaded video per row, scoped to a browser session
		`CREATE TABLE IF NOT EXISTS videos (
			video_id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL DEFAULT '',
			original_name TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			UNIQUE(session_id, original_name)
		)`,

		// Kicks table - one penalty kick per row, identified by its mid-swing timestamp
		`CREATE TABLE IF NOT EXISTS kicks (
			kick_id INTEGER PRIMARY KEY AUTOINCREMENT,
			video_id INTEGER NOT NULL REFERENCES videos(video_id) ON DELETE CASCADE,
			timestamp REAL NOT NULL,
			kick_direction INTEGER CHECK(kick_direction BETWEEN 1 AND 6),
			player_name TEXT NOT NULL DEFAULT '',
			player_team TEXT NOT NULL DEFAULT '',
			goal_scored INTEGER,
			created_at DATETIME NOT NULL,
			UNIQUE(video_id, timestamp)
		)`,

		// Frames table - extracted still images around the mid-swing moment
		`CREATE TABLE IF NOT EXISTS frames (
			frame_id INTEGER PRIMARY KEY AUTOINCREMENT,
			kick_id INTEGER NOT NULL REFERENCES kicks(kick_id) ON DELETE CASCADE,
			video_id INTEGER NOT NULL REFERENCES videos(video_id) ON DELETE CASCADE,
			frame_no INTEGER NOT NULL,
			frame_path TEXT NOT NULL,
			UNIQUE(kick_id, frame_no)
		)`,

		// Pose features table - raw detector landmarks per frame
		`CREATE TABLE IF NOT EXISTS pose_features (
			feature_id INTEGER PRIMARY KEY AUTOINCREMENT,
			frame_id INTEGER NOT NULL REFERENCES frames(frame_id) ON DELETE CASCADE,
			landmark_name TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			visibility REAL NOT NULL DEFAULT 0
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_videos_session_id ON videos(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_kicks_video_id ON kicks(video_id)`,
		`CREATE INDEX IF NOT EXISTS idx_frames_kick_id ON frames(kick_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pose_features_frame_id ON pose_features(frame_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
