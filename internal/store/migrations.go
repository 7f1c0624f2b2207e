package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per run of the pipeline
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			calibration_frames INTEGER NOT NULL,
			threshold REAL NOT NULL,
			weight REAL NOT NULL,
			frames INTEGER NOT NULL DEFAULT 0
		)`,

		// Count changes observed while detecting
		`CREATE TABLE IF NOT EXISTS counts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			frame INTEGER NOT NULL,
			hand INTEGER NOT NULL,
			fingers INTEGER NOT NULL CHECK(fingers >= 0),
			recorded_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_counts_session_id ON counts(session_id, frame)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
