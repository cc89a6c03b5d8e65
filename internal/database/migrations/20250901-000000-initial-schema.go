package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250901-000000",
		Description: "initial schema: clubs, users, boats, bookings, scrape_jobs",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS clubs (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				subdomain TEXT NOT NULL UNIQUE,
				custom_domain TEXT UNIQUE,
				status TEXT NOT NULL DEFAULT 'active',
				timezone TEXT NOT NULL DEFAULT 'Local',
				data_source_type TEXT NOT NULL DEFAULT 'revsport',
				data_source_config TEXT NOT NULL DEFAULT '{}',
				branding TEXT NOT NULL DEFAULT '{}',
				display_config TEXT NOT NULL DEFAULT '{}',
				tv_display_config TEXT NOT NULL DEFAULT '{}',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				club_id TEXT NOT NULL REFERENCES clubs(id),
				email TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				full_name TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL DEFAULT 'club_admin',
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (club_id, email)
			)`,
			`CREATE TABLE IF NOT EXISTS boats (
				id TEXT PRIMARY KEY,
				club_id TEXT NOT NULL REFERENCES clubs(id),
				source_id TEXT NOT NULL,
				name TEXT NOT NULL,
				boat_type TEXT NOT NULL DEFAULT '',
				boat_category TEXT NOT NULL DEFAULT 'race',
				classification TEXT NOT NULL DEFAULT '',
				weight_kg INTEGER NOT NULL DEFAULT 0,
				is_damaged INTEGER NOT NULL DEFAULT 0,
				damaged_reason TEXT NOT NULL DEFAULT '',
				metadata TEXT NOT NULL DEFAULT '{}',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE (club_id, source_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_boats_club ON boats(club_id)`,
			`CREATE TABLE IF NOT EXISTS bookings (
				id TEXT PRIMARY KEY,
				club_id TEXT NOT NULL REFERENCES clubs(id),
				boat_id TEXT NOT NULL REFERENCES boats(id),
				booking_date TEXT NOT NULL,
				session_name TEXT,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				member_name TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				UNIQUE (boat_id, booking_date, start_time)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_club_date ON bookings(club_id, booking_date)`,
			`CREATE TABLE IF NOT EXISTS scrape_jobs (
				id TEXT PRIMARY KEY,
				club_id TEXT NOT NULL REFERENCES clubs(id),
				status TEXT NOT NULL DEFAULT 'running',
				started_at TEXT NOT NULL,
				completed_at TEXT,
				duration_ms INTEGER NOT NULL DEFAULT 0,
				boats_count INTEGER NOT NULL DEFAULT 0,
				bookings_count INTEGER NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_scrape_jobs_club_started ON scrape_jobs(club_id, started_at DESC)`,
		},
	})
}
