package sqlite

// schema is the canonical table layout. CREATE TABLE IF NOT EXISTS throughout
// so re-running bootstrap against an existing database is a no-op; columns only
// ever evolve additively via the migrations in sqlite.go.
const schema = `
CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	difficulty TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	relevance_score INTEGER,
	relevance_details TEXT NOT NULL DEFAULT '',
	review_status TEXT NOT NULL DEFAULT '',
	improvement_suggestions TEXT NOT NULL DEFAULT '',
	duplicate_of INTEGER,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic);
CREATE INDEX IF NOT EXISTS idx_questions_review_status ON questions(review_status);

CREATE TABLE IF NOT EXISTS work_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_type TEXT NOT NULL,
	question_id INTEGER NOT NULL,
	action TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 2,
	status TEXT NOT NULL DEFAULT 'pending',
	reason TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL,
	assigned_to TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	processed_at TIMESTAMP,
	result TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_work_items_claim
	ON work_items(item_type, status, priority, created_at);
CREATE INDEX IF NOT EXISTS idx_work_items_question
	ON work_items(item_type, question_id, status);

CREATE TABLE IF NOT EXISTS bot_run_state (
	bot_name TEXT PRIMARY KEY,
	cursor_index INTEGER NOT NULL DEFAULT 0,
	last_run_at TIMESTAMP,
	processed INTEGER NOT NULL DEFAULT 0,
	created INTEGER NOT NULL DEFAULT 0,
	updated INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	bot_name TEXT NOT NULL,
	action TEXT NOT NULL,
	question_id INTEGER NOT NULL,
	before_snapshot TEXT NOT NULL DEFAULT '',
	after_snapshot TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_question ON audit_log(question_id);

CREATE TABLE IF NOT EXISTS run_stats (
	run_id TEXT PRIMARY KEY,
	bot_name TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	processed INTEGER NOT NULL DEFAULT 0,
	created INTEGER NOT NULL DEFAULT 0,
	updated INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_run_stats_bot ON run_stats(bot_name, started_at);
`
