package persist

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database. Each Insert runs
// in its own transaction; cross-batch atomicity is explicitly not provided,
// which is what the writer's batch marker exists to compensate for.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Table allowlist. Insert refuses anything else so a corrupted batch
// definition cannot write into the marker table.
var allowedTables = map[string][]string{
	"stories":    {"id", "title", "premise", "summary", "genre", "tone", "themes"},
	"characters": {"id", "story_id", "name", "is_main", "core_trait", "internal_flaw", "external_goal", "traits", "values", "backstory", "appearance", "voice"},
	"settings":   {"id", "story_id", "name", "description", "sights", "sounds", "smells", "textures", "tastes", "amplification", "mood"},
	"parts":      {"id", "story_id", "title", "summary", "order_index"},
	"part_arcs":  {"id", "part_id", "character_id", "internal_adversity", "external_adversity", "virtue", "consequence", "new_adversity", "estimated_chapters", "order_index"},
	"chapters":   {"id", "part_id", "title", "summary", "character_id", "focus_characters", "arc_position", "adversity_type", "virtue", "connects_previous", "creates_next", "order_index"},
	"scenes":     {"id", "chapter_id", "title", "summary", "cycle_phase", "emotional_beat", "setting_id", "focus_characters", "sensory_anchors", "dialogue_balance", "suggested_length", "content", "order_index"},
	"seeds":      {"id", "story_id", "slug", "description", "expected_payoff", "planted_chapter", "resolved", "resolved_chapter"},
}

const schema = `
CREATE TABLE IF NOT EXISTS stories (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	premise TEXT,
	summary TEXT,
	genre TEXT,
	tone TEXT,
	themes TEXT
);
CREATE TABLE IF NOT EXISTS characters (
	id TEXT PRIMARY KEY,
	story_id TEXT NOT NULL REFERENCES stories(id),
	name TEXT NOT NULL,
	is_main INTEGER NOT NULL DEFAULT 0,
	core_trait TEXT,
	internal_flaw TEXT,
	external_goal TEXT,
	traits TEXT,
	"values" TEXT,
	backstory TEXT,
	appearance TEXT,
	voice TEXT
);
CREATE TABLE IF NOT EXISTS settings (
	id TEXT PRIMARY KEY,
	story_id TEXT NOT NULL REFERENCES stories(id),
	name TEXT NOT NULL,
	description TEXT,
	sights TEXT,
	sounds TEXT,
	smells TEXT,
	textures TEXT,
	tastes TEXT,
	amplification TEXT,
	mood TEXT
);
CREATE TABLE IF NOT EXISTS parts (
	id TEXT PRIMARY KEY,
	story_id TEXT NOT NULL REFERENCES stories(id),
	title TEXT NOT NULL,
	summary TEXT,
	order_index INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS part_arcs (
	id TEXT PRIMARY KEY,
	part_id TEXT NOT NULL REFERENCES parts(id),
	character_id TEXT,
	internal_adversity TEXT,
	external_adversity TEXT,
	virtue TEXT,
	consequence TEXT,
	new_adversity TEXT,
	estimated_chapters INTEGER NOT NULL,
	order_index INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chapters (
	id TEXT PRIMARY KEY,
	part_id TEXT NOT NULL REFERENCES parts(id),
	title TEXT NOT NULL,
	summary TEXT,
	character_id TEXT,
	focus_characters TEXT,
	arc_position TEXT,
	adversity_type TEXT,
	virtue TEXT,
	connects_previous TEXT,
	creates_next TEXT,
	order_index INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scenes (
	id TEXT PRIMARY KEY,
	chapter_id TEXT NOT NULL REFERENCES chapters(id),
	title TEXT NOT NULL,
	summary TEXT,
	cycle_phase TEXT,
	emotional_beat TEXT,
	setting_id TEXT,
	focus_characters TEXT,
	sensory_anchors TEXT,
	dialogue_balance TEXT,
	suggested_length TEXT,
	content TEXT,
	order_index INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS seeds (
	id TEXT PRIMARY KEY,
	story_id TEXT NOT NULL REFERENCES stories(id),
	slug TEXT NOT NULL,
	description TEXT,
	expected_payoff TEXT,
	planted_chapter INTEGER NOT NULL,
	resolved INTEGER NOT NULL DEFAULT 0,
	resolved_chapter INTEGER
);
CREATE TABLE IF NOT EXISTS run_batches (
	run_id TEXT PRIMARY KEY,
	last_batch INTEGER NOT NULL
);
`

// OpenSQLite opens (and migrates) a SQLite store at path. Use ":memory:"
// for an ephemeral database.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger.With("component", "sqlite")}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert writes one batch of records in a single transaction. INSERT OR
// IGNORE keeps a resumed commit from tripping over rows a half-finished
// batch already wrote.
func (s *SQLiteStore) Insert(ctx context.Context, table string, records []Record) ([]string, error) {
	columns, ok := allowedTables[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	if len(records) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = `"` + col + `"`
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(records))
	for _, record := range records {
		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = record[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, fmt.Errorf("%w: inserting into %s: %v", ErrStoreUnavailable, table, err)
		}
		if id, ok := record["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.logger.Debug("batch inserted", "table", table, "rows", len(records))
	return ids, nil
}

// LastBatch reads the resume marker for a run.
func (s *SQLiteStore) LastBatch(ctx context.Context, runID string) (int, error) {
	var last int
	err := s.db.QueryRowContext(ctx, "SELECT last_batch FROM run_batches WHERE run_id = ?", runID).Scan(&last)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return last, nil
}

// SetLastBatch advances the resume marker for a run.
func (s *SQLiteStore) SetLastBatch(ctx context.Context, runID string, batch int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO run_batches (run_id, last_batch) VALUES (?, ?) ON CONFLICT(run_id) DO UPDATE SET last_batch = excluded.last_batch",
		runID, batch)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
