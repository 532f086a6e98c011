package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	content      TEXT NOT NULL,
	type         TEXT NOT NULL,
	context      TEXT NOT NULL DEFAULT '',
	confidence   REAL NOT NULL DEFAULT 1.0,
	embedding_id TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id);
CREATE INDEX IF NOT EXISTS idx_memories_confidence ON memories(project_id, confidence);

CREATE TABLE IF NOT EXISTS observations (
	id             TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	session_id     TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL,
	title          TEXT NOT NULL,
	narrative      TEXT NOT NULL DEFAULT '',
	facts          TEXT NOT NULL DEFAULT '[]',
	concepts       TEXT NOT NULL DEFAULT '[]',
	files_modified TEXT NOT NULL DEFAULT '[]',
	files_read     TEXT NOT NULL DEFAULT '[]',
	confidence     REAL NOT NULL,
	embedding_id   TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_project ON observations(project_id);
CREATE INDEX IF NOT EXISTS idx_observations_confidence ON observations(project_id, confidence);
`

// Store persists memory and observation rows in SQLite.
//
// The structured store is authoritative for existence: the vector store
// holds a searchable twin, but "does this record exist" is always
// answered here.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if strings.HasPrefix(path, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("%w: resolving home directory: %v", ErrPersistence, err)
			}
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("%w: creating db directory: %v", ErrPersistence, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrPersistence, path, err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: applying schema: %v", ErrPersistence, err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateMemory inserts a memory row.
func (s *Store) CreateMemory(ctx context.Context, m *MemoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, project_id, content, type, context, confidence, embedding_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.Content, string(m.Type), m.Context, m.Confidence, m.EmbeddingID,
		m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: inserting memory %s: %v", ErrPersistence, m.ID, err)
	}
	return nil
}

// GetMemory fetches a memory row by id.
func (s *Store) GetMemory(ctx context.Context, id string) (*MemoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, content, type, context, confidence, embedding_id, created_at
		 FROM memories WHERE id = ?`, id)

	var m MemoryEntry
	var typ, createdAt string
	err := row.Scan(&m.ID, &m.ProjectID, &m.Content, &typ, &m.Context, &m.Confidence, &m.EmbeddingID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading memory %s: %v", ErrPersistence, id, err)
	}
	m.Type = MemoryType(typ)
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}

// ListMemories returns a project's memory rows, newest first.
func (s *Store) ListMemories(ctx context.Context, projectID string, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, content, type, context, confidence, embedding_id, created_at
		 FROM memories WHERE project_id = ? ORDER BY created_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listing memories: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []MemoryEntry
	for rows.Next() {
		var m MemoryEntry
		var typ, createdAt string
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Content, &typ, &m.Context, &m.Confidence, &m.EmbeddingID, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning memory: %v", ErrPersistence, err)
		}
		m.Type = MemoryType(typ)
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating memories: %v", ErrPersistence, err)
	}
	return out, nil
}

// DeleteMemory removes a memory row. Deleting an absent id is not an error.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: deleting memory %s: %v", ErrPersistence, id, err)
	}
	return nil
}

// CreateObservation inserts an observation row.
func (s *Store) CreateObservation(ctx context.Context, o *Observation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations (id, project_id, session_id, type, title, narrative, facts, concepts,
		                           files_modified, files_read, confidence, embedding_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.ProjectID, o.SessionID, string(o.Type), o.Title, o.Narrative,
		marshalList(o.Facts), marshalList(o.Concepts), marshalList(o.FilesModified), marshalList(o.FilesRead),
		o.Confidence, o.EmbeddingID, o.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: inserting observation %s: %v", ErrPersistence, o.ID, err)
	}
	return nil
}

// GetObservation fetches the full observation row by id.
func (s *Store) GetObservation(ctx context.Context, id string) (*Observation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, session_id, type, title, narrative, facts, concepts,
		        files_modified, files_read, confidence, embedding_id, created_at
		 FROM observations WHERE id = ?`, id)

	var o Observation
	var typ, facts, concepts, filesModified, filesRead, createdAt string
	err := row.Scan(&o.ID, &o.ProjectID, &o.SessionID, &typ, &o.Title, &o.Narrative,
		&facts, &concepts, &filesModified, &filesRead, &o.Confidence, &o.EmbeddingID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: observation %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading observation %s: %v", ErrPersistence, id, err)
	}
	o.Type = ObservationType(typ)
	o.Facts = unmarshalList(facts)
	o.Concepts = unmarshalList(concepts)
	o.FilesModified = unmarshalList(filesModified)
	o.FilesRead = unmarshalList(filesRead)
	o.CreatedAt = parseTime(createdAt)
	return &o, nil
}

// ListObservationIndex returns the compact projection of a project's
// observations, newest first.
func (s *Store) ListObservationIndex(ctx context.Context, projectID string, limit int) ([]ObservationIndex, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, title, confidence, created_at
		 FROM observations WHERE project_id = ? ORDER BY created_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listing observations: %v", ErrPersistence, err)
	}
	defer rows.Close()
	return scanIndex(rows)
}

// UpdateObservationConfidence sets an observation's confidence.
func (s *Store) UpdateObservationConfidence(ctx context.Context, id string, confidence float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE observations SET confidence = ? WHERE id = ?`, confidence, id)
	if err != nil {
		return fmt.Errorf("%w: updating confidence for %s: %v", ErrPersistence, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: observation %s", ErrNotFound, id)
	}
	return nil
}

// UpdateMemoryConfidence sets a memory's confidence.
func (s *Store) UpdateMemoryConfidence(ctx context.Context, id string, confidence float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET confidence = ? WHERE id = ?`, confidence, id)
	if err != nil {
		return fmt.Errorf("%w: updating confidence for %s: %v", ErrPersistence, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}
	return nil
}

// DecayObservations multiplies every observation confidence in a project
// by factor, returning the number of rows touched.
func (s *Store) DecayObservations(ctx context.Context, projectID string, factor float64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE observations SET confidence = confidence * ? WHERE project_id = ?`, factor, projectID)
	if err != nil {
		return 0, fmt.Errorf("%w: decaying observations for %s: %v", ErrPersistence, projectID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: decay row count: %v", ErrPersistence, err)
	}
	return n, nil
}

// DeleteObservation removes an observation row. Deleting an absent id is
// not an error.
func (s *Store) DeleteObservation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM observations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: deleting observation %s: %v", ErrPersistence, id, err)
	}
	return nil
}

// ListObservationsBelow returns up to limit observations with confidence
// strictly below the threshold, lowest confidence first. The compaction
// sweep uses this ordering so a bounded pass removes the least trusted
// rows first.
func (s *Store) ListObservationsBelow(ctx context.Context, projectID string, threshold float64, limit int) ([]ObservationIndex, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, title, confidence, created_at
		 FROM observations WHERE project_id = ? AND confidence < ?
		 ORDER BY confidence ASC LIMIT ?`, projectID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listing low-confidence observations: %v", ErrPersistence, err)
	}
	defer rows.Close()
	return scanIndex(rows)
}

// ListMemoriesBelow returns up to limit memories with confidence strictly
// below the threshold, lowest confidence first.
func (s *Store) ListMemoriesBelow(ctx context.Context, projectID string, threshold float64, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, content, type, context, confidence, embedding_id, created_at
		 FROM memories WHERE project_id = ? AND confidence < ?
		 ORDER BY confidence ASC LIMIT ?`, projectID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listing low-confidence memories: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []MemoryEntry
	for rows.Next() {
		var m MemoryEntry
		var typ, createdAt string
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Content, &typ, &m.Context, &m.Confidence, &m.EmbeddingID, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning memory: %v", ErrPersistence, err)
		}
		m.Type = MemoryType(typ)
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating memories: %v", ErrPersistence, err)
	}
	return out, nil
}

// Counts returns the number of memory and observation rows for a project.
func (s *Store) Counts(ctx context.Context, projectID string) (memories, observations int64, err error) {
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE project_id = ?`, projectID).Scan(&memories); err != nil {
		return 0, 0, fmt.Errorf("%w: counting memories: %v", ErrPersistence, err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM observations WHERE project_id = ?`, projectID).Scan(&observations); err != nil {
		return 0, 0, fmt.Errorf("%w: counting observations: %v", ErrPersistence, err)
	}
	return memories, observations, nil
}

func scanIndex(rows *sql.Rows) ([]ObservationIndex, error) {
	var out []ObservationIndex
	for rows.Next() {
		var idx ObservationIndex
		var typ, createdAt string
		if err := rows.Scan(&idx.ID, &typ, &idx.Title, &idx.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning observation index: %v", ErrPersistence, err)
		}
		idx.Type = ObservationType(typ)
		idx.CreatedAt = parseTime(createdAt)
		out = append(out, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating observations: %v", ErrPersistence, err)
	}
	return out, nil
}

func marshalList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalList(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
