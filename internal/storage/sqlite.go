package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/getAsterisk/blockoli/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys so project deletes cascade to blocks
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite-backed store at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateProject creates a new named project. Fails types.ErrProjectExists
// when the name is already taken.
func (s *SQLiteStore) CreateProject(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM projects WHERE name = ?", name).Scan(&existing)
	if err == nil {
		return fmt.Errorf("project %q: %w", name, types.ErrProjectExists)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check project: %w", err)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO projects (name, generation, created_at, updated_at) VALUES (?, 0, ?, ?)",
		name, now, now); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return tx.Commit()
}

// GetProject fetches a project by name. Fails types.ErrProjectNotFound.
func (s *SQLiteStore) GetProject(ctx context.Context, name string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.name, p.generation, COALESCE(p.root_path, ''),
		       p.created_at, p.updated_at, COALESCE(p.last_indexed_at, p.created_at),
		       (SELECT COUNT(*) FROM blocks b WHERE b.project_id = p.id)
		FROM projects p WHERE p.name = ?`, name)

	var p Project
	err := row.Scan(&p.Name, &p.Generation, &p.RootPath,
		&p.CreatedAt, &p.UpdatedAt, &p.LastIndexedAt, &p.TotalBlocks)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %q: %w", name, types.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// ListProjects enumerates all projects in creation order
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, p.generation, COALESCE(p.root_path, ''),
		       p.created_at, p.updated_at, COALESCE(p.last_indexed_at, p.created_at),
		       (SELECT COUNT(*) FROM blocks b WHERE b.project_id = p.id)
		FROM projects p ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Name, &p.Generation, &p.RootPath,
			&p.CreatedAt, &p.UpdatedAt, &p.LastIndexedAt, &p.TotalBlocks); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and all its blocks. Fails
// types.ErrProjectNotFound when absent; deletion is deliberately not a no-op.
func (s *SQLiteStore) DeleteProject(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("project %q: %w", name, types.ErrProjectNotFound)
	}
	return nil
}

// SetProjectRoot records the directory a project was last indexed from
func (s *SQLiteStore) SetProjectRoot(ctx context.Context, name, rootPath string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET root_path = ?, updated_at = ? WHERE name = ?",
		rootPath, time.Now(), name)
	if err != nil {
		return fmt.Errorf("failed to set project root: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("project %q: %w", name, types.ErrProjectNotFound)
	}
	return nil
}

// projectID resolves a project name to its row ID and current generation
func projectID(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}, name string) (int64, uint64, error) {
	var id int64
	var gen uint64
	err := q.QueryRowContext(ctx, "SELECT id, generation FROM projects WHERE name = ?", name).Scan(&id, &gen)
	if err == sql.ErrNoRows {
		return 0, 0, fmt.Errorf("project %q: %w", name, types.ErrProjectNotFound)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to resolve project: %w", err)
	}
	return id, gen, nil
}

// UpsertBlocks stores a reindex batch. Blocks sharing a match key with an
// existing row replace it in place, keeping the original ID and insertion
// position. files lists the paths this run covered: rows under those paths
// whose match key is absent from the batch are deleted, so a function removed
// from a source file disappears on that file's next reindex. Files outside
// the list are untouched. The project generation is bumped exactly once per
// call, regardless of how many blocks changed.
func (s *SQLiteStore) UpsertBlocks(ctx context.Context, project string, files []string, blocks []*types.CodeBlock) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pid, _, err := projectID(ctx, tx, project)
	if err != nil {
		return err
	}

	now := time.Now()
	kept := make(map[string][]int64, len(files))
	for _, b := range blocks {
		var embedding []byte
		var dimension sql.NullInt64
		if b.HasEmbedding() {
			embedding = serializeVector(b.Embedding)
			dimension = sql.NullInt64{Int64: int64(len(b.Embedding)), Valid: true}
		}

		var existingID int64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM blocks WHERE project_id = ? AND path = ? AND name = ? AND scope = ?",
			pid, b.Path, b.Name, b.Scope).Scan(&existingID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx, `
				UPDATE blocks
				SET kind = ?, start_byte = ?, end_byte = ?, start_line = ?, end_line = ?,
				    content = ?, content_hash = ?, embedding = ?, dimension = ?, updated_at = ?
				WHERE id = ?`,
				string(b.Kind), b.StartByte, b.EndByte, b.StartLine, b.EndLine,
				b.Content, b.ContentHash[:], embedding, dimension, now, existingID); err != nil {
				return fmt.Errorf("failed to update block %s: %w", b.Name, err)
			}
			b.ID = existingID
		case err == sql.ErrNoRows:
			res, err := tx.ExecContext(ctx, `
				INSERT INTO blocks (project_id, name, scope, path, kind,
				    start_byte, end_byte, start_line, end_line,
				    content, content_hash, embedding, dimension, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				pid, b.Name, b.Scope, b.Path, string(b.Kind),
				b.StartByte, b.EndByte, b.StartLine, b.EndLine,
				b.Content, b.ContentHash[:], embedding, dimension, now, now)
			if err != nil {
				return fmt.Errorf("failed to insert block %s: %w", b.Name, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			b.ID = id
		default:
			return fmt.Errorf("failed to look up block %s: %w", b.Name, err)
		}
		b.Project = project
		kept[b.Path] = append(kept[b.Path], b.ID)
	}

	// Reconcile covered files: rows the batch did not carry for them no
	// longer exist in the source
	for _, path := range files {
		query := "DELETE FROM blocks WHERE project_id = ? AND path = ?"
		args := []interface{}{pid, path}
		if ids := kept[path]; len(ids) > 0 {
			query += " AND id NOT IN (?" + strings.Repeat(",?", len(ids)-1) + ")"
			for _, id := range ids {
				args = append(args, id)
			}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete stale blocks in %s: %w", path, err)
		}
	}

	// One generation bump per call
	if _, err := tx.ExecContext(ctx,
		"UPDATE projects SET generation = generation + 1, updated_at = ?, last_indexed_at = ? WHERE id = ?",
		now, now, pid); err != nil {
		return fmt.Errorf("failed to bump generation: %w", err)
	}

	return tx.Commit()
}

const blockColumns = `
	b.id, b.name, b.scope, b.path, b.kind,
	b.start_byte, b.end_byte, b.start_line, b.end_line,
	b.content, b.content_hash, b.embedding`

// ListBlocks enumerates all of a project's blocks in insertion order
func (s *SQLiteStore) ListBlocks(ctx context.Context, project string) ([]*types.CodeBlock, error) {
	pid, _, err := projectID(ctx, s.db, project)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+blockColumns+" FROM blocks b WHERE b.project_id = ? ORDER BY b.id", pid)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBlocks(rows, project)
}

// GetBlock fetches one block by ID. Fails types.ErrBlockNotFound.
func (s *SQLiteStore) GetBlock(ctx context.Context, project string, id int64) (*types.CodeBlock, error) {
	pid, _, err := projectID(ctx, s.db, project)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+blockColumns+" FROM blocks b WHERE b.project_id = ? AND b.id = ?", pid, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	defer func() { _ = rows.Close() }()

	blocks, err := scanBlocks(rows, project)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("block %d: %w", id, types.ErrBlockNotFound)
	}
	return blocks[0], nil
}

// FindByFunctionName returns all blocks whose name matches exactly, in ID
// order so repeated calls are stable absent mutation.
func (s *SQLiteStore) FindByFunctionName(ctx context.Context, project, name string) ([]*types.CodeBlock, error) {
	pid, _, err := projectID(ctx, s.db, project)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+blockColumns+" FROM blocks b WHERE b.project_id = ? AND b.name = ? ORDER BY b.id",
		pid, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find blocks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBlocks(rows, project)
}

// SearchBlockContent returns named blocks whose content contains the query
// as a substring, in ID order.
func (s *SQLiteStore) SearchBlockContent(ctx context.Context, project, query string) ([]*types.CodeBlock, error) {
	pid, _, err := projectID(ctx, s.db, project)
	if err != nil {
		return nil, err
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+blockColumns+` FROM blocks b
		 WHERE b.project_id = ? AND b.name != '' AND b.content LIKE ? ESCAPE '\' ORDER BY b.id`,
		pid, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search blocks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBlocks(rows, project)
}

// escapeLike escapes LIKE wildcards so user queries match literally
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// scanBlocks reads block rows into domain objects
func scanBlocks(rows *sql.Rows, project string) ([]*types.CodeBlock, error) {
	var blocks []*types.CodeBlock
	for rows.Next() {
		b := &types.CodeBlock{Project: project}
		var kind string
		var hash []byte
		var embedding []byte
		if err := rows.Scan(&b.ID, &b.Name, &b.Scope, &b.Path, &kind,
			&b.StartByte, &b.EndByte, &b.StartLine, &b.EndLine,
			&b.Content, &hash, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		b.Kind = types.BlockKind(kind)
		copy(b.ContentHash[:], hash)
		if len(embedding) > 0 {
			vector, err := deserializeVector(embedding)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", b.ID, err)
			}
			b.Embedding = vector
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
