package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"greenlight/internal/config"
	"greenlight/internal/services"
)

// Store manages project persistence backed by SQLite. The store is a
// single-writer resource: Open takes an advisory file lock so two processes
// cannot mutate the same database concurrently.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the project database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "projects.db")
	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("project database %s is in use by another greenlight process", dbPath)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection and releases the store lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Create inserts a project and assigns its identifier. The project's ID must
// be zero; the assigned ID is written back to the supplied project.
func (s *Store) Create(ctx context.Context, p *Project) error {
	if p == nil {
		return errors.New("project is nil")
	}
	if p.Saved() {
		return fmt.Errorf("project %d already has an id", p.ID)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	cols, err := encodeColumns(p)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO projects (
            name, script, stage1_json, stage2_json, stage3_json,
            scenes_json, visual_options_json, tools_json, read_only,
            mirror_path, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name,
		nullableString(p.Script),
		cols.stage1,
		cols.stage2,
		cols.stage3,
		cols.scenes,
		cols.visuals,
		cols.tools,
		boolToInt(p.ReadOnly),
		nullableString(p.MirrorPath),
		p.CreatedAt.Format(time.RFC3339Nano),
		p.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "", "create project", "", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return services.Wrap(services.ErrPersistence, "", "create project", "last insert id", err)
	}
	p.ID = id
	return nil
}

// Update persists changes to an existing project, refreshing updated_at.
func (s *Store) Update(ctx context.Context, p *Project) error {
	if p == nil {
		return errors.New("project is nil")
	}
	if !p.Saved() {
		return errors.New("project has no id; use Create first")
	}
	p.UpdatedAt = time.Now().UTC()

	cols, err := encodeColumns(p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE projects
         SET name = ?, script = ?, stage1_json = ?, stage2_json = ?, stage3_json = ?,
             scenes_json = ?, visual_options_json = ?, tools_json = ?, read_only = ?,
             mirror_path = ?, updated_at = ?
         WHERE id = ?`,
		p.Name,
		nullableString(p.Script),
		cols.stage1,
		cols.stage2,
		cols.stage3,
		cols.scenes,
		cols.visuals,
		cols.tools,
		boolToInt(p.ReadOnly),
		nullableString(p.MirrorPath),
		p.UpdatedAt.Format(time.RFC3339Nano),
		p.ID,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "", "update project", "", err)
	}
	return nil
}

// GetByID fetches a project by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// List returns all projects ordered by most recent update.
func (s *Store) List(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Remove deletes a project by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats summarizes stored projects by pipeline completeness.
type Stats struct {
	Total      int
	Complete   int
	InProgress int
}

// Summarize counts stored projects grouped by completeness.
func (s *Store) Summarize(ctx context.Context) (Stats, error) {
	projects, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(projects)}
	for _, p := range projects {
		if p.Complete() {
			stats.Complete++
		} else {
			stats.InProgress++
		}
	}
	return stats, nil
}

const projectColumns = "id, name, script, stage1_json, stage2_json, stage3_json, scenes_json, visual_options_json, tools_json, read_only, mirror_path, created_at, updated_at"

type encodedColumns struct {
	stage1  any
	stage2  any
	stage3  any
	scenes  any
	visuals any
	tools   any
}

func encodeColumns(p *Project) (encodedColumns, error) {
	var cols encodedColumns
	var err error
	if cols.stage1, err = encodeJSON(p.Stage1); err != nil {
		return cols, fmt.Errorf("encode stage1: %w", err)
	}
	if cols.stage2, err = encodeJSON(p.Stage2); err != nil {
		return cols, fmt.Errorf("encode stage2: %w", err)
	}
	if cols.stage3, err = encodeJSON(p.Stage3); err != nil {
		return cols, fmt.Errorf("encode stage3: %w", err)
	}
	if len(p.FullScenes) > 0 {
		if cols.scenes, err = encodeJSON(p.FullScenes); err != nil {
			return cols, fmt.Errorf("encode scenes: %w", err)
		}
	}
	if cols.visuals, err = encodeJSON(p.VisualOptions); err != nil {
		return cols, fmt.Errorf("encode visual options: %w", err)
	}
	if len(p.Tools.ShotIdeas) > 0 || len(p.Tools.ImageStudio) > 0 || len(p.Tools.AIPrompter) > 0 ||
		len(p.Tools.SavedShotLists) > 0 || len(p.Tools.CharacterDNA) > 0 {
		if cols.tools, err = encodeJSON(p.Tools); err != nil {
			return cols, fmt.Errorf("encode tool state: %w", err)
		}
	}
	return cols, nil
}

func encodeJSON(value any) (any, error) {
	switch v := value.(type) {
	case *Stage1Result:
		if v == nil {
			return nil, nil
		}
	case *Stage2Result:
		if v == nil {
			return nil, nil
		}
	case *Stage3Result:
		if v == nil {
			return nil, nil
		}
	case *VisualOptions:
		if v == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func scanProject(scanner interface{ Scan(dest ...any) error }) (*Project, error) {
	var (
		id         int64
		name       string
		script     sql.NullString
		stage1     sql.NullString
		stage2     sql.NullString
		stage3     sql.NullString
		scenes     sql.NullString
		visuals    sql.NullString
		tools      sql.NullString
		readOnly   sql.NullInt64
		mirrorPath sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&name,
		&script,
		&stage1,
		&stage2,
		&stage3,
		&scenes,
		&visuals,
		&tools,
		&readOnly,
		&mirrorPath,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	p := &Project{
		ID:     id,
		Name:   name,
		Script: script.String,
	}
	if readOnly.Valid {
		p.ReadOnly = readOnly.Int64 != 0
	}
	p.MirrorPath = mirrorPath.String
	if err := decodeInto(stage1, &p.Stage1); err != nil {
		return nil, fmt.Errorf("decode stage1: %w", err)
	}
	if err := decodeInto(stage2, &p.Stage2); err != nil {
		return nil, fmt.Errorf("decode stage2: %w", err)
	}
	if err := decodeInto(stage3, &p.Stage3); err != nil {
		return nil, fmt.Errorf("decode stage3: %w", err)
	}
	if scenes.Valid && scenes.String != "" {
		if err := json.Unmarshal([]byte(scenes.String), &p.FullScenes); err != nil {
			return nil, fmt.Errorf("decode scenes: %w", err)
		}
	}
	if err := decodeInto(visuals, &p.VisualOptions); err != nil {
		return nil, fmt.Errorf("decode visual options: %w", err)
	}
	if tools.Valid && tools.String != "" {
		if err := json.Unmarshal([]byte(tools.String), &p.Tools); err != nil {
			return nil, fmt.Errorf("decode tool state: %w", err)
		}
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		p.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		p.UpdatedAt = updated
	}
	return p, nil
}

func decodeInto[T any](col sql.NullString, target **T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	var value T
	if err := json.Unmarshal([]byte(col.String), &value); err != nil {
		return err
	}
	*target = &value
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
