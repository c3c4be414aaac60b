package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
	"reelsmith/internal/registry"
	"reelsmith/internal/workflow"
)

// Store persists workflow execution history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
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
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record upserts one execution snapshot. It satisfies the engine's
// history sink, so it takes no context and must not block on one.
func (s *Store) Record(snapshot workflow.Snapshot) error {
	phasesJSON, err := json.Marshal(snapshot.Phases)
	if err != nil {
		return fmt.Errorf("marshal phases: %w", err)
	}
	resultJSON, err := json.Marshal(snapshot.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.db.ExecContext(
		context.Background(),
		`INSERT OR REPLACE INTO executions (
            id, workflow_type, topic, status, phases_completed, total_phases,
            cost_usd, phases_json, result_json, created_at, started_at, completed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ID,
		string(snapshot.Type),
		snapshot.Topic,
		string(snapshot.Status),
		snapshot.PhasesCompleted,
		snapshot.TotalPhases,
		snapshot.CostUSD,
		string(phasesJSON),
		string(resultJSON),
		snapshot.CreatedAt.UTC().Format(time.RFC3339Nano),
		nullableTime(snapshot.StartedAt),
		nullableTime(snapshot.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("record execution %s: %w", snapshot.ID, err)
	}
	return nil
}

// Get loads one execution by ID. The second return value reports whether
// it exists.
func (s *Store) Get(ctx context.Context, id string) (workflow.Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE id = ?`, id)
	snapshot, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return workflow.Snapshot{}, false, nil
	}
	if err != nil {
		return workflow.Snapshot{}, false, fmt.Errorf("get execution %s: %w", id, err)
	}
	return snapshot, true, nil
}

// Recent returns up to limit executions, most recently completed first.
func (s *Store) Recent(ctx context.Context, limit int) ([]workflow.Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+executionColumns+` FROM executions
         ORDER BY completed_at DESC, created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent executions: %w", err)
	}
	defer rows.Close()

	var snapshots []workflow.Snapshot
	for rows.Next() {
		snapshot, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return snapshots, nil
}

// Prune deletes all but the keep most recently completed executions and
// returns how many rows it removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM executions WHERE id NOT IN (
            SELECT id FROM executions ORDER BY completed_at DESC, created_at DESC LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune executions: %w", err)
	}
	return res.RowsAffected()
}

const executionColumns = "id, workflow_type, topic, status, phases_completed, total_phases, cost_usd, phases_json, result_json, created_at, started_at, completed_at"

func scanExecution(scanner interface{ Scan(dest ...any) error }) (workflow.Snapshot, error) {
	var (
		id              string
		workflowType    string
		topic           string
		status          string
		phasesCompleted int
		totalPhases     int
		costUSD         float64
		phasesJSON      sql.NullString
		resultJSON      sql.NullString
		createdRaw      string
		startedRaw      sql.NullString
		completedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&workflowType,
		&topic,
		&status,
		&phasesCompleted,
		&totalPhases,
		&costUSD,
		&phasesJSON,
		&resultJSON,
		&createdRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return workflow.Snapshot{}, err
	}

	snapshot := workflow.Snapshot{
		ID:              id,
		Type:            registry.WorkflowType(workflowType),
		Topic:           topic,
		Status:          workflow.Status(status),
		PhasesCompleted: phasesCompleted,
		TotalPhases:     totalPhases,
		CostUSD:         costUSD,
	}
	if phasesJSON.Valid && phasesJSON.String != "" {
		if err := json.Unmarshal([]byte(phasesJSON.String), &snapshot.Phases); err != nil {
			return workflow.Snapshot{}, fmt.Errorf("unmarshal phases: %w", err)
		}
	}
	if resultJSON.Valid && resultJSON.String != "" {
		if err := json.Unmarshal([]byte(resultJSON.String), &snapshot.Result); err != nil {
			return workflow.Snapshot{}, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		snapshot.CreatedAt = created
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			snapshot.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			snapshot.CompletedAt = &completed
		}
	}
	return snapshot, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
