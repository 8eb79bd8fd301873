package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded arena sequence
type Run struct {
	ID          string
	Mode        string
	MaxBattles  int
	Outcome     string
	Cycles      int
	Battles     int
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Battle is one attack attempt within a run
type Battle struct {
	ID            int64
	RunID         string
	OpponentPower int
	Outcome       string
	FoughtAt      time.Time
}

// StartRun inserts a new run and returns its ID
func (db *DB) StartRun(mode string, maxBattles int) (string, error) {
	id := uuid.New().String()

	_, err := db.conn.Exec(`
		INSERT INTO runs (id, mode, max_battles, outcome, started_at)
		VALUES (?, ?, ?, 'running', datetime('now'))
	`, id, mode, maxBattles)

	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}

	return id, nil
}

// RecordBattle appends a battle attempt to a run
func (db *DB) RecordBattle(runID string, power int, outcome string) error {
	_, err := db.conn.Exec(`
		INSERT INTO battles (run_id, opponent_power, outcome, fought_at)
		VALUES (?, ?, ?, datetime('now'))
	`, runID, power, outcome)

	if err != nil {
		return fmt.Errorf("failed to record battle: %w", err)
	}

	return nil
}

// FinishRun marks a run completed with its final counters
func (db *DB) FinishRun(runID string, cycles, battles int, outcome string) error {
	result, err := db.conn.Exec(`
		UPDATE runs
		SET outcome = ?,
		    cycles = ?,
		    battles = ?,
		    completed_at = datetime('now')
		WHERE id = ?
	`, outcome, cycles, battles, runID)

	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}

	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(runID string) (*Run, error) {
	var run Run
	var completedAt sql.NullTime

	err := db.conn.QueryRow(`
		SELECT id, mode, max_battles, outcome, cycles, battles, started_at, completed_at
		FROM runs
		WHERE id = ?
	`, runID).Scan(
		&run.ID,
		&run.Mode,
		&run.MaxBattles,
		&run.Outcome,
		&run.Cycles,
		&run.Battles,
		&run.StartedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}

// RecentRuns returns the latest runs, newest first
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, mode, max_battles, outcome, cycles, battles, started_at, completed_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var completedAt sql.NullTime

		if err := rows.Scan(
			&run.ID,
			&run.Mode,
			&run.MaxBattles,
			&run.Outcome,
			&run.Cycles,
			&run.Battles,
			&run.StartedAt,
			&completedAt,
		); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// RunBattles returns the battle attempts of a run in fought order
func (db *DB) RunBattles(runID string) ([]Battle, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, opponent_power, outcome, fought_at
		FROM battles
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list battles: %w", err)
	}
	defer rows.Close()

	var battles []Battle
	for rows.Next() {
		var battle Battle
		if err := rows.Scan(
			&battle.ID,
			&battle.RunID,
			&battle.OpponentPower,
			&battle.Outcome,
			&battle.FoughtAt,
		); err != nil {
			return nil, err
		}
		battles = append(battles, battle)
	}

	return battles, rows.Err()
}

// Stats aggregates the journal
type Stats struct {
	TotalRuns     int
	TotalBattles  int
	BattlesWon    int
	AveragePower  float64
	StrongestBeat int
}

// GetStats returns aggregate statistics over all recorded runs
func (db *DB) GetStats() (*Stats, error) {
	var stats Stats

	err := db.conn.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	err = db.conn.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(opponent_power), 0),
			COALESCE(MAX(CASE WHEN outcome = 'success' THEN opponent_power END), 0)
		FROM battles
	`).Scan(&stats.TotalBattles, &stats.BattlesWon, &stats.AveragePower, &stats.StrongestBeat)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate battles: %w", err)
	}

	return &stats, nil
}
