package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/swervedrive/internal/drive"
	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/swerve"
)

var (
	// ErrNoRuns is returned by LatestRun on an empty database.
	ErrNoRuns = errors.New("no recorded runs")
	// ErrRunNotFound is returned by GetRun for an unknown run ID.
	ErrRunNotFound = errors.New("run not found")
)

// Run is one process lifetime of the control loop.
type Run struct {
	ID        string    `json:"run_id"`
	Label     string    `json:"label"`
	StartedAt time.Time `json:"started_at"`
	Config    string    `json:"config"`
}

// StartRun records a new run. config is stored verbatim as JSON.
func (db *DB) StartRun(label string, config any, startedAt time.Time) (*Run, error) {
	cfgJSON := []byte("{}")
	if config != nil {
		var err error
		if cfgJSON, err = json.Marshal(config); err != nil {
			return nil, fmt.Errorf("encoding run config: %w", err)
		}
	}
	run := &Run{
		ID:        uuid.NewString(),
		Label:     label,
		StartedAt: startedAt,
		Config:    string(cfgJSON),
	}
	_, err := db.Exec(
		`INSERT INTO runs (run_id, label, started_unix_nanos, config_json) VALUES (?, ?, ?, ?)`,
		run.ID, run.Label, run.StartedAt.UnixNano(), run.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, label, started_unix_nanos, config_json FROM runs
		 ORDER BY started_unix_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		if err := rows.Scan(&r.ID, &r.Label, &started, &r.Config); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recently started run.
func (db *DB) LatestRun() (*Run, error) {
	runs, err := db.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[0], nil
}

// GetRun returns the run with the given ID.
func (db *DB) GetRun(id string) (*Run, error) {
	var r Run
	var started int64
	err := db.QueryRow(
		`SELECT run_id, label, started_unix_nanos, config_json FROM runs WHERE run_id = ?`, id,
	).Scan(&r.ID, &r.Label, &started, &r.Config)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func staleMask(stale [swerve.NumModules]bool) int {
	mask := 0
	for i, s := range stale {
		if s {
			mask |= 1 << i
		}
	}
	return mask
}

// InsertSnapshots writes a batch of snapshots for runID in one transaction.
func (db *DB) InsertSnapshots(runID string, snaps []drive.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cycleStmt, err := tx.Prepare(`INSERT INTO cycles (
		run_id, cycle, t_unix_nanos, x, y, heading_rad, vx, vy, omega,
		command_applied, cmd_vx, cmd_vy, cmd_omega, saturated, stale_heading, stale_modules
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cycleStmt.Close()

	moduleStmt, err := tx.Prepare(`INSERT INTO module_states (
		sample_id, module, measured_speed, measured_angle, target_speed, target_angle
	) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer moduleStmt.Close()

	for _, s := range snaps {
		res, err := cycleStmt.Exec(
			runID, s.Cycle, s.Time.UnixNano(),
			s.Pose.X(), s.Pose.Y(), s.Pose.Heading().Radians(),
			s.Velocity.VX, s.Velocity.VY, s.Velocity.Omega,
			boolInt(s.CommandApplied), s.Command.VX, s.Command.VY, s.Command.Omega,
			boolInt(s.Saturated), boolInt(s.StaleHeading), staleMask(s.StaleModules),
		)
		if err != nil {
			return fmt.Errorf("inserting cycle %d: %w", s.Cycle, err)
		}
		sampleID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for i := range swerve.NumModules {
			if _, err := moduleStmt.Exec(sampleID, i,
				s.Measured[i].Speed, s.Measured[i].Angle.Radians(),
				s.Targets[i].Speed, s.Targets[i].Angle.Radians(),
			); err != nil {
				return fmt.Errorf("inserting cycle %d %s: %w", s.Cycle, swerve.ModuleName(i), err)
			}
		}
	}
	return tx.Commit()
}

// PoseSample is one recorded pose.
type PoseSample struct {
	Cycle uint64      `json:"cycle"`
	Time  time.Time   `json:"time"`
	Pose  geom.Pose2D `json:"pose"`
}

// ListPoses returns up to limit poses of runID in time order. A non-positive
// limit returns every pose.
func (db *DB) ListPoses(runID string, limit int) ([]PoseSample, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(
		`SELECT cycle, t_unix_nanos, x, y, heading_rad FROM cycles
		 WHERE run_id = ? ORDER BY t_unix_nanos, sample_id LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PoseSample
	for rows.Next() {
		var (
			p        PoseSample
			t        int64
			x, y, hd float64
		)
		if err := rows.Scan(&p.Cycle, &t, &x, &y, &hd); err != nil {
			return nil, err
		}
		p.Time = time.Unix(0, t).UTC()
		p.Pose = geom.NewPose(x, y, geom.FromRadians(hd))
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountCycles returns how many cycles are recorded for runID.
func (db *DB) CountCycles(runID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM cycles WHERE run_id = ?`, runID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
