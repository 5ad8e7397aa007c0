package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/timeutil"
)

// ErrRunNotFound is returned when no calibration run matches.
var ErrRunNotFound = errors.New("calibration run not found")

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 20

// CalibrationRun is one persisted Fit result.
type CalibrationRun struct {
	RunID           string          `json:"run_id"`
	CreatedAt       time.Time       `json:"created_at"`
	Temperature     float64         `json:"temperature"`
	ECEBefore       float64         `json:"ece_before"`
	ECEAfter        float64         `json:"ece_after"`
	NLLBefore       float64         `json:"nll_before"`
	NLLAfter        float64         `json:"nll_after"`
	GridTemperature float64         `json:"grid_temperature"`
	Refined         bool            `json:"refined"`
	Refiner         string          `json:"refiner"`
	SampleCount     int             `json:"sample_count"`
	LabelCount      int             `json:"label_count"`
	DataSource      string          `json:"data_source"`
	ResultJSON      json.RawMessage `json:"result_json,omitempty"`
	AppliedAt       *time.Time      `json:"applied_at,omitempty"`
	AppliedPath     string          `json:"applied_path,omitempty"`
}

// NewCalibrationRun captures res for storage. The full result, including
// reliability bins and the NLL curve, is kept as JSON.
func NewCalibrationRun(res calibration.Result, dataSource string) (*CalibrationRun, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode calibration result: %w", err)
	}
	return &CalibrationRun{
		CreatedAt:       res.CalibratedAt,
		Temperature:     res.Temperature,
		ECEBefore:       res.ECEBefore,
		ECEAfter:        res.ECEAfter,
		NLLBefore:       res.NLLBefore,
		NLLAfter:        res.NLLAfter,
		GridTemperature: res.GridTemperature,
		Refined:         res.Refined,
		Refiner:         res.Refiner,
		SampleCount:     res.SampleCount,
		LabelCount:      res.LabelCount,
		DataSource:      dataSource,
		ResultJSON:      raw,
	}, nil
}

// Result decodes the stored calibration result.
func (r *CalibrationRun) Result() (calibration.Result, error) {
	var res calibration.Result
	if len(r.ResultJSON) == 0 {
		return res, fmt.Errorf("run %s has no stored result", r.RunID)
	}
	if err := json.Unmarshal(r.ResultJSON, &res); err != nil {
		return res, fmt.Errorf("decode run %s result: %w", r.RunID, err)
	}
	return res, nil
}

// CalibrationRunStore provides persistence for calibration runs.
type CalibrationRunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewCalibrationRunStore creates a store. A nil clock uses the wall clock.
func NewCalibrationRunStore(db *sql.DB, clock timeutil.Clock) *CalibrationRunStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &CalibrationRunStore{db: db, clock: clock}
}

// Insert persists run. An empty RunID gets a UUID and a zero CreatedAt
// gets the current time.
func (s *CalibrationRunStore) Insert(run *CalibrationRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now()
	}

	var resultStr interface{}
	if len(run.ResultJSON) > 0 {
		resultStr = string(run.ResultJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO calibration_runs (
				run_id, created_at, temperature, ece_before, ece_after,
				nll_before, nll_after, grid_temperature, refined, refiner,
				sample_count, label_count, data_source, result_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.CreatedAt.UnixNano(), run.Temperature, run.ECEBefore, run.ECEAfter,
			run.NLLBefore, run.NLLAfter, run.GridTemperature, run.Refined, run.Refiner,
			run.SampleCount, run.LabelCount, run.DataSource, resultStr,
		)
		if err != nil {
			return fmt.Errorf("insert calibration run: %w", err)
		}
		return nil
	})
}

const runColumns = `run_id, created_at, temperature, ece_before, ece_after,
		       nll_before, nll_after, grid_temperature, refined, refiner,
		       sample_count, label_count, data_source, result_json,
		       applied_at, applied_path`

// Get returns a single run by ID.
func (s *CalibrationRunStore) Get(runID string) (*CalibrationRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM calibration_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// List returns up to limit runs, newest first.
func (s *CalibrationRunStore) List(limit int) ([]*CalibrationRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM calibration_runs
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query calibration runs: %w", err)
	}
	defer rows.Close()

	var runs []*CalibrationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Latest returns the most recent run.
func (s *CalibrationRunStore) Latest() (*CalibrationRun, error) {
	runs, err := s.List(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}

// MarkApplied records that the run's temperature was written to path.
func (s *CalibrationRunStore) MarkApplied(runID, path string) error {
	now := s.clock.Now()
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`UPDATE calibration_runs SET applied_at = ?, applied_path = ? WHERE run_id = ?`,
			now.UnixNano(), path, runID)
		if err != nil {
			return fmt.Errorf("mark calibration run applied: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*CalibrationRun, error) {
	var (
		r           CalibrationRun
		createdAt   int64
		resultStr   sql.NullString
		appliedAt   sql.NullInt64
		appliedPath sql.NullString
	)
	err := row.Scan(
		&r.RunID, &createdAt, &r.Temperature, &r.ECEBefore, &r.ECEAfter,
		&r.NLLBefore, &r.NLLAfter, &r.GridTemperature, &r.Refined, &r.Refiner,
		&r.SampleCount, &r.LabelCount, &r.DataSource, &resultStr,
		&appliedAt, &appliedPath,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan calibration run: %w", err)
	}
	r.CreatedAt = time.Unix(0, createdAt).UTC()
	if resultStr.Valid {
		r.ResultJSON = json.RawMessage(resultStr.String)
	}
	if appliedAt.Valid {
		t := time.Unix(0, appliedAt.Int64).UTC()
		r.AppliedAt = &t
	}
	r.AppliedPath = appliedPath.String
	return &r, nil
}
