// Package sqlite persists snapshots, scans and narrative usage in a
// local SQLite database.
package sqlite

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"calibot/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id             TEXT PRIMARY KEY,
		filename       TEXT NOT NULL,
		uploaded_by    TEXT NOT NULL DEFAULT '',
		employee_count INTEGER NOT NULL DEFAULT 0,
		warning_count  INTEGER NOT NULL DEFAULT 0,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);

	CREATE TABLE IF NOT EXISTS snapshot_employees (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id  TEXT NOT NULL,
		employee_id  TEXT NOT NULL,
		name         TEXT NOT NULL,
		location     TEXT DEFAULT '',
		function     TEXT DEFAULT '',
		job_level    TEXT DEFAULT '',
		tenure       TEXT DEFAULT '',
		manager_name TEXT DEFAULT '',
		performance  TEXT NOT NULL,
		potential    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_se_snapshot ON snapshot_employees(snapshot_id);

	CREATE TABLE IF NOT EXISTS scans (
		id            TEXT PRIMARY KEY,
		snapshot_id   TEXT NOT NULL,
		axis          TEXT NOT NULL,
		quality_score INTEGER NOT NULL DEFAULT 0,
		green_count   INTEGER NOT NULL DEFAULT 0,
		yellow_count  INTEGER NOT NULL DEFAULT 0,
		red_count     INTEGER NOT NULL DEFAULT 0,
		sample_size   INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
	CREATE INDEX IF NOT EXISTS idx_scans_snapshot ON scans(snapshot_id);

	CREATE TABLE IF NOT EXISTS scan_findings (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id        TEXT NOT NULL,
		dimension      TEXT NOT NULL,
		status         TEXT NOT NULL,
		chi_square     REAL NOT NULL DEFAULT 0,
		p_value        REAL NOT NULL DEFAULT 0,
		effect_size    REAL NOT NULL DEFAULT 0,
		df             INTEGER NOT NULL DEFAULT 0,
		sample_size    INTEGER NOT NULL DEFAULT 0,
		top_category   TEXT DEFAULT '',
		top_z_score    REAL NOT NULL DEFAULT 0,
		interpretation TEXT DEFAULT '',
		failure_reason TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_sf_scan ON scan_findings(scan_id);

	CREATE TABLE IF NOT EXISTS narratives (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id       TEXT NOT NULL,
		provider      TEXT NOT NULL,
		model         TEXT DEFAULT '',
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_narratives_scan ON narratives(scan_id);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	// Migration: add triggered_by column if missing.
	var colCount int
	_ = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('scans') WHERE name = 'triggered_by'`).Scan(&colCount)
	if colCount == 0 {
		_, _ = db.Exec(`ALTER TABLE scans ADD COLUMN triggered_by TEXT DEFAULT ''`)
	}

	return db, nil
}

// InsertSnapshot stores a snapshot with its roster in one transaction
// and returns the snapshot id. The employee count is always taken from
// the roster itself.
func InsertSnapshot(db *sql.DB, snap domain.Snapshot, employees []domain.EmployeeRecord) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO snapshots (id, filename, uploaded_by, employee_count, warning_count)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Filename, snap.UploadedBy, len(employees), snap.WarningCount,
	)
	if err != nil {
		return "", err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO snapshot_employees (snapshot_id, employee_id, name, location, function, job_level, tenure, manager_name, performance, potential)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, e := range employees {
		_, err := stmt.Exec(
			snap.ID, e.ID, e.Name, e.Location, e.Function, e.JobLevel,
			e.TenureCategory, e.ManagerName, string(e.Performance), string(e.Potential),
		)
		if err != nil {
			return "", err
		}
	}

	return snap.ID, tx.Commit()
}

func GetLatestSnapshot(db *sql.DB) (domain.Snapshot, error) {
	var s domain.Snapshot
	err := db.QueryRow(
		`SELECT id, filename, uploaded_by, employee_count, warning_count, created_at
		 FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&s.ID, &s.Filename, &s.UploadedBy, &s.EmployeeCount, &s.WarningCount, &s.CreatedAt)
	return s, err
}

func GetSnapshotByID(db *sql.DB, id string) (domain.Snapshot, error) {
	var s domain.Snapshot
	err := db.QueryRow(
		`SELECT id, filename, uploaded_by, employee_count, warning_count, created_at
		 FROM snapshots WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Filename, &s.UploadedBy, &s.EmployeeCount, &s.WarningCount, &s.CreatedAt)
	return s, err
}

// GetSnapshotEmployees returns the roster in upload order. Order
// matters: ambiguous manager names resolve by first occurrence.
func GetSnapshotEmployees(db *sql.DB, snapshotID string) ([]domain.EmployeeRecord, error) {
	rows, err := db.Query(
		`SELECT employee_id, name, location, function, job_level, tenure, manager_name, performance, potential
		 FROM snapshot_employees WHERE snapshot_id = ? ORDER BY id`,
		snapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []domain.EmployeeRecord
	for rows.Next() {
		var e domain.EmployeeRecord
		var performance, potential string
		err := rows.Scan(
			&e.ID, &e.Name, &e.Location, &e.Function, &e.JobLevel,
			&e.TenureCategory, &e.ManagerName, &performance, &potential,
		)
		if err != nil {
			return nil, err
		}
		e.Performance = domain.Rating(performance)
		e.Potential = domain.Rating(potential)
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func CountSnapshots(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&count)
	return count, err
}

// InsertScan stores a scan header with its findings in one transaction
// and returns the scan id.
func InsertScan(db *sql.DB, scan domain.ScanRecord, findings []domain.Finding) (string, error) {
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO scans (id, snapshot_id, axis, quality_score, green_count, yellow_count, red_count, sample_size, triggered_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, scan.SnapshotID, scan.Axis, scan.QualityScore,
		scan.GreenCount, scan.YellowCount, scan.RedCount, scan.SampleSize, scan.TriggeredBy,
	)
	if err != nil {
		return "", err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO scan_findings
		 (scan_id, dimension, status, chi_square, p_value, effect_size, df, sample_size, top_category, top_z_score, interpretation, failure_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, f := range findings {
		_, err := stmt.Exec(
			scan.ID, f.Dimension, f.Status, f.ChiSquare, f.PValue, f.EffectSize,
			f.DF, f.SampleSize, f.TopCategory, f.TopZScore, f.Interpretation, f.FailureReason,
		)
		if err != nil {
			return "", err
		}
	}

	return scan.ID, tx.Commit()
}

func GetScanByID(db *sql.DB, id string) (domain.ScanRecord, error) {
	var s domain.ScanRecord
	err := db.QueryRow(
		`SELECT id, snapshot_id, axis, quality_score, green_count, yellow_count, red_count, sample_size, triggered_by, created_at
		 FROM scans WHERE id = ?`,
		id,
	).Scan(
		&s.ID, &s.SnapshotID, &s.Axis, &s.QualityScore,
		&s.GreenCount, &s.YellowCount, &s.RedCount, &s.SampleSize,
		&s.TriggeredBy, &s.CreatedAt,
	)
	return s, err
}

func GetLatestScan(db *sql.DB) (domain.ScanRecord, error) {
	var s domain.ScanRecord
	err := db.QueryRow(
		`SELECT id, snapshot_id, axis, quality_score, green_count, yellow_count, red_count, sample_size, triggered_by, created_at
		 FROM scans ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(
		&s.ID, &s.SnapshotID, &s.Axis, &s.QualityScore,
		&s.GreenCount, &s.YellowCount, &s.RedCount, &s.SampleSize,
		&s.TriggeredBy, &s.CreatedAt,
	)
	return s, err
}

func GetRecentScans(db *sql.DB, limit int) ([]domain.ScanRecord, error) {
	rows, err := db.Query(
		`SELECT id, snapshot_id, axis, quality_score, green_count, yellow_count, red_count, sample_size, triggered_by, created_at
		 FROM scans ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []domain.ScanRecord
	for rows.Next() {
		var s domain.ScanRecord
		err := rows.Scan(
			&s.ID, &s.SnapshotID, &s.Axis, &s.QualityScore,
			&s.GreenCount, &s.YellowCount, &s.RedCount, &s.SampleSize,
			&s.TriggeredBy, &s.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		scans = append(scans, s)
	}
	return scans, rows.Err()
}

// GetScanFindings returns findings in insertion order, which is the
// fixed analysis order of a scan.
func GetScanFindings(db *sql.DB, scanID string) ([]domain.Finding, error) {
	rows, err := db.Query(
		`SELECT id, scan_id, dimension, status, chi_square, p_value, effect_size, df, sample_size, top_category, top_z_score, interpretation, failure_reason
		 FROM scan_findings WHERE scan_id = ? ORDER BY id`,
		scanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []domain.Finding
	for rows.Next() {
		var f domain.Finding
		err := rows.Scan(
			&f.ID, &f.ScanID, &f.Dimension, &f.Status, &f.ChiSquare, &f.PValue,
			&f.EffectSize, &f.DF, &f.SampleSize, &f.TopCategory, &f.TopZScore,
			&f.Interpretation, &f.FailureReason,
		)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func InsertNarrative(db *sql.DB, rec domain.NarrativeRecord) error {
	_, err := db.Exec(
		`INSERT INTO narratives (scan_id, provider, model, input_tokens, output_tokens)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ScanID, rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens,
	)
	return err
}

type NarrativeStats struct {
	Narratives   int
	InputTokens  int64
	OutputTokens int64
}

func GetNarrativeStats(db *sql.DB, since time.Time) (NarrativeStats, error) {
	var s NarrativeStats
	err := db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		 FROM narratives WHERE created_at >= ?`,
		since,
	).Scan(&s.Narratives, &s.InputTokens, &s.OutputTokens)
	return s, err
}

func GetWeeklyScanTrend(db *sql.DB, since time.Time) ([]domain.ScanTrendPoint, error) {
	rows, err := db.Query(
		`SELECT
		    strftime('%Y-%m-%d', created_at, 'weekday 0', '-6 days') as week_start,
		    COUNT(*) as scans,
		    COALESCE(AVG(quality_score), 0) as avg_quality
		 FROM scans
		 WHERE created_at >= ?
		 GROUP BY week_start
		 ORDER BY week_start DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []domain.ScanTrendPoint
	for rows.Next() {
		var p domain.ScanTrendPoint
		if err := rows.Scan(&p.WeekStart, &p.Scans, &p.AvgQuality); err != nil {
			return nil, err
		}
		trend = append(trend, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Load red finding counts per week.
	redRows, err := db.Query(
		`SELECT
		    strftime('%Y-%m-%d', s.created_at, 'weekday 0', '-6 days') as week_start,
		    COUNT(*) as red_findings
		 FROM scan_findings f
		 JOIN scans s ON s.id = f.scan_id
		 WHERE s.created_at >= ? AND f.status = 'red'
		 GROUP BY week_start`,
		since,
	)
	if err != nil {
		return trend, nil // non-fatal
	}
	defer redRows.Close()

	redMap := make(map[string]int)
	for redRows.Next() {
		var ws string
		var cnt int
		if err := redRows.Scan(&ws, &cnt); err != nil {
			continue
		}
		redMap[ws] = cnt
	}
	for i := range trend {
		if cnt, ok := redMap[trend[i].WeekStart]; ok {
			trend[i].RedFindings = cnt
		}
	}
	return trend, nil
}
