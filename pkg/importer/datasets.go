// CLAUDE:SUMMARY SQLite store of imported datasets: dataset rows, participant records and mental-map features as JSON payloads.
package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/accent-atlas/pkg/mentalmap"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

// ErrNotFound is returned for an unknown dataset ID.
var ErrNotFound = errors.New("dataset not found")

// DatasetInfo represents a row of the datasets table.
type DatasetInfo struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Format      string  `json:"format"`
	Name        string  `json:"name"`
	Source      string  `json:"source"`
	RecordCount int     `json:"record_count"`
	ImportedAt  int64   `json:"imported_at"`
	LastCheck   *int64  `json:"last_check,omitempty"`
	LastStatus  *int    `json:"last_status,omitempty"`
	LastError   *string `json:"last_error,omitempty"`
}

// DatasetDB manages the datasets SQLite database.
type DatasetDB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	format       TEXT NOT NULL,
	name         TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL,
	imported_at  INTEGER NOT NULL,
	last_check   INTEGER,
	last_status  INTEGER,
	last_error   TEXT
);
CREATE TABLE IF NOT EXISTS participants (
	dataset_id       TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	participant_code TEXT NOT NULL,
	payload          TEXT NOT NULL,
	PRIMARY KEY (dataset_id, position)
);
CREATE TABLE IF NOT EXISTS features (
	dataset_id       TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	question_id      TEXT NOT NULL,
	participant_code TEXT NOT NULL,
	payload          TEXT NOT NULL,
	PRIMARY KEY (dataset_id, position)
);
CREATE INDEX IF NOT EXISTS idx_features_question ON features(dataset_id, question_id);
`

// OpenDatasetDB opens (or creates) the SQLite database at path and ensures
// the schema exists.
func OpenDatasetDB(path string) (*DatasetDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open dataset db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create dataset tables: %w", err)
	}
	return &DatasetDB{db: db}, nil
}

func (s *DatasetDB) Close() error {
	return s.db.Close()
}

// Save stores a decoded dataset in one transaction and returns its row.
func (s *DatasetDB) Save(ctx context.Context, name, format, source string, ds *Dataset) (DatasetInfo, error) {
	info := DatasetInfo{
		ID:          uuid.NewString(),
		Kind:        ds.Kind,
		Format:      format,
		Name:        name,
		Source:      source,
		RecordCount: ds.Len(),
		ImportedAt:  time.Now().Unix(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (id, kind, format, name, source, record_count, imported_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Kind, info.Format, info.Name, info.Source, info.RecordCount, info.ImportedAt,
	); err != nil {
		return DatasetInfo{}, fmt.Errorf("insert dataset: %w", err)
	}

	switch ds.Kind {
	case KindSurvey:
		err = insertParticipants(ctx, tx, info.ID, ds.Records)
	case KindMentalMaps:
		err = insertFeatures(ctx, tx, info.ID, ds.Features)
	default:
		err = fmt.Errorf("unknown dataset kind %q", ds.Kind)
	}
	if err != nil {
		return DatasetInfo{}, err
	}
	if err := tx.Commit(); err != nil {
		return DatasetInfo{}, fmt.Errorf("commit: %w", err)
	}
	return info, nil
}

func insertParticipants(ctx context.Context, tx *sql.Tx, id string, recs []survey.ParticipantRecord) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO participants (dataset_id, position, participant_code, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare participants: %w", err)
	}
	defer stmt.Close()
	for i, rec := range recs {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode participant %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, rec.ParticipantCode, string(payload)); err != nil {
			return fmt.Errorf("insert participant %d: %w", i, err)
		}
	}
	return nil
}

func insertFeatures(ctx context.Context, tx *sql.Tx, id string, features []mentalmap.Feature) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO features (dataset_id, position, question_id, participant_code, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare features: %w", err)
	}
	defer stmt.Close()
	for i, f := range features {
		payload, err := json.Marshal(&mentalmap.Collection{Features: []mentalmap.Feature{f}})
		if err != nil {
			return fmt.Errorf("encode feature %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, f.QuestionID, f.ParticipantCode, string(payload)); err != nil {
			return fmt.Errorf("insert feature %d: %w", i, err)
		}
	}
	return nil
}

// ListDatasets returns all datasets, newest first.
func (s *DatasetDB) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, format, name, source, record_count, imported_at,
		last_check, last_status, last_error
		FROM datasets ORDER BY imported_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := []DatasetInfo{}
	for rows.Next() {
		var d DatasetInfo
		if err := rows.Scan(&d.ID, &d.Kind, &d.Format, &d.Name, &d.Source, &d.RecordCount, &d.ImportedAt,
			&d.LastCheck, &d.LastStatus, &d.LastError); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDataset returns one dataset row, or ErrNotFound.
func (s *DatasetDB) GetDataset(ctx context.Context, id string) (DatasetInfo, error) {
	var d DatasetInfo
	err := s.db.QueryRowContext(ctx, `SELECT id, kind, format, name, source, record_count, imported_at,
		last_check, last_status, last_error FROM datasets WHERE id = ?`, id).
		Scan(&d.ID, &d.Kind, &d.Format, &d.Name, &d.Source, &d.RecordCount, &d.ImportedAt,
			&d.LastCheck, &d.LastStatus, &d.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return DatasetInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("get dataset %s: %w", id, err)
	}
	return d, nil
}

// LoadParticipants returns the records of a survey dataset in import order.
func (s *DatasetDB) LoadParticipants(ctx context.Context, id string) ([]survey.ParticipantRecord, error) {
	if _, err := s.GetDataset(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM participants WHERE dataset_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	out := []survey.ParticipantRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		var rec survey.ParticipantRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode participant: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadFeatures returns the features of a mental-map dataset in import
// order, restricted to one question unless question is "" or "all".
func (s *DatasetDB) LoadFeatures(ctx context.Context, id, question string) ([]mentalmap.Feature, error) {
	if _, err := s.GetDataset(ctx, id); err != nil {
		return nil, err
	}
	q := `SELECT payload FROM features WHERE dataset_id = ?`
	args := []any{id}
	if question != "" && question != "all" {
		q += ` AND question_id = ?`
		args = append(args, question)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY position`, args...)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	defer rows.Close()

	out := []mentalmap.Feature{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		c, err := mentalmap.Parse([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		out = append(out, c.Features...)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset and its content.
func (s *DatasetDB) DeleteDataset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// UpdateCheck persists the result of a source availability check.
func (s *DatasetDB) UpdateCheck(id string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE datasets SET last_check = ?, last_status = ?, last_error = ? WHERE id = ?`,
		time.Now().Unix(), status, errPtr, id,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", id, err)
	}
	return nil
}
