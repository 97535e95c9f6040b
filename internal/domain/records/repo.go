package records

import (
	"context"
	"errors"
	"fmt"
)

// SnapshotReader reads a consistent snapshot of all three record sets. Every
// call reads afresh; implementations must not cache between calls.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context) (*Snapshot, error)
}

// Pinger is implemented by readers backed by a live store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrDataSourceUnavailable matches every error produced while reading from a
// store. Use errors.As with *SourceError to get the table and driver error.
var ErrDataSourceUnavailable = errors.New("data source unavailable")

// SourceError describes a failed read. It unwraps to the driver error.
type SourceError struct {
	Source string
	Table  string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: read %s: %v", e.Source, e.Table, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrDataSourceUnavailable }

// Table names shared by every SQL store.
const (
	TablePatients         = "patients"
	TableMedicalHistories = "medical_histories"
	TableTreatmentRecords = "treatment_records"
)

// Nullable text columns read as "" and a NULL age as 0. Histories and
// treatments come back in insertion order so reports stay stable.
const (
	selectPatientsSQL = `SELECT patient_id,
	COALESCE(first_name, '') AS first_name,
	COALESCE(age, 0) AS age,
	COALESCE(gender, '') AS gender,
	COALESCE(address, '') AS address
FROM patients ORDER BY patient_id`

	selectMedicalHistoriesSQL = `SELECT patient_id,
	COALESCE(medical_condition, '') AS medical_condition,
	COALESCE(treatment, '') AS treatment
FROM medical_histories ORDER BY history_id`

	selectTreatmentRecordsSQL = `SELECT patient_id,
	COALESCE(treatment_type, '') AS treatment_type,
	COALESCE(outcome, '') AS outcome
FROM treatment_records ORDER BY record_id`
)
