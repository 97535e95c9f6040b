package records

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type memorySnapshotRepo struct{ snap *Snapshot }

// NewMemorySnapshotRepo serves a fixed snapshot. Each read returns a copy.
func NewMemorySnapshotRepo(s *Snapshot) SnapshotReader {
	if s == nil {
		s = NewSnapshot(nil, nil, nil)
	}
	return &memorySnapshotRepo{snap: s.Clone()}
}

func (r *memorySnapshotRepo) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SourceError{Source: "memory", Err: err}
	}
	return r.snap.Clone(), nil
}

type fixtureSnapshotRepo struct{ path string }

// NewFixtureSnapshotRepo reads the snapshot from a YAML or JSON file on every
// call, so edits to the file show up in the next report.
func NewFixtureSnapshotRepo(path string) SnapshotReader {
	return &fixtureSnapshotRepo{path: path}
}

func (r *fixtureSnapshotRepo) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SourceError{Source: "fixture", Err: err}
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, &SourceError{Source: "fixture", Table: r.path, Err: err}
	}
	s, err := DecodeSnapshot(raw)
	if err != nil {
		return nil, &SourceError{Source: "fixture", Table: r.path, Err: err}
	}
	return s, nil
}

// Ping checks that the fixture file is readable.
func (r *fixtureSnapshotRepo) Ping(_ context.Context) error {
	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("stat fixture %s: %w", filepath.Base(r.path), err)
	}
	return nil
}

// DecodeSnapshot parses a snapshot document. JSON is a subset of YAML, so
// both formats are accepted.
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("empty snapshot document")
	}
	var doc Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return NewSnapshot(doc.Patients, doc.MedicalHistories, doc.TreatmentRecords), nil
}

// SampleSnapshot is the built-in demo dataset used when DATA_SOURCE=memory.
func SampleSnapshot() *Snapshot {
	return NewSnapshot(
		[]Patient{
			{PatientID: 1, FirstName: "Ann", Age: 40, Gender: "F", Address: "12 Elm St"},
			{PatientID: 2, FirstName: "Bo", Age: 50, Gender: "M", Address: "3 Oak Ave"},
			{PatientID: 3, FirstName: "Cara", Age: 62, Gender: "F", Address: "88 Pine Rd"},
			{PatientID: 4, FirstName: "Dev", Age: 35, Gender: "M", Address: "7 Birch Ln"},
		},
		[]MedicalHistory{
			{PatientID: 1, MedicalCondition: "Hypertension", Treatment: "DrugA"},
			{PatientID: 2, MedicalCondition: "Hypertension", Treatment: "DrugB"},
			{PatientID: 3, MedicalCondition: "Hypertension", Treatment: "DrugA"},
			{PatientID: 3, MedicalCondition: "Diabetes", Treatment: "Insulin"},
			{PatientID: 4, MedicalCondition: "Asthma", Treatment: "Inhaler"},
		},
		[]TreatmentRecord{
			{PatientID: 1, TreatmentType: "DrugA", Outcome: "Successful"},
			{PatientID: 2, TreatmentType: "DrugB", Outcome: "Failed"},
			{PatientID: 3, TreatmentType: "DrugA", Outcome: "Failed"},
			{PatientID: 3, TreatmentType: "Surgery", Outcome: "Successful"},
			{PatientID: 4, TreatmentType: "Inhaler", Outcome: "Successful"},
			{PatientID: 4, TreatmentType: "Surgery", Outcome: "Failed"},
		},
	)
}
