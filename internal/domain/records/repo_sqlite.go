package records

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/hms/hms/internal/platform/db"
)

// Table models for the embedded store. Text columns and age are nullable so
// the COALESCE defaults in the shared SELECTs apply here too.
type patientRow struct {
	PatientID int64   `gorm:"column:patient_id;primaryKey;autoIncrement:false"`
	FirstName *string `gorm:"column:first_name"`
	Age       *int    `gorm:"column:age"`
	Gender    *string `gorm:"column:gender"`
	Address   *string `gorm:"column:address"`
}

func (patientRow) TableName() string { return TablePatients }

type medicalHistoryRow struct {
	HistoryID        int64   `gorm:"column:history_id;primaryKey;autoIncrement"`
	PatientID        int64   `gorm:"column:patient_id;not null;index"`
	MedicalCondition *string `gorm:"column:medical_condition;index"`
	Treatment        *string `gorm:"column:treatment"`
}

func (medicalHistoryRow) TableName() string { return TableMedicalHistories }

type treatmentRecordRow struct {
	RecordID      int64   `gorm:"column:record_id;primaryKey;autoIncrement"`
	PatientID     int64   `gorm:"column:patient_id;not null;index"`
	TreatmentType *string `gorm:"column:treatment_type"`
	Outcome       *string `gorm:"column:outcome"`
}

func (treatmentRecordRow) TableName() string { return TableTreatmentRecords }

// OpenSQLite opens (creating if needed) the SQLite file at dsn. Gorm's own
// logging goes through the service logger at warn level.
func OpenSQLite(dsn string, logger zerolog.Logger) (*gorm.DB, error) {
	gormLog := gormLogger.New(
		log.New(logger.With().Str("component", "gorm").Logger(), "", 0),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	return gdb, nil
}

// AutoMigrateSQLite creates the three tables. It is the sqlite counterpart
// of the SQL migrations used for postgres.
func AutoMigrateSQLite(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&patientRow{}, &medicalHistoryRow{}, &treatmentRecordRow{}); err != nil {
		return fmt.Errorf("auto-migrate sqlite: %w", err)
	}
	return nil
}

// ImportSnapshotSQLite appends every row of s to the store in one transaction.
func ImportSnapshotSQLite(ctx context.Context, gdb *gorm.DB, s *Snapshot) error {
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range s.Patients {
			row := patientRow{
				PatientID: p.PatientID,
				FirstName: strPtr(p.FirstName),
				Age:       &p.Age,
				Gender:    strPtr(p.Gender),
				Address:   strPtr(p.Address),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert patient %d: %w", p.PatientID, err)
			}
		}
		for _, mh := range s.MedicalHistories {
			row := medicalHistoryRow{
				PatientID:        mh.PatientID,
				MedicalCondition: strPtr(mh.MedicalCondition),
				Treatment:        strPtr(mh.Treatment),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert medical history for patient %d: %w", mh.PatientID, err)
			}
		}
		for _, tr := range s.TreatmentRecords {
			row := treatmentRecordRow{
				PatientID:     tr.PatientID,
				TreatmentType: strPtr(tr.TreatmentType),
				Outcome:       strPtr(tr.Outcome),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert treatment record for patient %d: %w", tr.PatientID, err)
			}
		}
		return nil
	})
}

func strPtr(s string) *string { return &s }

type snapshotRepoSQLite struct{ db *gorm.DB }

// NewSnapshotRepoSQLite reads snapshots from an embedded SQLite store.
func NewSnapshotRepoSQLite(gdb *gorm.DB) SnapshotReader {
	return &snapshotRepoSQLite{db: gdb}
}

func sqliteErr(table string, err error) error {
	return &SourceError{Source: "sqlite", Table: table, Err: err}
}

func (r *snapshotRepoSQLite) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		patients   []Patient
		histories  []MedicalHistory
		treatments []TreatmentRecord
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(selectPatientsSQL).Scan(&patients).Error; err != nil {
			return sqliteErr(TablePatients, err)
		}
		if err := tx.Raw(selectMedicalHistoriesSQL).Scan(&histories).Error; err != nil {
			return sqliteErr(TableMedicalHistories, err)
		}
		if err := tx.Raw(selectTreatmentRecordsSQL).Scan(&treatments).Error; err != nil {
			return sqliteErr(TableTreatmentRecords, err)
		}
		return nil
	})
	if err != nil {
		var se *SourceError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, sqliteErr("", err)
	}
	return NewSnapshot(patients, histories, treatments), nil
}

func (r *snapshotRepoSQLite) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *snapshotRepoSQLite) PoolStats() *db.PoolStats {
	sqlDB, err := r.db.DB()
	if err != nil {
		return &db.PoolStats{}
	}
	return db.GetSQLStats(sqlDB)
}
