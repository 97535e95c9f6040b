package records

import (
	"context"
	"database/sql"

	"github.com/hms/hms/internal/platform/db"
)

type snapshotRepoMySQL struct{ db *sql.DB }

// NewSnapshotRepoMySQL reads snapshots through database/sql. The handle is
// expected to come from db.NewMySQL, which registers go-sql-driver/mysql.
func NewSnapshotRepoMySQL(sqlDB *sql.DB) SnapshotReader {
	return &snapshotRepoMySQL{db: sqlDB}
}

func mysqlErr(table string, err error) error {
	return &SourceError{Source: "mysql", Table: table, Err: err}
}

func (r *snapshotRepoMySQL) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, mysqlErr("", err)
	}
	defer tx.Rollback()

	s := &Snapshot{}

	err = scanEach(ctx, tx, selectPatientsSQL, func(rows *sql.Rows) error {
		var p Patient
		if err := rows.Scan(&p.PatientID, &p.FirstName, &p.Age, &p.Gender, &p.Address); err != nil {
			return err
		}
		s.Patients = append(s.Patients, p)
		return nil
	})
	if err != nil {
		return nil, mysqlErr(TablePatients, err)
	}

	err = scanEach(ctx, tx, selectMedicalHistoriesSQL, func(rows *sql.Rows) error {
		var mh MedicalHistory
		if err := rows.Scan(&mh.PatientID, &mh.MedicalCondition, &mh.Treatment); err != nil {
			return err
		}
		s.MedicalHistories = append(s.MedicalHistories, mh)
		return nil
	})
	if err != nil {
		return nil, mysqlErr(TableMedicalHistories, err)
	}

	err = scanEach(ctx, tx, selectTreatmentRecordsSQL, func(rows *sql.Rows) error {
		var tr TreatmentRecord
		if err := rows.Scan(&tr.PatientID, &tr.TreatmentType, &tr.Outcome); err != nil {
			return err
		}
		s.TreatmentRecords = append(s.TreatmentRecords, tr)
		return nil
	})
	if err != nil {
		return nil, mysqlErr(TableTreatmentRecords, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mysqlErr("", err)
	}
	return NewSnapshot(s.Patients, s.MedicalHistories, s.TreatmentRecords), nil
}

func scanEach(ctx context.Context, tx *sql.Tx, query string, fn func(*sql.Rows) error) error {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *snapshotRepoMySQL) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *snapshotRepoMySQL) PoolStats() *db.PoolStats {
	return db.GetSQLStats(r.db)
}
