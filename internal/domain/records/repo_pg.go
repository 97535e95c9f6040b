package records

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type snapshotRepoPG struct{ pool *pgxpool.Pool }

// NewSnapshotRepoPG reads snapshots from PostgreSQL.
func NewSnapshotRepoPG(pool *pgxpool.Pool) SnapshotReader {
	return &snapshotRepoPG{pool: pool}
}

func pgErr(table string, err error) error {
	return &SourceError{Source: "postgres", Table: table, Err: err}
}

// ReadSnapshot reads the three tables inside one REPEATABLE READ, READ ONLY
// transaction, so one snapshot never mixes data from before and after a
// concurrent write.
func (r *snapshotRepoPG) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, pgErr("", err)
	}
	defer tx.Rollback(ctx)

	patients, err := r.readPatients(ctx, tx)
	if err != nil {
		return nil, err
	}
	histories, err := r.readMedicalHistories(ctx, tx)
	if err != nil {
		return nil, err
	}
	treatments, err := r.readTreatmentRecords(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, pgErr("", err)
	}
	return NewSnapshot(patients, histories, treatments), nil
}

func (r *snapshotRepoPG) readPatients(ctx context.Context, q queryable) ([]Patient, error) {
	rows, err := q.Query(ctx, selectPatientsSQL)
	if err != nil {
		return nil, pgErr(TablePatients, err)
	}
	defer rows.Close()
	var items []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.PatientID, &p.FirstName, &p.Age, &p.Gender, &p.Address); err != nil {
			return nil, pgErr(TablePatients, err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(TablePatients, err)
	}
	return items, nil
}

func (r *snapshotRepoPG) readMedicalHistories(ctx context.Context, q queryable) ([]MedicalHistory, error) {
	rows, err := q.Query(ctx, selectMedicalHistoriesSQL)
	if err != nil {
		return nil, pgErr(TableMedicalHistories, err)
	}
	defer rows.Close()
	var items []MedicalHistory
	for rows.Next() {
		var mh MedicalHistory
		if err := rows.Scan(&mh.PatientID, &mh.MedicalCondition, &mh.Treatment); err != nil {
			return nil, pgErr(TableMedicalHistories, err)
		}
		items = append(items, mh)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(TableMedicalHistories, err)
	}
	return items, nil
}

func (r *snapshotRepoPG) readTreatmentRecords(ctx context.Context, q queryable) ([]TreatmentRecord, error) {
	rows, err := q.Query(ctx, selectTreatmentRecordsSQL)
	if err != nil {
		return nil, pgErr(TableTreatmentRecords, err)
	}
	defer rows.Close()
	var items []TreatmentRecord
	for rows.Next() {
		var tr TreatmentRecord
		if err := rows.Scan(&tr.PatientID, &tr.TreatmentType, &tr.Outcome); err != nil {
			return nil, pgErr(TableTreatmentRecords, err)
		}
		items = append(items, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(TableTreatmentRecords, err)
	}
	return items, nil
}

func (r *snapshotRepoPG) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// PoolStats reports connection pool statistics for the health endpoint.
func (r *snapshotRepoPG) PoolStats() *db.PoolStats {
	return db.GetPoolStats(r.pool)
}
