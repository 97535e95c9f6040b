package records

// Patient maps to the patients table.
type Patient struct {
	PatientID int64  `db:"patient_id" json:"patient_id" yaml:"patient_id"`
	FirstName string `db:"first_name" json:"first_name" yaml:"first_name"`
	Age       int    `db:"age" json:"age" yaml:"age"`
	Gender    string `db:"gender" json:"gender" yaml:"gender"`
	Address   string `db:"address" json:"address" yaml:"address"`
}

// MedicalHistory maps to the medical_histories table. A patient may have any
// number of rows, including exact duplicates.
type MedicalHistory struct {
	PatientID        int64  `db:"patient_id" json:"patient_id" yaml:"patient_id"`
	MedicalCondition string `db:"medical_condition" json:"medical_condition" yaml:"medical_condition"`
	Treatment        string `db:"treatment" json:"treatment" yaml:"treatment"`
}

// TreatmentRecord maps to the treatment_records table.
type TreatmentRecord struct {
	PatientID     int64  `db:"patient_id" json:"patient_id" yaml:"patient_id"`
	TreatmentType string `db:"treatment_type" json:"treatment_type" yaml:"treatment_type"`
	Outcome       string `db:"outcome" json:"outcome" yaml:"outcome"`
}

// Snapshot is a consistent, read-only view of the three record sets taken at
// one point in time. Reports never modify it.
type Snapshot struct {
	Patients         []Patient         `json:"patients" yaml:"patients"`
	MedicalHistories []MedicalHistory  `json:"medical_histories" yaml:"medical_histories"`
	TreatmentRecords []TreatmentRecord `json:"treatment_records" yaml:"treatment_records"`

	byID map[int64]int
}

// NewSnapshot builds a snapshot and its patient index.
func NewSnapshot(patients []Patient, histories []MedicalHistory, treatments []TreatmentRecord) *Snapshot {
	s := &Snapshot{
		Patients:         patients,
		MedicalHistories: histories,
		TreatmentRecords: treatments,
	}
	s.index()
	return s
}

func (s *Snapshot) index() {
	s.byID = make(map[int64]int, len(s.Patients))
	for i, p := range s.Patients {
		// First row wins when an id repeats.
		if _, ok := s.byID[p.PatientID]; !ok {
			s.byID[p.PatientID] = i
		}
	}
}

// PatientByID resolves a patient id. The boolean is false when the id has no
// matching patient row.
func (s *Snapshot) PatientByID(id int64) (Patient, bool) {
	if s.byID == nil {
		s.index()
	}
	i, ok := s.byID[id]
	if !ok {
		return Patient{}, false
	}
	return s.Patients[i], true
}

// Clone returns a deep copy so holders of the original cannot observe changes.
func (s *Snapshot) Clone() *Snapshot {
	return NewSnapshot(
		append([]Patient(nil), s.Patients...),
		append([]MedicalHistory(nil), s.MedicalHistories...),
		append([]TreatmentRecord(nil), s.TreatmentRecords...),
	)
}
