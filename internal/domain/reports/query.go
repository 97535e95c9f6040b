package reports

import (
	"fmt"
	"sort"

	"github.com/hms/hms/internal/domain/records"
)

// Outcome labels compared exactly, case-sensitively.
const (
	OutcomeSuccessful = "Successful"
	OutcomeFailed     = "Failed"
)

// AgeDistributionByGender averages the age of the distinct patients with at
// least one history row for condition, per gender. Patients that cannot be
// resolved are skipped. Rows are ordered by gender.
func AgeDistributionByGender(s *records.Snapshot, condition string) []AgeDistribution {
	seen := make(map[int64]bool)
	type acc struct {
		sum, n int
	}
	groups := make(map[string]*acc)
	for _, mh := range s.MedicalHistories {
		if mh.MedicalCondition != condition || seen[mh.PatientID] {
			continue
		}
		seen[mh.PatientID] = true
		p, ok := s.PatientByID(mh.PatientID)
		if !ok {
			continue
		}
		g := groups[p.Gender]
		if g == nil {
			g = &acc{}
			groups[p.Gender] = g
		}
		g.sum += p.Age
		g.n++
	}

	out := make([]AgeDistribution, 0, len(groups))
	for gender, g := range groups {
		out = append(out, AgeDistribution{
			Gender:           gender,
			AverageAge:       float64(g.sum) / float64(g.n),
			MedicalCondition: condition,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gender < out[j].Gender })
	return out
}

// TreatmentTypesForPatients groups the history rows for condition by
// treatment and lists the patient of every row, duplicates included, in
// input order. Rows whose patient cannot be resolved are dropped, so a
// treatment given only to unknown patients does not appear. Groups are
// ordered by treatment.
func TreatmentTypesForPatients(s *records.Snapshot, condition string) []TreatmentPatients {
	index := make(map[string]int)
	out := make([]TreatmentPatients, 0)
	for _, mh := range s.MedicalHistories {
		if mh.MedicalCondition != condition {
			continue
		}
		p, ok := s.PatientByID(mh.PatientID)
		if !ok {
			continue
		}
		i, ok := index[mh.Treatment]
		if !ok {
			i = len(out)
			index[mh.Treatment] = i
			out = append(out, TreatmentPatients{TreatmentType: mh.Treatment, Patients: []PatientInfo{}})
		}
		out[i].Patients = append(out[i].Patients, PatientInfo{FirstName: p.FirstName, Age: p.Age})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TreatmentType < out[j].TreatmentType })
	return out
}

type patientLabelKey struct {
	patientID int64
	label     string
}

// countByPatientLabel counts history rows per (patient, label) in first-seen
// order.
func countByPatientLabel(histories []records.MedicalHistory, label func(records.MedicalHistory) string) ([]patientLabelKey, map[patientLabelKey]int) {
	var keys []patientLabelKey
	counts := make(map[patientLabelKey]int)
	for _, mh := range histories {
		k := patientLabelKey{patientID: mh.PatientID, label: label(mh)}
		if _, ok := counts[k]; !ok {
			keys = append(keys, k)
		}
		counts[k]++
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].patientID != keys[j].patientID {
			return keys[i].patientID < keys[j].patientID
		}
		return keys[i].label < keys[j].label
	})
	return keys, counts
}

// AllTreatmentsCountForAllPatients counts history rows per patient and
// treatment. An unknown patient keeps its row with an empty first name.
// Rows are ordered by patient id, then treatment.
func AllTreatmentsCountForAllPatients(s *records.Snapshot) []PatientTreatmentCount {
	keys, counts := countByPatientLabel(s.MedicalHistories, func(mh records.MedicalHistory) string { return mh.Treatment })
	out := make([]PatientTreatmentCount, 0, len(keys))
	for _, k := range keys {
		p, _ := s.PatientByID(k.patientID)
		out = append(out, PatientTreatmentCount{
			PatientID:     k.patientID,
			FirstName:     p.FirstName,
			TreatmentType: k.label,
			Count:         counts[k],
		})
	}
	return out
}

// AllMedicalConditionsCountForAllPatients counts history rows per patient
// and condition. An unknown patient keeps its row with an empty first name.
// Rows are ordered by patient id, then condition.
func AllMedicalConditionsCountForAllPatients(s *records.Snapshot) []PatientConditionCount {
	keys, counts := countByPatientLabel(s.MedicalHistories, func(mh records.MedicalHistory) string { return mh.MedicalCondition })
	out := make([]PatientConditionCount, 0, len(keys))
	for _, k := range keys {
		p, _ := s.PatientByID(k.patientID)
		out = append(out, PatientConditionCount{
			PatientID:        k.patientID,
			FirstName:        p.FirstName,
			MedicalCondition: k.label,
			Count:            counts[k],
		})
	}
	return out
}

type unsuccessfulKey struct {
	patientID     int64
	treatmentType string
	firstName     string
	age           int
	address       string
}

// PatientUnsuccessfulTreatments counts failed treatment records per patient
// and treatment type. Records of unknown patients are dropped, as are groups
// without a failure. Rows are ordered by patient id, then treatment type.
func PatientUnsuccessfulTreatments(s *records.Snapshot) []UnsuccessfulTreatment {
	var keys []unsuccessfulKey
	failed := make(map[unsuccessfulKey]int)
	for _, tr := range s.TreatmentRecords {
		p, ok := s.PatientByID(tr.PatientID)
		if !ok {
			continue
		}
		k := unsuccessfulKey{
			patientID:     tr.PatientID,
			treatmentType: tr.TreatmentType,
			firstName:     p.FirstName,
			age:           p.Age,
			address:       p.Address,
		}
		if _, ok := failed[k]; !ok {
			keys = append(keys, k)
			failed[k] = 0
		}
		if tr.Outcome == OutcomeFailed {
			failed[k]++
		}
	}

	out := make([]UnsuccessfulTreatment, 0)
	for _, k := range keys {
		if failed[k] == 0 {
			continue
		}
		out = append(out, UnsuccessfulTreatment{
			PatientID:         k.patientID,
			FirstName:         k.firstName,
			Age:               k.age,
			Address:           k.address,
			TreatmentType:     k.treatmentType,
			UnsuccessfulCount: failed[k],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PatientID != out[j].PatientID {
			return out[i].PatientID < out[j].PatientID
		}
		return out[i].TreatmentType < out[j].TreatmentType
	})
	return out
}

// SuccessRateForCondition joins patients, their history rows for condition
// and their treatment records on patient id, then rates each treatment type.
// Every matching history row pairs with every treatment record of the same
// patient, so a patient with two matching history rows counts each of their
// treatments twice. Rows are ordered by treatment name.
func SuccessRateForCondition(s *records.Snapshot, condition string) ([]ConditionSuccessRate, error) {
	matches := make(map[int64]int)
	for _, mh := range s.MedicalHistories {
		if mh.MedicalCondition != condition {
			continue
		}
		if _, ok := s.PatientByID(mh.PatientID); ok {
			matches[mh.PatientID]++
		}
	}

	var order []string
	total := make(map[string]int)
	successful := make(map[string]int)
	for _, tr := range s.TreatmentRecords {
		w := matches[tr.PatientID]
		if w == 0 {
			continue
		}
		if _, ok := total[tr.TreatmentType]; !ok {
			order = append(order, tr.TreatmentType)
		}
		total[tr.TreatmentType] += w
		if tr.Outcome == OutcomeSuccessful {
			successful[tr.TreatmentType] += w
		}
	}

	out := make([]ConditionSuccessRate, 0, len(order))
	for _, tt := range order {
		rate, err := successRate(successful[tt], total[tt])
		if err != nil {
			return nil, fmt.Errorf("treatment %q: %w", tt, err)
		}
		out = append(out, ConditionSuccessRate{
			TreatmentName:        tt,
			TotalTreatments:      total[tt],
			SuccessfulTreatments: successful[tt],
			SuccessRate:          rate,
			MedicalCondition:     condition,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TreatmentName < out[j].TreatmentName })
	return out, nil
}

// TreatmentSuccessRate rates one treatment type over all of its treatment
// records, whether or not the patient is known. It fails with
// ErrDivisionByZero when the type has no records.
func TreatmentSuccessRate(s *records.Snapshot, treatmentType string) (TreatmentSuccess, error) {
	var total, successful int
	for _, tr := range s.TreatmentRecords {
		if tr.TreatmentType != treatmentType {
			continue
		}
		total++
		if tr.Outcome == OutcomeSuccessful {
			successful++
		}
	}
	rate, err := successRate(successful, total)
	if err != nil {
		return TreatmentSuccess{}, fmt.Errorf("treatment %q: %w", treatmentType, err)
	}
	return TreatmentSuccess{
		TreatmentType:   treatmentType,
		TreatmentCount:  total,
		SuccessfulCount: successful,
		SuccessRate:     rate,
	}, nil
}

func successRate(successful, total int) (float64, error) {
	if total == 0 {
		return 0, ErrDivisionByZero
	}
	return float64(successful) / float64(total), nil
}
