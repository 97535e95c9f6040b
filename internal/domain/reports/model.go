package reports

import (
	"strconv"
	"strings"
	"time"
)

// Row is one result row. Cells renders it for terminal tables, in the same
// order as the report's Columns.
type Row interface {
	Cells() []string
}

// AgeDistribution is one gender group of AgeDistributionByGender.
type AgeDistribution struct {
	Gender           string  `json:"gender" yaml:"gender"`
	AverageAge       float64 `json:"average_age" yaml:"average_age"`
	MedicalCondition string  `json:"medical_condition" yaml:"medical_condition"`
}

func (r AgeDistribution) Cells() []string {
	return []string{r.Gender, formatFloat(r.AverageAge), r.MedicalCondition}
}

// PatientInfo is a patient listed under a treatment.
type PatientInfo struct {
	FirstName string `json:"first_name" yaml:"first_name"`
	Age       int    `json:"age" yaml:"age"`
}

// TreatmentPatients lists the patients given one treatment for a condition.
type TreatmentPatients struct {
	TreatmentType string        `json:"treatment_type" yaml:"treatment_type"`
	Patients      []PatientInfo `json:"patients" yaml:"patients"`
}

func (r TreatmentPatients) Cells() []string {
	names := make([]string, len(r.Patients))
	for i, p := range r.Patients {
		names[i] = p.FirstName + " (" + strconv.Itoa(p.Age) + ")"
	}
	return []string{r.TreatmentType, strings.Join(names, ", ")}
}

// PatientTreatmentCount counts history rows per patient and treatment.
type PatientTreatmentCount struct {
	PatientID     int64  `json:"patient_id" yaml:"patient_id"`
	FirstName     string `json:"first_name" yaml:"first_name"`
	TreatmentType string `json:"treatment_type" yaml:"treatment_type"`
	Count         int    `json:"count" yaml:"count"`
}

func (r PatientTreatmentCount) Cells() []string {
	return []string{formatID(r.PatientID), r.FirstName, r.TreatmentType, strconv.Itoa(r.Count)}
}

// PatientConditionCount counts history rows per patient and condition.
type PatientConditionCount struct {
	PatientID        int64  `json:"patient_id" yaml:"patient_id"`
	FirstName        string `json:"first_name" yaml:"first_name"`
	MedicalCondition string `json:"medical_condition" yaml:"medical_condition"`
	Count            int    `json:"count" yaml:"count"`
}

func (r PatientConditionCount) Cells() []string {
	return []string{formatID(r.PatientID), r.FirstName, r.MedicalCondition, strconv.Itoa(r.Count)}
}

// UnsuccessfulTreatment counts failed treatment records per patient and
// treatment type.
type UnsuccessfulTreatment struct {
	PatientID         int64  `json:"patient_id" yaml:"patient_id"`
	FirstName         string `json:"first_name" yaml:"first_name"`
	Age               int    `json:"age" yaml:"age"`
	Address           string `json:"address" yaml:"address"`
	TreatmentType     string `json:"treatment_type" yaml:"treatment_type"`
	UnsuccessfulCount int    `json:"unsuccessful_count" yaml:"unsuccessful_count"`
}

func (r UnsuccessfulTreatment) Cells() []string {
	return []string{
		formatID(r.PatientID), r.FirstName, strconv.Itoa(r.Age), r.Address,
		r.TreatmentType, strconv.Itoa(r.UnsuccessfulCount),
	}
}

// ConditionSuccessRate is the outcome of one treatment among patients with
// a condition.
type ConditionSuccessRate struct {
	TreatmentName        string  `json:"treatment_name" yaml:"treatment_name"`
	TotalTreatments      int     `json:"total_treatments" yaml:"total_treatments"`
	SuccessfulTreatments int     `json:"successful_treatments" yaml:"successful_treatments"`
	SuccessRate          float64 `json:"success_rate" yaml:"success_rate"`
	MedicalCondition     string  `json:"medical_condition" yaml:"medical_condition"`
}

func (r ConditionSuccessRate) Cells() []string {
	return []string{
		r.TreatmentName, strconv.Itoa(r.TotalTreatments), strconv.Itoa(r.SuccessfulTreatments),
		formatFloat(r.SuccessRate), r.MedicalCondition,
	}
}

// TreatmentSuccess is the overall outcome of a single treatment type.
type TreatmentSuccess struct {
	TreatmentType   string  `json:"treatment_type" yaml:"treatment_type"`
	TreatmentCount  int     `json:"treatment_count" yaml:"treatment_count"`
	SuccessfulCount int     `json:"successful_count" yaml:"successful_count"`
	SuccessRate     float64 `json:"success_rate" yaml:"success_rate"`
}

func (r TreatmentSuccess) Cells() []string {
	return []string{
		r.TreatmentType, strconv.Itoa(r.TreatmentCount), strconv.Itoa(r.SuccessfulCount),
		formatFloat(r.SuccessRate),
	}
}

// Report holds the result of running a catalog entry.
type Report struct {
	ReportID    string            `json:"report_id" yaml:"report_id"`
	ReportName  string            `json:"report_name" yaml:"report_name"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Parameters  map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RowCount    int               `json:"row_count" yaml:"row_count"`
	Results     []Row             `json:"results" yaml:"results"`
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', 4, 64) }

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
