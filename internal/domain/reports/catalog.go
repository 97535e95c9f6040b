package reports

import "github.com/hms/hms/internal/domain/records"

// Report parameters.
const (
	ParamCondition     = "condition"
	ParamTreatmentType = "treatment_type"
)

type evalFunc func(s *records.Snapshot, params map[string]string) ([]Row, error)

// Definition describes a named report.
type Definition struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Parameters  []string `json:"parameters" yaml:"parameters"`
	Columns     []string `json:"columns" yaml:"columns"`

	eval evalFunc
}

// Evaluate runs the report against s. params must already hold every
// parameter the report declares.
func (d *Definition) Evaluate(s *records.Snapshot, params map[string]string) ([]Row, error) {
	return d.eval(s, params)
}

func toRows[T Row](in []T) []Row {
	out := make([]Row, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}

// Catalog is the list of available reports.
var Catalog = []Definition{
	{
		ID:          "age-distribution",
		Name:        "Age Distribution by Gender",
		Description: "Average age per gender of the distinct patients diagnosed with a condition",
		Parameters:  []string{ParamCondition},
		Columns:     []string{"GENDER", "AVERAGE AGE", "CONDITION"},
		eval: func(s *records.Snapshot, p map[string]string) ([]Row, error) {
			return toRows(AgeDistributionByGender(s, p[ParamCondition])), nil
		},
	},
	{
		ID:          "treatment-types",
		Name:        "Treatment Types for Patients",
		Description: "Patients listed under each treatment prescribed for a condition",
		Parameters:  []string{ParamCondition},
		Columns:     []string{"TREATMENT", "PATIENTS"},
		eval: func(s *records.Snapshot, p map[string]string) ([]Row, error) {
			return toRows(TreatmentTypesForPatients(s, p[ParamCondition])), nil
		},
	},
	{
		ID:          "treatment-counts",
		Name:        "Treatment Count per Patient",
		Description: "Number of medical history entries per patient and treatment",
		Parameters:  []string{},
		Columns:     []string{"PATIENT ID", "FIRST NAME", "TREATMENT", "COUNT"},
		eval: func(s *records.Snapshot, _ map[string]string) ([]Row, error) {
			return toRows(AllTreatmentsCountForAllPatients(s)), nil
		},
	},
	{
		ID:          "condition-counts",
		Name:        "Medical Condition Count per Patient",
		Description: "Number of medical history entries per patient and condition",
		Parameters:  []string{},
		Columns:     []string{"PATIENT ID", "FIRST NAME", "CONDITION", "COUNT"},
		eval: func(s *records.Snapshot, _ map[string]string) ([]Row, error) {
			return toRows(AllMedicalConditionsCountForAllPatients(s)), nil
		},
	},
	{
		ID:          "unsuccessful-treatments",
		Name:        "Unsuccessful Treatments per Patient",
		Description: "Failed treatment records per patient and treatment type",
		Parameters:  []string{},
		Columns:     []string{"PATIENT ID", "FIRST NAME", "AGE", "ADDRESS", "TREATMENT", "FAILED"},
		eval: func(s *records.Snapshot, _ map[string]string) ([]Row, error) {
			return toRows(PatientUnsuccessfulTreatments(s)), nil
		},
	},
	{
		ID:          "success-rate",
		Name:        "Treatment Success Rate for Condition",
		Description: "Share of successful outcomes per treatment among patients with a condition",
		Parameters:  []string{ParamCondition},
		Columns:     []string{"TREATMENT", "TOTAL", "SUCCESSFUL", "RATE", "CONDITION"},
		eval: func(s *records.Snapshot, p map[string]string) ([]Row, error) {
			rows, err := SuccessRateForCondition(s, p[ParamCondition])
			if err != nil {
				return nil, err
			}
			return toRows(rows), nil
		},
	},
	{
		ID:          "treatment-success-rate",
		Name:        "Success Rate for Treatment",
		Description: "Share of successful outcomes across all records of one treatment type",
		Parameters:  []string{ParamTreatmentType},
		Columns:     []string{"TREATMENT", "COUNT", "SUCCESSFUL", "RATE"},
		eval: func(s *records.Snapshot, p map[string]string) ([]Row, error) {
			row, err := TreatmentSuccessRate(s, p[ParamTreatmentType])
			if err != nil {
				return nil, err
			}
			return []Row{row}, nil
		},
	},
}

// FindReport returns a report definition by ID, or nil if not found.
func FindReport(id string) *Definition {
	for i := range Catalog {
		if Catalog[i].ID == id {
			return &Catalog[i]
		}
	}
	return nil
}
