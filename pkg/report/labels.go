package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Labels holds the captions printed on the report. The defaults are
// Portuguese; a YAML file may override any subset.
type Labels struct {
	AppTitle     string `yaml:"app_title"`
	Header       string `yaml:"header"`
	IssueDate    string `yaml:"issue_date"`
	DoctorPrefix string `yaml:"doctor_prefix"`
	Specialty    string `yaml:"specialty"`
	License      string `yaml:"license"`
	PatientName  string `yaml:"patient_name"`
	Age          string `yaml:"age"`
	AgeUnit      string `yaml:"age_unit"`
	BloodType    string `yaml:"blood_type"`
	Diseases     string `yaml:"diseases"`
	Allergies    string `yaml:"allergies"`
	Medication   string `yaml:"medication"`
	Dosage       string `yaml:"dosage"`
	Route        string `yaml:"route"`
	Frequency    string `yaml:"frequency"`
	Duration     string `yaml:"duration"`
	StartDate    string `yaml:"start_date"`
	StartTime    string `yaml:"start_time"`
	Note         string `yaml:"note"`
	NotAvailable string `yaml:"not_available"`
}

func DefaultLabels() Labels {
	return Labels{
		AppTitle:     "Cler App",
		Header:       "Receituário",
		IssueDate:    "Data da receita",
		DoctorPrefix: "Dr.",
		Specialty:    "Especialidade",
		License:      "CRM",
		PatientName:  "Nome do paciente",
		Age:          "Idade",
		AgeUnit:      "anos",
		BloodType:    "Tipo sanguíneo",
		Diseases:     "Doenças",
		Allergies:    "Alérgico a",
		Medication:   "Medicação",
		Dosage:       "Dosagem",
		Route:        "Via de administração",
		Frequency:    "Frequência",
		Duration:     "Duração",
		StartDate:    "Data início",
		StartTime:    "Horário",
		Note:         "Observação",
		NotAvailable: "N/A",
	}
}

// LoadLabels returns the defaults overlaid with the YAML file at path.
// An empty path yields the defaults.
func LoadLabels(path string) (Labels, error) {
	labels := DefaultLabels()
	if path == "" {
		return labels, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Labels{}, fmt.Errorf("read report labels: %w", err)
	}
	if err := yaml.Unmarshal(raw, &labels); err != nil {
		return Labels{}, fmt.Errorf("parse report labels %s: %w", path, err)
	}
	return labels, nil
}
