package report

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/clerapp/platform/pkg/common/models"
	"github.com/clerapp/platform/pkg/prescription"
	"github.com/clerapp/platform/pkg/profile"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Silence()
}

func day(y int, m time.Month, d int) *models.Date {
	return models.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func texts(doc Document) []string {
	out := make([]string, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		out = append(out, l.Text)
	}
	return out
}

func TestAgeAt(t *testing.T) {
	birth := time.Date(2000, 5, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 23, AgeAt(birth, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, AgeAt(birth, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 23, AgeAt(birth, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)))
}

func TestProjectFullRecord(t *testing.T) {
	p := models.Prescription{
		DoctorName:    "House",
		DoctorLicense: "CRM123456",
		Specialty:     "Infectologia",
		IssueDate:     day(2024, 5, 14),
		Note:          "Tomar após as refeições",
		Medications: []models.Medication{{
			Name: "Amoxicilina", Dosage: "500", DosageUnit: "mg", Route: "oral", Frequency: "8/8h",
			Duration: "7", DurationUnit: "dias", StartDate: day(2024, 5, 15), StartTime: "08:00",
		}},
	}
	u := models.Profile{
		GivenName: "Maria", FamilyName: "Silva",
		BirthDate: day(2000, 5, 15),
		BloodType: "O+",
		Diseases:  []string{"asma", "rinite"},
		Allergies: []string{"dipirona"},
	}

	doc := Project(p, u, DefaultLabels(), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{
		"Cler App",
		"Receituário",
		"Data da receita: 14/05/2024",
		"Dr. House",
		"Especialidade: Infectologia",
		"CRM: CRM123456",
		"Nome do paciente: Maria Silva",
		"Idade: 23 anos",
		"Tipo sanguíneo: O+",
		"Doenças: asma, rinite",
		"Alérgico a: dipirona",
		"Medicação 1: Amoxicilina",
		"Dosagem: 500 mg",
		"Via de administração: oral",
		"Frequência: 8/8h",
		"Duração: 7 dias",
		"Data início: 15/05/2024",
		"Horário: 08:00",
		"",
		"Observação: Tomar após as refeições",
	}, texts(doc))
	assert.Equal(t, float64(titleFontSize), doc.Lines[0].FontSize)
	assert.Equal(t, float64(bodyFontSize), doc.Lines[1].FontSize)
}

func TestProjectPlaceholders(t *testing.T) {
	p := models.Prescription{
		DoctorName:    "House",
		DoctorLicense: "CRM1234",
		Medications:   []models.Medication{{Name: "Dipirona", Dosage: "1", DosageUnit: "g", Route: "oral", Frequency: "6/6h"}},
	}
	u := models.Profile{FullName: "Maria da Silva", BirthDate: day(2000, 5, 15)}

	lines := texts(Project(p, u, DefaultLabels(), time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)))
	assert.Contains(t, lines, "Data da receita: N/A")
	assert.Contains(t, lines, "Especialidade: N/A")
	assert.Contains(t, lines, "Nome do paciente: Maria da Silva")
	assert.Contains(t, lines, "Idade: 24 anos")
	assert.Contains(t, lines, "Tipo sanguíneo: N/A")
	assert.Contains(t, lines, "Doenças: N/A")
	assert.Contains(t, lines, "Alérgico a: N/A")
	assert.Contains(t, lines, "Duração: N/A")
	assert.Contains(t, lines, "Data início: N/A")
	assert.Contains(t, lines, "Horário: N/A")
	assert.NotContains(t, lines, "")

	empty := texts(Project(p, models.Profile{}, DefaultLabels(), time.Now()))
	assert.Contains(t, empty, "Nome do paciente: ")
	assert.Contains(t, empty, "Idade: N/A")
}

func TestPaginate(t *testing.T) {
	lines := make([]Line, 60)
	pages := Paginate(lines)
	require.Len(t, pages, 3)
	assert.Len(t, pages[0], 28)
	assert.Len(t, pages[1], 28)
	assert.Len(t, pages[2], 4)

	assert.Len(t, Paginate(nil), 1)
}

func TestRenderPDF(t *testing.T) {
	meds := make([]models.Medication, 10)
	for i := range meds {
		meds[i] = models.Medication{Name: "Paracetamol", Dosage: "750", DosageUnit: "mg", Route: "oral", Frequency: "6/6h"}
	}
	doc := Project(models.Prescription{DoctorName: "House", Medications: meds}, models.Profile{}, DefaultLabels(), time.Now())
	require.Greater(t, len(Paginate(doc.Lines)), 1)

	out, err := RenderPDF(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestLoadLabels(t *testing.T) {
	labels, err := LoadLabels("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLabels(), labels)

	path := filepath.Join(t.TempDir(), "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("header: Prescription\nnot_available: \"-\"\n"), 0o600))
	labels, err = LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, "Prescription", labels.Header)
	assert.Equal(t, "-", labels.NotAvailable)
	assert.Equal(t, "Cler App", labels.AppTitle)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type stubPrescriptions map[string]models.Prescription

func (s stubPrescriptions) Get(_ context.Context, id string) (models.Prescription, error) {
	p, ok := s[id]
	if !ok {
		return models.Prescription{}, prescription.ErrPrescriptionNotFound
	}
	return p, nil
}

type stubProfiles map[string]models.Profile

func (s stubProfiles) GetByIdentity(_ context.Context, clerkID string) (models.Profile, error) {
	u, ok := s[clerkID]
	if !ok {
		return models.Profile{}, profile.ErrProfileNotFound
	}
	return u, nil
}

func TestHandlerReport(t *testing.T) {
	id := uuid.New()
	prescriptions := stubPrescriptions{id.String(): {ID: id, ClerkID: "orphan", DoctorName: "House", DoctorLicense: "CRM123456"}}
	gen := NewGenerator(prescriptions, stubProfiles{}, DefaultLabels())
	r := mux.NewRouter()
	NewHandler(gen).Register(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/prescription/report?prescription_id="+id.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), Filename)
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/prescription/report?prescription_id="+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
