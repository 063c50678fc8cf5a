package prescription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/clerapp/platform/pkg/common/database"
	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/clerapp/platform/pkg/common/models"
	"github.com/clerapp/platform/pkg/common/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	data   []map[string]interface{}
}

func (p *recordingPublisher) PublishEvent(_ context.Context, eventType, _ string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.data = append(p.data, data)
	return nil
}

func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	logger.Silence()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	pub := &recordingPublisher{}
	return NewService(repo, pub), pub
}

func med(name string) models.Medication {
	return models.Medication{
		Name:       name,
		Dosage:     "500",
		DosageUnit: "mg",
		Route:      "oral",
		Frequency:  "8/8h",
	}
}

func request(clerkID string, meds ...models.Medication) models.PrescriptionRequest {
	return models.PrescriptionRequest{
		ClerkID:       clerkID,
		DoctorName:    "Dr. House",
		DoctorLicense: "CRM123456",
		Specialty:     "Clínica geral",
		IssueDate:     models.NewDate(time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)),
		Medications:   meds,
	}
}

func TestCreateRequiresMedication(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, request("u1"))
	require.Error(t, err)
	assert.Equal(t, []validation.FieldError{{Field: "medications", Message: "must contain at least 1 medication"}}, validation.Fields(err))

	p, err := s.CreateEmpty(ctx, request("u1"))
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Empty(t, p.Medications)
	assert.NotNil(t, p.Medications)
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	req := request("u1", models.Medication{Name: "Amoxicilina"})
	req.DoctorName = "Dr"
	req.DoctorLicense = "12345"
	_, err := s.Create(ctx, req)
	require.Error(t, err)

	fields := map[string]bool{}
	for _, f := range validation.Fields(err) {
		fields[f.Field] = true
	}
	for _, name := range []string{
		"doctor_name", "doctor_license",
		"medications[0].dosage", "medications[0].dosage_unit", "medications[0].route",
		"medications[0].frequency",
	} {
		assert.True(t, fields[name], name)
	}
	assert.False(t, fields["medications[0].name"])
}

func TestCreateAcceptsFreeFormDurationAndStartTime(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	m := med("Amoxicilina")
	m.Duration = "2"
	m.DurationUnit = " Semanas "
	m.StartTime = "8h"
	p, err := s.Create(ctx, request("u1", m))
	require.NoError(t, err)
	require.Len(t, p.Medications, 1)
	assert.Equal(t, "Semanas", p.Medications[0].DurationUnit)
	assert.Equal(t, "8h", p.Medications[0].StartTime)

	extra := med("Dipirona")
	extra.DurationUnit = "até melhorar"
	extra.StartTime = "após o almoço"
	_, err = s.AppendMedication(ctx, models.AddMedicationRequest{PrescriptionID: p.ID.String(), Medication: extra})
	require.NoError(t, err)
}

func TestCreateEmptyAcceptsShorterLicense(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	req := request("u1")
	req.DoctorLicense = "1234"
	_, err := s.CreateEmpty(ctx, req)
	require.NoError(t, err)

	req.Medications = []models.Medication{med("Dipirona")}
	_, err = s.Create(ctx, req)
	assert.True(t, validation.IsValidationError(err))
}

func TestAppendMedicationKeepsOrder(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()

	p, err := s.Create(ctx, request("u1", med("Amoxicilina")))
	require.NoError(t, err)

	_, err = s.AppendMedication(ctx, models.AddMedicationRequest{PrescriptionID: p.ID.String(), Medication: med("Dipirona")})
	require.NoError(t, err)
	_, err = s.AppendMedication(ctx, models.AddMedicationRequest{PrescriptionID: p.ID.String(), Medication: med("Ibuprofeno")})
	require.NoError(t, err)

	got, err := s.Get(ctx, p.ID.String())
	require.NoError(t, err)
	names := make([]string, 0, len(got.Medications))
	for _, m := range got.Medications {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Amoxicilina", "Dipirona", "Ibuprofeno"}, names)
	assert.Equal(t, []string{"prescription.created", "prescription.medication_added", "prescription.medication_added"}, pub.events)
}

func TestAppendMedicationUnknownPrescription(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.AppendMedication(ctx, models.AddMedicationRequest{
		PrescriptionID: "6f1c1b5e-3c1a-4c43-9d55-2b6c8b1f0a11",
		Medication:     med("Dipirona"),
	})
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)

	_, err = s.AppendMedication(ctx, models.AddMedicationRequest{PrescriptionID: "not-a-uuid", Medication: med("Dipirona")})
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)
}

func TestDeactivateActivateRoundTrip(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()

	p, err := s.Create(ctx, request("u1", med("Amoxicilina")))
	require.NoError(t, err)

	off, err := s.Deactivate(ctx, models.InactivatePrescriptionRequest{PrescriptionID: p.ID.String(), Justification: "tratamento concluído"})
	require.NoError(t, err)
	assert.False(t, off.Active)

	active, err := s.ListActiveByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListByOwner(ctx, "u1", models.PrescriptionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	on, err := s.Activate(ctx, p.ID.String())
	require.NoError(t, err)
	assert.True(t, on.Active)
	assert.Equal(t, p.DoctorName, on.DoctorName)
	assert.Equal(t, p.Medications, on.Medications)
	require.NotNil(t, on.IssueDate)
	assert.Equal(t, "2024-05-14", on.IssueDate.Format(models.DateLayout))

	assert.Equal(t, "tratamento concluído", pub.data[1]["justification"])
}

func TestDeactivateRedactsJustification(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()

	p, err := s.Create(ctx, request("u1", med("Amoxicilina")))
	require.NoError(t, err)
	_, err = s.Deactivate(ctx, models.InactivatePrescriptionRequest{
		PrescriptionID: p.ID.String(),
		Justification:  "ligar para (11) 91234-5678",
	})
	require.NoError(t, err)
	assert.Equal(t, "ligar para (**) *****-****", pub.data[len(pub.data)-1]["justification"])
}

func TestListByOwnerNewestFirst(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	first, err := s.Create(ctx, request("u1", med("A")))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := s.Create(ctx, request("u1", med("B")))
	require.NoError(t, err)
	_, err = s.Create(ctx, request("u2", med("C")))
	require.NoError(t, err)

	list, err := s.ListByOwner(ctx, "u1", models.PrescriptionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	_, err = s.ListByOwner(ctx, "", models.PrescriptionFilter{})
	assert.True(t, validation.IsValidationError(err))
}

func TestUpdateReplacesEverything(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	p, err := s.Create(ctx, request("u1", med("A"), med("B")))
	require.NoError(t, err)

	repl := request("u2", med("C"))
	repl.DoctorName = "Dra. Cuddy"
	repl.IssueDate = nil
	updated, err := s.Update(ctx, models.UpdatePrescriptionRequest{PrescriptionID: p.ID.String(), PrescriptionRequest: repl})
	require.NoError(t, err)
	assert.Equal(t, "u2", updated.ClerkID)
	assert.Equal(t, "Dra. Cuddy", updated.DoctorName)
	assert.Nil(t, updated.IssueDate)
	require.Len(t, updated.Medications, 1)
	assert.Equal(t, "C", updated.Medications[0].Name)

	_, err = s.Update(ctx, models.UpdatePrescriptionRequest{
		PrescriptionID:      "6f1c1b5e-3c1a-4c43-9d55-2b6c8b1f0a11",
		PrescriptionRequest: repl,
	})
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)
}

func TestFinalize(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	p, err := s.CreateEmpty(ctx, request("u1"))
	require.NoError(t, err)
	got, err := s.Finalize(ctx, p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = s.Finalize(ctx, "6f1c1b5e-3c1a-4c43-9d55-2b6c8b1f0a11")
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)
}

func TestDoctorNamesAndSpecialties(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	names, err := s.DoctorNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, names)

	a := request("u1", med("A"))
	a.DoctorName = "Dra. Zilda"
	a.Specialty = "Pediatria"
	b := request("u2", med("B"))
	b.DoctorName = "Dr. Almeida"
	b.Specialty = ""
	c := request("u3", med("C"))
	c.DoctorName = "Dra. Zilda"
	c.Specialty = "Cardiologia"
	for _, req := range []models.PrescriptionRequest{a, b, c} {
		_, err := s.Create(ctx, req)
		require.NoError(t, err)
	}

	names, err = s.DoctorNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dr. Almeida", "Dra. Zilda"}, names)

	specialties, err := s.Specialties(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiologia", "Pediatria"}, specialties)
}
