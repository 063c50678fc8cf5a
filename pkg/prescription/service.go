package prescription

import (
	"context"
	"fmt"
	"strings"

	"github.com/clerapp/platform/pkg/common/kafka"
	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/clerapp/platform/pkg/common/models"
	"github.com/clerapp/platform/pkg/common/validation"
	"github.com/clerapp/platform/pkg/dlp"
	"github.com/clerapp/platform/pkg/observability/metrics"
	"github.com/google/uuid"
)

const eventSource = "prescription-store"

const (
	minDoctorNameLength       = 3
	minLicenseLength          = 6
	minLicenseLengthDraft     = 4
	minMedicationsForCreation = 1
)

type Service struct {
	repo      *Repository
	publisher kafka.Publisher
	redactor  *dlp.Redactor
}

func NewService(repo *Repository, publisher kafka.Publisher) *Service {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &Service{repo: repo, publisher: publisher, redactor: dlp.Default()}
}

// WithRedactor replaces the default rules used to mask free text before it is
// logged or published.
func (s *Service) WithRedactor(r *dlp.Redactor) *Service {
	s.redactor = r
	return s
}

// Create stores a new active prescription carrying at least one medication.
func (s *Service) Create(ctx context.Context, req models.PrescriptionRequest) (models.Prescription, error) {
	if err := validateRequest(req, minLicenseLength, minMedicationsForCreation); err != nil {
		return models.Prescription{}, err
	}
	p, err := s.repo.Create(ctx, fieldsFrom(req))
	if err != nil {
		return models.Prescription{}, err
	}
	metrics.PrescriptionOperation("create")
	s.publish(ctx, "prescription.created", p, map[string]interface{}{"medications": len(p.Medications)})
	return p, nil
}

// CreateEmpty stores a prescription header whose medications are added later
// through AppendMedication. Its license floor is lower than Create's.
func (s *Service) CreateEmpty(ctx context.Context, req models.PrescriptionRequest) (models.Prescription, error) {
	if err := validateRequest(req, minLicenseLengthDraft, 0); err != nil {
		return models.Prescription{}, err
	}
	p, err := s.repo.Create(ctx, fieldsFrom(req))
	if err != nil {
		return models.Prescription{}, err
	}
	metrics.PrescriptionOperation("create_empty")
	s.publish(ctx, "prescription.created", p, map[string]interface{}{"medications": len(p.Medications)})
	return p, nil
}

func (s *Service) AppendMedication(ctx context.Context, req models.AddMedicationRequest) (models.Prescription, error) {
	id, err := parseID(req.PrescriptionID)
	if err != nil {
		return models.Prescription{}, err
	}
	var v validation.Collector
	v.Nest("medication", validateMedication(req.Medication))
	if err := v.Err(); err != nil {
		return models.Prescription{}, err
	}
	p, err := s.repo.Append(ctx, id, normalizeMedication(req.Medication))
	if err != nil {
		return models.Prescription{}, err
	}
	metrics.PrescriptionOperation("append_medication")
	s.publish(ctx, "prescription.medication_added", p, map[string]interface{}{"medications": len(p.Medications)})
	return p, nil
}

// ListByOwner returns every prescription of the owner, inactive included,
// newest first, narrowed by the optional filter.
func (s *Service) ListByOwner(ctx context.Context, clerkID string, filter models.PrescriptionFilter) ([]models.Prescription, error) {
	if err := requireOwner(clerkID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByOwner(ctx, clerkID, false)
	if err != nil {
		return nil, err
	}
	return Apply(list, filter), nil
}

func (s *Service) ListActiveByOwner(ctx context.Context, clerkID string) ([]models.Prescription, error) {
	if err := requireOwner(clerkID); err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, clerkID, true)
}

// Update replaces every mutable field, including the owner and the whole
// medication list.
func (s *Service) Update(ctx context.Context, req models.UpdatePrescriptionRequest) (models.Prescription, error) {
	id, err := parseID(req.PrescriptionID)
	if err != nil {
		return models.Prescription{}, err
	}
	if err := validateRequest(req.PrescriptionRequest, minLicenseLength, minMedicationsForCreation); err != nil {
		return models.Prescription{}, err
	}
	p, err := s.repo.Update(ctx, id, fieldsFrom(req.PrescriptionRequest))
	if err != nil {
		return models.Prescription{}, err
	}
	metrics.PrescriptionOperation("update")
	s.publish(ctx, "prescription.updated", p, nil)
	return p, nil
}

// Deactivate flips the record inactive. The justification is redacted, then
// logged and sent on the event; it is not stored.
func (s *Service) Deactivate(ctx context.Context, req models.InactivatePrescriptionRequest) (models.Prescription, error) {
	id, err := parseID(req.PrescriptionID)
	if err != nil {
		return models.Prescription{}, err
	}
	p, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return models.Prescription{}, err
	}
	justification := s.redactor.Redact(req.Justification)
	logger.Log.WithFields(map[string]interface{}{
		"prescription_id": p.ID.String(),
		"justification":   justification,
	}).Info("prescription deactivated")
	metrics.PrescriptionOperation("deactivate")
	s.publish(ctx, "prescription.deactivated", p, map[string]interface{}{"justification": justification})
	return p, nil
}

func (s *Service) Activate(ctx context.Context, prescriptionID string) (models.Prescription, error) {
	id, err := parseID(prescriptionID)
	if err != nil {
		return models.Prescription{}, err
	}
	p, err := s.repo.SetActive(ctx, id, true)
	if err != nil {
		return models.Prescription{}, err
	}
	metrics.PrescriptionOperation("activate")
	s.publish(ctx, "prescription.activated", p, nil)
	return p, nil
}

// Finalize confirms the record exists and returns it unchanged.
func (s *Service) Finalize(ctx context.Context, prescriptionID string) (models.Prescription, error) {
	return s.Get(ctx, prescriptionID)
}

func (s *Service) Get(ctx context.Context, prescriptionID string) (models.Prescription, error) {
	id, err := parseID(prescriptionID)
	if err != nil {
		return models.Prescription{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) DoctorNames(ctx context.Context) ([]string, error) {
	return s.repo.DistinctDoctorNames(ctx)
}

func (s *Service) Specialties(ctx context.Context) ([]string, error) {
	return s.repo.DistinctSpecialties(ctx)
}

func (s *Service) publish(ctx context.Context, eventType string, p models.Prescription, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["aggregate_id"] = p.ID.String()
	data["clerk_id"] = p.ClerkID
	data["active"] = p.Active
	if err := s.publisher.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Warn("prescription event not published")
	}
}

func validateRequest(req models.PrescriptionRequest, minLicense, minMedications int) error {
	var v validation.Collector
	v.Required("clerk_id", req.ClerkID)
	v.MinLength("doctor_name", strings.TrimSpace(req.DoctorName), minDoctorNameLength)
	v.MinLength("doctor_license", strings.TrimSpace(req.DoctorLicense), minLicense)
	if len(req.Medications) < minMedications {
		v.Add("medications", fmt.Sprintf("must contain at least %d medication", minMedications))
	}
	for i, med := range req.Medications {
		v.Nest(fmt.Sprintf("medications[%d]", i), validateMedication(med))
	}
	return v.Err()
}

func validateMedication(med models.Medication) *validation.Collector {
	var v validation.Collector
	v.Required("name", med.Name)
	v.Required("dosage", med.Dosage)
	v.Required("dosage_unit", med.DosageUnit)
	v.Required("route", med.Route)
	v.Required("frequency", med.Frequency)
	return &v
}

func requireOwner(clerkID string) error {
	var v validation.Collector
	v.Required("clerk_id", clerkID)
	return v.Err()
}

func parseID(raw string) (uuid.UUID, error) {
	var v validation.Collector
	v.Required("prescription_id", raw)
	if err := v.Err(); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		// An id that cannot exist is reported the same as an unknown one.
		return uuid.Nil, ErrPrescriptionNotFound
	}
	return id, nil
}

func fieldsFrom(req models.PrescriptionRequest) Fields {
	meds := make([]models.Medication, 0, len(req.Medications))
	for _, med := range req.Medications {
		meds = append(meds, normalizeMedication(med))
	}
	return Fields{
		ClerkID:       strings.TrimSpace(req.ClerkID),
		DoctorName:    strings.TrimSpace(req.DoctorName),
		DoctorLicense: strings.TrimSpace(req.DoctorLicense),
		Specialty:     strings.TrimSpace(req.Specialty),
		IssueDate:     req.IssueDate.TimePtr(),
		Note:          strings.TrimSpace(req.Note),
		Medications:   meds,
	}
}

func normalizeMedication(med models.Medication) models.Medication {
	med.Name = strings.TrimSpace(med.Name)
	med.Dosage = strings.TrimSpace(med.Dosage)
	med.DosageUnit = strings.TrimSpace(med.DosageUnit)
	med.Route = strings.TrimSpace(med.Route)
	med.Frequency = strings.TrimSpace(med.Frequency)
	med.Duration = strings.TrimSpace(med.Duration)
	med.DurationUnit = strings.TrimSpace(med.DurationUnit)
	med.StartTime = strings.TrimSpace(med.StartTime)
	if med.StartDate != nil && med.StartDate.IsZero() {
		med.StartDate = nil
	}
	return med
}
