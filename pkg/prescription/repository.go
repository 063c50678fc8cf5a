package prescription

import (
	"context"
	"errors"
	"time"

	"github.com/clerapp/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrPrescriptionNotFound = errors.New("prescription not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type prescriptionModel struct {
	ID            uuid.UUID                              `gorm:"type:uuid;primaryKey;column:id"`
	ClerkID       string                                 `gorm:"column:clerk_id;index;not null"`
	DoctorName    string                                 `gorm:"column:doctor_name"`
	DoctorLicense string                                 `gorm:"column:doctor_license"`
	Specialty     string                                 `gorm:"column:specialty"`
	IssueDate     *time.Time                             `gorm:"column:issue_date"`
	Note          string                                 `gorm:"column:note"`
	Active        bool                                   `gorm:"column:active"`
	Medications   datatypes.JSONSlice[models.Medication] `gorm:"column:medications"`
	CreatedAt     time.Time                              `gorm:"column:created_at;index"`
	UpdatedAt     time.Time                              `gorm:"column:updated_at"`
}

func (prescriptionModel) TableName() string { return "prescriptions" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&prescriptionModel{})
}

// Fields is the mutable part of a prescription, written as a whole by Create
// and Update.
type Fields struct {
	ClerkID       string
	DoctorName    string
	DoctorLicense string
	Specialty     string
	IssueDate     *time.Time
	Note          string
	Medications   []models.Medication
}

func (r *Repository) Create(ctx context.Context, f Fields) (models.Prescription, error) {
	now := time.Now().UTC()
	row := prescriptionModel{
		ID:            uuid.New(),
		ClerkID:       f.ClerkID,
		DoctorName:    f.DoctorName,
		DoctorLicense: f.DoctorLicense,
		Specialty:     f.Specialty,
		IssueDate:     f.IssueDate,
		Note:          f.Note,
		Active:        true,
		Medications:   medicationColumn(f.Medications),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Prescription{}, err
	}
	return mapPrescriptionModel(row), nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.Prescription, error) {
	row, err := r.find(ctx, id)
	if err != nil {
		return models.Prescription{}, err
	}
	return mapPrescriptionModel(row), nil
}

func (r *Repository) find(ctx context.Context, id uuid.UUID) (prescriptionModel, error) {
	var row prescriptionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return prescriptionModel{}, ErrPrescriptionNotFound
	}
	return row, err
}

// Append reads the record, appends med to the end of its list and writes the
// whole list back. Concurrent appends race; the last write wins.
func (r *Repository) Append(ctx context.Context, id uuid.UUID, med models.Medication) (models.Prescription, error) {
	row, err := r.find(ctx, id)
	if err != nil {
		return models.Prescription{}, err
	}
	row.Medications = append(medicationColumn(row.Medications), med)
	row.UpdatedAt = time.Now().UTC()
	err = r.db.WithContext(ctx).Model(&prescriptionModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"medications": row.Medications,
		"updated_at":  row.UpdatedAt,
	}).Error
	if err != nil {
		return models.Prescription{}, err
	}
	return mapPrescriptionModel(row), nil
}

// ListByOwner returns the owner's prescriptions, newest first.
func (r *Repository) ListByOwner(ctx context.Context, clerkID string, activeOnly bool) ([]models.Prescription, error) {
	query := r.db.WithContext(ctx).Where("clerk_id = ?", clerkID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var rows []prescriptionModel
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Prescription, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapPrescriptionModel(row))
	}
	return out, nil
}

// Update overwrites every mutable field, owner included.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f Fields) (models.Prescription, error) {
	return r.update(ctx, id, map[string]interface{}{
		"clerk_id":       f.ClerkID,
		"doctor_name":    f.DoctorName,
		"doctor_license": f.DoctorLicense,
		"specialty":      f.Specialty,
		"issue_date":     f.IssueDate,
		"note":           f.Note,
		"medications":    medicationColumn(f.Medications),
	})
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (models.Prescription, error) {
	return r.update(ctx, id, map[string]interface{}{"active": active})
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (models.Prescription, error) {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&prescriptionModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.Prescription{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Prescription{}, ErrPrescriptionNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) DistinctDoctorNames(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "doctor_name")
}

func (r *Repository) DistinctSpecialties(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "specialty")
}

func (r *Repository) distinct(ctx context.Context, column string) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&prescriptionModel{}).
		Where(column+" <> ?", "").
		Distinct().
		Order(column).
		Pluck(column, &values).Error
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func medicationColumn(meds []models.Medication) datatypes.JSONSlice[models.Medication] {
	if meds == nil {
		return datatypes.JSONSlice[models.Medication]{}
	}
	return datatypes.JSONSlice[models.Medication](meds)
}

func mapPrescriptionModel(row prescriptionModel) models.Prescription {
	meds := []models.Medication(row.Medications)
	if meds == nil {
		meds = []models.Medication{}
	}
	return models.Prescription{
		ID:            row.ID,
		ClerkID:       row.ClerkID,
		DoctorName:    row.DoctorName,
		DoctorLicense: row.DoctorLicense,
		Specialty:     row.Specialty,
		IssueDate:     models.DateFromPtr(row.IssueDate),
		Note:          row.Note,
		Active:        row.Active,
		Medications:   meds,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
