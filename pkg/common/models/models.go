package models

import (
	"time"

	"github.com/google/uuid"
)

var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}


// Profile
type Profile struct {
	ID         uuid.UUID `json:"id"`
	ClerkID    string    `json:"clerk_id"`
	Email      string    `json:"email"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	Nickname   string    `json:"nickname,omitempty"`
	FullName   string    `json:"full_name,omitempty"`
	BirthDate  *Date     `json:"birth_date,omitempty"`
	Phone      string    `json:"phone,omitempty"`

	Gender    string   `json:"gender,omitempty"`
	Weight    float64  `json:"weight,omitempty"` // kg
	Height    int      `json:"height,omitempty"` // cm
	BloodType string   `json:"blood_type,omitempty"`
	Diseases  []string `json:"diseases"`
	Allergies []string `json:"allergies"`

	PostalCode string `json:"postal_code,omitempty"`
	Street     string `json:"street,omitempty"`
	District   string `json:"district,omitempty"`
	Number     string `json:"number,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`

	Active             bool      `json:"active"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DisplayName prefers the full name and falls back to given + family name.
func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	name := p.GivenName
	if p.FamilyName != "" {
		if name != "" {
			name += " "
		}
		name += p.FamilyName
	}
	return name
}

// IsOnboarded reports whether the first wizard step has been completed.
func (p Profile) IsOnboarded() bool {
	return p.Nickname != "" && p.FullName != "" && p.BirthDate != nil
}

type ProfileSummary struct {
	ID         uuid.UUID `json:"id"`
	ClerkID    string    `json:"clerk_id"`
	Email      string    `json:"email"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
}

type CheckOrCreateUserRequest struct {
	ClerkID    string `json:"clerk_id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

type UpdateInitialUserInfoRequest struct {
	ClerkID   string `json:"clerk_id"`
	Nickname  string `json:"nickname"`
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date"`
}

type UpdateUserRequest struct {
	ClerkID string `json:"clerk_id"`
	ProfileDetails
}

// ProfileDetails is the field group replaced by the details update.
type ProfileDetails struct {
	Phone     string   `json:"phone"`
	Gender    string   `json:"gender"`
	Weight    float64  `json:"weight"`
	Height    int      `json:"height"`
	BloodType string   `json:"blood_type"`
	Diseases  []string `json:"diseases,omitempty"`
	Allergies []string `json:"allergies,omitempty"`

	PostalCode string `json:"postal_code"`
	Street     string `json:"street"`
	District   string `json:"district"`
	Number     string `json:"number,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`

	Active *bool `json:"active,omitempty"`
}

type ClerkIDRequest struct {
	ClerkID string `json:"clerk_id"`
}

// Prescription
type Prescription struct {
	ID            uuid.UUID    `json:"id"`
	ClerkID       string       `json:"clerk_id"`
	DoctorName    string       `json:"doctor_name"`
	DoctorLicense string       `json:"doctor_license"`
	Specialty     string       `json:"specialty,omitempty"`
	IssueDate     *Date        `json:"issue_date,omitempty"`
	Note          string       `json:"note,omitempty"`
	Active        bool         `json:"active"`
	Medications   []Medication `json:"medications"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Medication has no identity of its own; it lives inside its prescription.
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	DosageUnit   string `json:"dosage_unit"`
	Route        string `json:"route"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration,omitempty"`
	DurationUnit string `json:"duration_unit,omitempty"`
	StartDate    *Date  `json:"start_date,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
}

type PrescriptionRequest struct {
	ClerkID       string       `json:"clerk_id"`
	DoctorName    string       `json:"doctor_name"`
	DoctorLicense string       `json:"doctor_license"`
	Specialty     string       `json:"specialty,omitempty"`
	IssueDate     *Date        `json:"issue_date,omitempty"`
	Note          string       `json:"note,omitempty"`
	Medications   []Medication `json:"medications"`
}

type UpdatePrescriptionRequest struct {
	PrescriptionID string `json:"prescription_id"`
	PrescriptionRequest
}

type InactivatePrescriptionRequest struct {
	PrescriptionID string `json:"prescription_id"`
	Justification  string `json:"justification,omitempty"`
}

type PrescriptionIDRequest struct {
	PrescriptionID string `json:"prescription_id"`
}

type AddMedicationRequest struct {
	PrescriptionID string     `json:"prescription_id"`
	Medication     Medication `json:"medication"`
}

// PrescriptionFilter narrows an owner's listing in process.
type PrescriptionFilter struct {
	IssueDate string // YYYY-MM-DD
	Doctor    string
	Specialty string
	Search    string
}

type MessageResponse struct {
	Message      string        `json:"message"`
	Prescription *Prescription `json:"prescription,omitempty"`
	User         *Profile      `json:"user,omitempty"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
