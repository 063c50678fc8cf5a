package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clerapp/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrProfileNotFound = errors.New("user not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type profileModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;column:id"`
	ClerkID    string     `gorm:"column:clerk_id;uniqueIndex;not null"`
	Email      string     `gorm:"column:email"`
	GivenName  string     `gorm:"column:given_name"`
	FamilyName string     `gorm:"column:family_name"`
	Nickname   string     `gorm:"column:nickname"`
	FullName   string     `gorm:"column:full_name"`
	BirthDate  *time.Time `gorm:"column:birth_date"`
	Phone      string     `gorm:"column:phone"`

	Gender    string                      `gorm:"column:gender"`
	Weight    float64                     `gorm:"column:weight"`
	Height    int                         `gorm:"column:height"`
	BloodType string                      `gorm:"column:blood_type"`
	Diseases  datatypes.JSONSlice[string] `gorm:"column:diseases"`
	Allergies datatypes.JSONSlice[string] `gorm:"column:allergies"`

	PostalCode string `gorm:"column:postal_code"`
	Street     string `gorm:"column:street"`
	District   string `gorm:"column:district"`
	Number     string `gorm:"column:number"`
	City       string `gorm:"column:city"`
	State      string `gorm:"column:state"`

	Active    bool      `gorm:"column:active"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (profileModel) TableName() string { return "profiles" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&profileModel{})
}

type IdentityInput struct {
	ClerkID    string
	Email      string
	GivenName  string
	FamilyName string
}

// FirstOrCreate returns the profile for the identity key, creating it with
// only the identity fields when absent. created reports which happened.
func (r *Repository) FirstOrCreate(ctx context.Context, input IdentityInput) (profile models.Profile, created bool, err error) {
	var row profileModel
	err = r.db.WithContext(ctx).Where("clerk_id = ?", input.ClerkID).First(&row).Error
	if err == nil {
		return mapProfileModel(row), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Profile{}, false, err
	}

	now := time.Now().UTC()
	row = profileModel{
		ID:         uuid.New(),
		ClerkID:    input.ClerkID,
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		GivenName:  input.GivenName,
		FamilyName: input.FamilyName,
		Diseases:   datatypes.JSONSlice[string]{},
		Allergies:  datatypes.JSONSlice[string]{},
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		// A concurrent first login may have won the unique index.
		var existing profileModel
		if findErr := r.db.WithContext(ctx).Where("clerk_id = ?", input.ClerkID).First(&existing).Error; findErr == nil {
			return mapProfileModel(existing), false, nil
		}
		return models.Profile{}, false, err
	}
	return mapProfileModel(row), true, nil
}

func (r *Repository) GetByClerkID(ctx context.Context, clerkID string) (models.Profile, error) {
	var row profileModel
	err := r.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return models.Profile{}, err
	}
	return mapProfileModel(row), nil
}

func (r *Repository) List(ctx context.Context) ([]models.ProfileSummary, error) {
	var rows []profileModel
	err := r.db.WithContext(ctx).
		Select("id", "clerk_id", "email", "given_name", "family_name").
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.ProfileSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.ProfileSummary{
			ID:         row.ID,
			ClerkID:    row.ClerkID,
			Email:      row.Email,
			GivenName:  row.GivenName,
			FamilyName: row.FamilyName,
		})
	}
	return out, nil
}

type CoreInput struct {
	Nickname  string
	FullName  string
	BirthDate time.Time
}

func (r *Repository) UpdateCore(ctx context.Context, clerkID string, input CoreInput) (models.Profile, error) {
	return r.update(ctx, clerkID, map[string]interface{}{
		"nickname":   input.Nickname,
		"full_name":  input.FullName,
		"birth_date": input.BirthDate,
	})
}

func (r *Repository) UpdateDetails(ctx context.Context, clerkID string, d models.ProfileDetails) (models.Profile, error) {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return r.update(ctx, clerkID, map[string]interface{}{
		"phone":       d.Phone,
		"gender":      d.Gender,
		"weight":      d.Weight,
		"height":      d.Height,
		"blood_type":  d.BloodType,
		"diseases":    datatypes.JSONSlice[string](nonNil(d.Diseases)),
		"allergies":   datatypes.JSONSlice[string](nonNil(d.Allergies)),
		"postal_code": d.PostalCode,
		"street":      d.Street,
		"district":    d.District,
		"number":      d.Number,
		"city":        d.City,
		"state":       d.State,
		"active":      active,
	})
}

func (r *Repository) update(ctx context.Context, clerkID string, fields map[string]interface{}) (models.Profile, error) {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&profileModel{}).Where("clerk_id = ?", clerkID).Updates(fields)
	if res.Error != nil {
		return models.Profile{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Profile{}, ErrProfileNotFound
	}
	return r.GetByClerkID(ctx, clerkID)
}

func (r *Repository) Delete(ctx context.Context, clerkID string) error {
	res := r.db.WithContext(ctx).Where("clerk_id = ?", clerkID).Delete(&profileModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func mapProfileModel(row profileModel) models.Profile {
	p := models.Profile{
		ID:         row.ID,
		ClerkID:    row.ClerkID,
		Email:      row.Email,
		GivenName:  row.GivenName,
		FamilyName: row.FamilyName,
		Nickname:   row.Nickname,
		FullName:   row.FullName,
		BirthDate:  models.DateFromPtr(row.BirthDate),
		Phone:      row.Phone,
		Gender:     row.Gender,
		Weight:     row.Weight,
		Height:     row.Height,
		BloodType:  row.BloodType,
		Diseases:   nonNil(row.Diseases),
		Allergies:  nonNil(row.Allergies),
		PostalCode: row.PostalCode,
		Street:     row.Street,
		District:   row.District,
		Number:     row.Number,
		City:       row.City,
		State:      row.State,
		Active:     row.Active,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	p.OnboardingComplete = p.IsOnboarded()
	return p
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
