package profile

import (
	"context"
	"net/mail"
	"regexp"
	"strings"

	"github.com/clerapp/platform/pkg/common/kafka"
	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/clerapp/platform/pkg/common/models"
	"github.com/clerapp/platform/pkg/common/validation"
	"github.com/clerapp/platform/pkg/observability/metrics"
)

const eventSource = "profile-store"

var phonePattern = regexp.MustCompile(`^\(\d{2}\) \d{4,5}-\d{4}$`)

type Service struct {
	repo      *Repository
	publisher kafka.Publisher
}

func NewService(repo *Repository, publisher kafka.Publisher) *Service {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &Service{repo: repo, publisher: publisher}
}

// UpsertByIdentity is idempotent: a second call for the same key returns the
// stored record and ignores the supplied creation fields.
func (s *Service) UpsertByIdentity(ctx context.Context, req models.CheckOrCreateUserRequest) (models.Profile, error) {
	var v validation.Collector
	v.Required("clerk_id", req.ClerkID)
	v.Required("given_name", req.GivenName)
	v.Required("family_name", req.FamilyName)
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != strings.TrimSpace(req.Email) {
		v.Add("email", "must be a valid email address")
	}
	if err := v.Err(); err != nil {
		return models.Profile{}, err
	}

	profile, created, err := s.repo.FirstOrCreate(ctx, IdentityInput{
		ClerkID:    req.ClerkID,
		Email:      req.Email,
		GivenName:  strings.TrimSpace(req.GivenName),
		FamilyName: strings.TrimSpace(req.FamilyName),
	})
	if err != nil {
		return models.Profile{}, err
	}
	if created {
		metrics.ProfileOperation("create")
		s.publish(ctx, "profile.created", profile.ClerkID, map[string]interface{}{"email": profile.Email})
	}
	return profile, nil
}

func (s *Service) List(ctx context.Context) ([]models.ProfileSummary, error) {
	return s.repo.List(ctx)
}

// GetByIdentity returns ErrProfileNotFound for unknown keys; callers treat
// that as "profile not yet created".
func (s *Service) GetByIdentity(ctx context.Context, clerkID string) (models.Profile, error) {
	return s.repo.GetByClerkID(ctx, clerkID)
}

// UpdateCore replaces nickname, full name and birth date. It is independent of
// UpdateDetails; nothing makes the pair atomic.
func (s *Service) UpdateCore(ctx context.Context, req models.UpdateInitialUserInfoRequest) (models.Profile, error) {
	var v validation.Collector
	v.Required("clerk_id", req.ClerkID)
	v.Required("nickname", req.Nickname)
	v.Required("full_name", req.FullName)
	v.Required("birth_date", req.BirthDate)
	var birth models.Date
	if strings.TrimSpace(req.BirthDate) != "" {
		parsed, err := models.ParseDate(req.BirthDate)
		if err != nil {
			v.Add("birth_date", "must be a date (YYYY-MM-DD)")
		}
		birth = parsed
	}
	if err := v.Err(); err != nil {
		return models.Profile{}, err
	}

	profile, err := s.repo.UpdateCore(ctx, req.ClerkID, CoreInput{
		Nickname:  strings.TrimSpace(req.Nickname),
		FullName:  strings.TrimSpace(req.FullName),
		BirthDate: birth.Time,
	})
	if err != nil {
		return models.Profile{}, err
	}
	metrics.ProfileOperation("update_core")
	s.publish(ctx, "profile.core_updated", profile.ClerkID, nil)
	return profile, nil
}

func (s *Service) UpdateDetails(ctx context.Context, req models.UpdateUserRequest) (models.Profile, error) {
	d := req.ProfileDetails
	var v validation.Collector
	v.Required("clerk_id", req.ClerkID)
	if !phonePattern.MatchString(d.Phone) {
		v.Add("phone", "must match (DD) DDDDD-DDDD or (DD) DDDD-DDDD")
	}
	v.Required("gender", d.Gender)
	v.OneOf("blood_type", d.BloodType, models.BloodTypes)
	if d.Weight < 0 {
		v.Add("weight", "must not be negative")
	}
	if d.Height < 0 {
		v.Add("height", "must not be negative")
	}
	v.Required("postal_code", d.PostalCode)
	v.Required("street", d.Street)
	v.Required("district", d.District)
	v.Required("city", d.City)
	v.Required("state", d.State)
	if err := v.Err(); err != nil {
		return models.Profile{}, err
	}

	d.Diseases = normalizeSet(d.Diseases)
	d.Allergies = normalizeSet(d.Allergies)
	d.State = strings.ToUpper(strings.TrimSpace(d.State))

	profile, err := s.repo.UpdateDetails(ctx, req.ClerkID, d)
	if err != nil {
		return models.Profile{}, err
	}
	metrics.ProfileOperation("update_details")
	s.publish(ctx, "profile.details_updated", profile.ClerkID, map[string]interface{}{"active": profile.Active})
	return profile, nil
}

func (s *Service) Delete(ctx context.Context, clerkID string) error {
	var v validation.Collector
	v.Required("clerk_id", clerkID)
	if err := v.Err(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, clerkID); err != nil {
		return err
	}
	metrics.ProfileOperation("delete")
	s.publish(ctx, "profile.deleted", clerkID, nil)
	return nil
}

func (s *Service) publish(ctx context.Context, eventType, clerkID string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["aggregate_id"] = clerkID
	if err := s.publisher.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Warn("profile event not published")
	}
}

// normalizeSet trims entries and drops blanks and duplicates, keeping first-seen order.
func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
