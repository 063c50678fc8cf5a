package report

import (
	"context"
	"errors"
	"time"

	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/clerapp/platform/pkg/common/models"
	"github.com/clerapp/platform/pkg/observability/metrics"
	"github.com/clerapp/platform/pkg/profile"
)

type PrescriptionSource interface {
	Get(ctx context.Context, prescriptionID string) (models.Prescription, error)
}

type ProfileSource interface {
	GetByIdentity(ctx context.Context, clerkID string) (models.Profile, error)
}

// Generator loads a prescription with its owner's profile and renders the
// PDF receipt.
type Generator struct {
	prescriptions PrescriptionSource
	profiles      ProfileSource
	labels        Labels
	nowFunc       func() time.Time
}

func NewGenerator(prescriptions PrescriptionSource, profiles ProfileSource, labels Labels) *Generator {
	return &Generator{
		prescriptions: prescriptions,
		profiles:      profiles,
		labels:        labels,
		nowFunc:       time.Now,
	}
}

// Generate returns the PDF bytes. A missing owner profile is replaced by an
// empty one so the report still renders with placeholders.
func (g *Generator) Generate(ctx context.Context, prescriptionID string) ([]byte, error) {
	p, err := g.prescriptions.Get(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	owner, err := g.profiles.GetByIdentity(ctx, p.ClerkID)
	if errors.Is(err, profile.ErrProfileNotFound) {
		logger.Log.WithField("prescription_id", p.ID.String()).Warn("report owner profile missing, rendering without patient data")
		owner = models.Profile{}
	} else if err != nil {
		return nil, err
	}

	pdf, err := RenderPDF(Project(p, owner, g.labels, g.nowFunc()))
	if err != nil {
		return nil, err
	}
	metrics.ReportRendered()
	return pdf, nil
}
