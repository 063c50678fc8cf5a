package prescription

import (
	"net/url"
	"strings"

	"github.com/clerapp/platform/pkg/common/models"
)

// FilterFromQuery reads the optional list filter from query parameters.
func FilterFromQuery(q url.Values) models.PrescriptionFilter {
	return models.PrescriptionFilter{
		IssueDate: strings.TrimSpace(q.Get("issue_date")),
		Doctor:    strings.TrimSpace(q.Get("doctor")),
		Specialty: strings.TrimSpace(q.Get("specialty")),
		Search:    strings.TrimSpace(q.Get("search")),
	}
}

// Apply keeps the prescriptions matching every set criterion, preserving order.
// Search is a case-insensitive substring match on the doctor's name.
func Apply(list []models.Prescription, f models.PrescriptionFilter) []models.Prescription {
	if f == (models.PrescriptionFilter{}) {
		return list
	}
	search := strings.ToLower(f.Search)
	out := make([]models.Prescription, 0, len(list))
	for _, p := range list {
		if f.IssueDate != "" && (p.IssueDate == nil || p.IssueDate.Format(models.DateLayout) != f.IssueDate) {
			continue
		}
		if f.Doctor != "" && p.DoctorName != f.Doctor {
			continue
		}
		if f.Specialty != "" && p.Specialty != f.Specialty {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.DoctorName), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}
