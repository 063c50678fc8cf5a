// Package report projects a prescription and its owner's profile into the
// printable receipt and renders it as PDF.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clerapp/platform/pkg/common/models"
)

const (
	titleFontSize = 16
	bodyFontSize  = 12

	displayDateLayout = "02/01/2006"
)

type Line struct {
	Text     string
	FontSize float64
}

// Document is the ordered list of lines making up one report.
type Document struct {
	Lines []Line
}

func (d *Document) add(text string) {
	d.Lines = append(d.Lines, Line{Text: text, FontSize: bodyFontSize})
}

// Project builds the report lines. It never fails: every missing optional
// value is printed as the not-available placeholder. Age is computed at the
// issue date, or at now when the prescription has none.
func Project(p models.Prescription, u models.Profile, labels Labels, now time.Time) Document {
	na := labels.NotAvailable
	var doc Document
	doc.Lines = append(doc.Lines, Line{Text: labels.AppTitle, FontSize: titleFontSize})
	doc.add(labels.Header)
	doc.add(fmt.Sprintf("%s: %s", labels.IssueDate, formatDate(p.IssueDate, na)))
	doc.add(fmt.Sprintf("%s %s", labels.DoctorPrefix, p.DoctorName))
	doc.add(fmt.Sprintf("%s: %s", labels.Specialty, orNA(p.Specialty, na)))
	doc.add(fmt.Sprintf("%s: %s", labels.License, p.DoctorLicense))

	doc.add(fmt.Sprintf("%s: %s", labels.PatientName, u.DisplayName()))
	age := na
	if u.BirthDate != nil {
		at := now
		if p.IssueDate != nil {
			at = p.IssueDate.Time
		}
		age = strconv.Itoa(AgeAt(u.BirthDate.Time, at)) + " " + labels.AgeUnit
	}
	doc.add(fmt.Sprintf("%s: %s", labels.Age, age))
	doc.add(fmt.Sprintf("%s: %s", labels.BloodType, orNA(u.BloodType, na)))
	doc.add(fmt.Sprintf("%s: %s", labels.Diseases, orNA(strings.Join(u.Diseases, ", "), na)))
	doc.add(fmt.Sprintf("%s: %s", labels.Allergies, orNA(strings.Join(u.Allergies, ", "), na)))

	for i, med := range p.Medications {
		doc.add(fmt.Sprintf("%s %d: %s", labels.Medication, i+1, med.Name))
		doc.add(fmt.Sprintf("%s: %s %s", labels.Dosage, med.Dosage, med.DosageUnit))
		doc.add(fmt.Sprintf("%s: %s", labels.Route, med.Route))
		doc.add(fmt.Sprintf("%s: %s", labels.Frequency, med.Frequency))
		duration := orNA(med.Duration, na)
		if med.DurationUnit != "" {
			duration += " " + med.DurationUnit
		}
		doc.add(fmt.Sprintf("%s: %s", labels.Duration, duration))
		doc.add(fmt.Sprintf("%s: %s", labels.StartDate, formatDate(med.StartDate, na)))
		doc.add(fmt.Sprintf("%s: %s", labels.StartTime, orNA(med.StartTime, na)))
	}

	if p.Note != "" {
		doc.add("")
		doc.add(fmt.Sprintf("%s: %s", labels.Note, p.Note))
	}
	return doc
}

// AgeAt returns the completed years between birth and at.
func AgeAt(birth, at time.Time) int {
	age := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		age--
	}
	return age
}

func formatDate(d *models.Date, na string) string {
	if d == nil || d.IsZero() {
		return na
	}
	return d.Format(displayDateLayout)
}

func orNA(value, na string) string {
	if strings.TrimSpace(value) == "" {
		return na
	}
	return value
}
