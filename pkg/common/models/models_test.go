package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateAcceptsDateAndTimestamp(t *testing.T) {
	d, err := ParseDate("2000-05-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2000, 5, 15, 0, 0, 0, 0, time.UTC), d.Time)

	d, err = ParseDate("2000-05-15T13:45:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2000, 5, 15, 0, 0, 0, 0, time.UTC), d.Time)

	_, err = ParseDate("15/05/2000")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	var m Medication
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","start_date":"2024-05-15T00:00:00.000Z"}`), &m))
	require.NotNil(t, m.StartDate)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"start_date":"2024-05-15"`)

	out, err = json.Marshal(Medication{Name: "y"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "start_date")
}

func TestDatePointerHelpers(t *testing.T) {
	var d *Date
	assert.Nil(t, d.TimePtr())
	assert.Nil(t, DateFromPtr(nil))
	assert.Nil(t, NewDate(time.Time{}))

	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	got := DateFromPtr(&ts)
	require.NotNil(t, got)
	assert.Equal(t, "2024-01-02", got.Format(DateLayout))
}

func TestProfileDisplayNameAndOnboarding(t *testing.T) {
	p := Profile{GivenName: "Maria", FamilyName: "Silva"}
	assert.Equal(t, "Maria Silva", p.DisplayName())
	assert.False(t, p.IsOnboarded())

	p.FullName = "Maria da Silva"
	p.Nickname = "Mari"
	p.BirthDate = NewDate(time.Date(2000, 5, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "Maria da Silva", p.DisplayName())
	assert.True(t, p.IsOnboarded())

	assert.Equal(t, "", Profile{}.DisplayName())
	assert.Equal(t, "Silva", Profile{FamilyName: "Silva"}.DisplayName())
}
