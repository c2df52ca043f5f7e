// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, the sync job and the dashboard client can all import
// types without depending on each other.
package types

import (
	"strings"
	"time"
)

// Sync frequencies accepted in SyncSettings.SyncFrequency.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Defaults applied to a freshly created student.
const (
	DefaultSyncTime      = "02:00"
	DefaultSyncFrequency = FrequencyDaily
)

// Student represents a competitive-programming account tracked by the
// dashboard. It is the only entity this system persists.
//
// Struct tags serve two purposes:
//
//  1. json:"..." controls how the field appears on the wire. The names
//     are camelCase to match what the dashboard front-end expects.
//
//  2. validate:"..." lists the rules checked by go-playground/validator. The custom
//     tags (cfemail, phone, synctime) are registered in validate.go.
type Student struct {
	ID               string `json:"id"`
	Name             string `json:"name"  validate:"required"`
	Email            string `json:"email" validate:"required,cfemail"`
	PhoneNumber      string `json:"phoneNumber,omitempty" validate:"omitempty,phone"`
	CodeforcesHandle string `json:"codeforcesHandle,omitempty"`
	CurrentRating    int    `json:"currentRating" validate:"min=0"`
	MaxRating        int    `json:"maxRating"     validate:"min=0"`

	SyncSettings SyncSettings `json:"syncSettings"`

	// LastSyncedAt is nil until the rating sync has written live data.
	LastSyncedAt     *time.Time `json:"lastSyncedAt"`
	ReminderCount    int        `json:"reminderCount" validate:"min=0"`
	LastReminderSent *time.Time `json:"lastReminderSent"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SyncSettings controls when the rating sync job refreshes a student.
type SyncSettings struct {
	SyncTime       string `json:"syncTime"      validate:"required,synctime"`
	SyncFrequency  string `json:"syncFrequency" validate:"required,oneof=daily weekly monthly"`
	EmailReminders bool   `json:"emailReminders"`
}

// DefaultSyncSettings returns the settings given to new students.
func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		SyncTime:       DefaultSyncTime,
		SyncFrequency:  DefaultSyncFrequency,
		EmailReminders: true,
	}
}

// StudentInput is the request body for create and update.
//
// Every field is a pointer so we can tell "not sent" (nil) apart from
// "sent as empty/zero". An update only touches the fields that were sent.
type StudentInput struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	PhoneNumber      *string `json:"phoneNumber"`
	CodeforcesHandle *string `json:"codeforcesHandle"`
	CurrentRating    *int    `json:"currentRating"`
	MaxRating        *int    `json:"maxRating"`
}

// NewStudent builds a student from a create request: defaults first, then
// the supplied fields, then normalisation. The result still needs Validate.
func NewStudent(in StudentInput) Student {
	s := Student{SyncSettings: DefaultSyncSettings()}
	in.Apply(&s)
	return s
}

// Apply copies every non-nil field of in onto s and normalises the result.
func (in StudentInput) Apply(s *Student) {
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Email != nil {
		s.Email = *in.Email
	}
	if in.PhoneNumber != nil {
		s.PhoneNumber = *in.PhoneNumber
	}
	if in.CodeforcesHandle != nil {
		s.CodeforcesHandle = *in.CodeforcesHandle
	}
	if in.CurrentRating != nil {
		s.CurrentRating = *in.CurrentRating
	}
	if in.MaxRating != nil {
		s.MaxRating = *in.MaxRating
	}
	s.Normalize()
}

// Normalize trims text fields and lowercases the email so uniqueness is
// case-insensitive at the store level.
func (s *Student) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.PhoneNumber = strings.TrimSpace(s.PhoneNumber)
	s.CodeforcesHandle = strings.TrimSpace(s.CodeforcesHandle)
	s.SyncSettings.SyncTime = strings.TrimSpace(s.SyncSettings.SyncTime)
	s.SyncSettings.SyncFrequency = strings.ToLower(strings.TrimSpace(s.SyncSettings.SyncFrequency))
}

// SyncSettingsInput is the body of PUT /api/students/{id}/sync-settings.
type SyncSettingsInput struct {
	SyncTime       *string `json:"syncTime"`
	SyncFrequency  *string `json:"syncFrequency"`
	EmailReminders *bool   `json:"emailReminders"`
}

// Apply copies the non-nil settings onto s.
func (in SyncSettingsInput) Apply(s *Student) {
	if in.SyncTime != nil {
		s.SyncSettings.SyncTime = *in.SyncTime
	}
	if in.SyncFrequency != nil {
		s.SyncSettings.SyncFrequency = *in.SyncFrequency
	}
	if in.EmailReminders != nil {
		s.SyncSettings.EmailReminders = *in.EmailReminders
	}
	s.Normalize()
}

// SyncHour returns the hour encoded in SyncTime ("HH:00"), or -1 when the
// value is malformed.
func (ss SyncSettings) SyncHour() int {
	if !syncTimeRegex.MatchString(ss.SyncTime) {
		return -1
	}
	return int(ss.SyncTime[0]-'0')*10 + int(ss.SyncTime[1]-'0')
}

// Profile is a student enriched with live rating data from the lookup.
//
// Live reports whether CurrentRating/MaxRating came from the third party
// (true) or are the last stored values (false). LookupError is set when a
// lookup was attempted and failed.
type Profile struct {
	Student
	Live         bool       `json:"live"`
	LastOnlineAt *time.Time `json:"lastOnlineAt,omitempty"`
	LookupError  string     `json:"lookupError,omitempty"`
}
