package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryChild  Category = "child"
	CategoryWoman  Category = "woman"
	CategorySenior Category = "senior"
	CategoryOther  Category = "other"
)

// ParseCategory accepts the stored names plus the form aliases
// "senior-citizen" and "unknown".
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "child":
		return CategoryChild, nil
	case "woman":
		return CategoryWoman, nil
	case "senior", "senior-citizen":
		return CategorySenior, nil
	case "other", "unknown":
		return CategoryOther, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// CaseState is the single lifecycle value of a missing-person record.
type CaseState string

const (
	CaseMissing          CaseState = "missing"
	CaseInvestigating    CaseState = "investigating"
	CaseFoundReunited    CaseState = "found_reunited"
	CaseFoundNotReunited CaseState = "found_not_reunited"
)

func ParseCaseState(s string) (CaseState, error) {
	switch st := CaseState(strings.ToLower(strings.TrimSpace(s))); st {
	case CaseMissing, CaseInvestigating, CaseFoundReunited, CaseFoundNotReunited:
		return st, nil
	}
	return "", fmt.Errorf("unknown case state %q", s)
}

// Status is the coarse status shown on listings: missing, investigating or found.
func (s CaseState) Status() string {
	switch s {
	case CaseFoundReunited, CaseFoundNotReunited:
		return "found"
	case "":
		return string(CaseMissing)
	}
	return string(s)
}

func (s CaseState) IsReunited() bool {
	return s == CaseFoundReunited
}

type MissingPerson struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	DOB               *time.Time `json:"dob,omitempty"`
	Category          Category   `json:"category"`
	LastKnownLocation string     `json:"last_known_location"`
	Description       string     `json:"description"`
	ContactInfo       string     `json:"contact_info"`
	ImageURL          string     `json:"image_url"`
	CaseState         CaseState  `json:"case_state"`
	ReportedBy        *int64     `json:"reported_by,omitempty"`
	ReportedAt        time.Time  `json:"reported_at"`
}

// MarshalJSON adds the derived status and is_reunited fields.
func (m MissingPerson) MarshalJSON() ([]byte, error) {
	type plain MissingPerson
	var dob *string
	if m.DOB != nil {
		s := m.DOB.Format("2006-01-02")
		dob = &s
	}
	return json.Marshal(struct {
		plain
		DOB        *string `json:"dob,omitempty"`
		Status     string  `json:"status"`
		IsReunited bool    `json:"is_reunited"`
	}{
		plain:      plain(m),
		DOB:        dob,
		Status:     m.CaseState.Status(),
		IsReunited: m.CaseState.IsReunited(),
	})
}

// FormatContactInfo builds the contact blob "Name: n | Phone: p | Email: e",
// leaving out empty parts.
func FormatContactInfo(name, phone, email string) string {
	var parts []string
	if v := strings.TrimSpace(name); v != "" {
		parts = append(parts, "Name: "+v)
	}
	if v := strings.TrimSpace(phone); v != "" {
		parts = append(parts, "Phone: "+v)
	}
	if v := strings.TrimSpace(email); v != "" {
		parts = append(parts, "Email: "+v)
	}
	return strings.Join(parts, " | ")
}
