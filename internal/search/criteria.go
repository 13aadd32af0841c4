// Package search turns missing-person filter criteria into a backend query and
// applies the filters the database cannot evaluate.
package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"brokenweave/internal/model"
)

// Criteria are the user-entered filters. Empty fields do not filter.
type Criteria struct {
	Term            string `json:"term" form:"term"`
	Location        string `json:"location" form:"location"`
	Category        string `json:"category" form:"category"`
	AgeRange        string `json:"age_range" form:"age_range"`
	Status          string `json:"status" form:"status"`
	IncludeReunited bool   `json:"include_reunited" form:"include_reunited"`
}

// IsEmpty reports whether c is the unfiltered default listing.
func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Term) == "" &&
		strings.TrimSpace(c.Location) == "" &&
		!categoryActive(c.Category) &&
		strings.TrimSpace(c.AgeRange) == "" &&
		!statusActive(c.Status)
}

type AgeRange struct {
	Min int
	Max int
}

// ParseAgeRange reads the first two "-"-separated parts of s, each by its
// leading digits, so "5-10-20" and "5yrs-10" both mean 5 to 10. ok is false
// when either part has no leading number, in which case no age filter applies.
func ParseAgeRange(s string) (AgeRange, bool) {
	parts := strings.Split(s, "-")
	if len(parts) < 2 {
		return AgeRange{}, false
	}
	minAge, ok := leadingInt(parts[0])
	if !ok {
		return AgeRange{}, false
	}
	maxAge, ok := leadingInt(parts[1])
	if !ok {
		return AgeRange{}, false
	}
	return AgeRange{Min: minAge, Max: maxAge}, true
}

// leadingInt parses the run of digits at the start of the trimmed s,
// allowing a leading "+".
func leadingInt(s string) (int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// AgeOf is the calendar-year difference between dob and now.
func AgeOf(dob, now time.Time) int {
	return now.Year() - dob.Year()
}

// FilterByAge keeps records with a dob whose age falls within r.
func FilterByAge(records []model.MissingPerson, r AgeRange, now time.Time) []model.MissingPerson {
	out := make([]model.MissingPerson, 0, len(records))
	for _, rec := range records {
		if rec.DOB != nil && r.Contains(AgeOf(*rec.DOB, now)) {
			out = append(out, rec)
		}
	}
	return out
}

// ApplyAge applies the age filter of c, if any, to records.
func ApplyAge(records []model.MissingPerson, c Criteria, now time.Time) []model.MissingPerson {
	r, ok := ParseAgeRange(c.AgeRange)
	if !ok {
		return records
	}
	return FilterByAge(records, r, now)
}

// Matches evaluates every filter of c against rec in memory.
func Matches(rec model.MissingPerson, c Criteria, now time.Time) bool {
	if term := strings.ToLower(strings.TrimSpace(c.Term)); term != "" {
		if !strings.Contains(strings.ToLower(rec.Name), term) &&
			!strings.Contains(strings.ToLower(rec.Description), term) {
			return false
		}
	}
	if loc := strings.ToLower(strings.TrimSpace(c.Location)); loc != "" {
		if !strings.Contains(strings.ToLower(rec.LastKnownLocation), loc) {
			return false
		}
	}
	if categoryActive(c.Category) {
		cat, err := model.ParseCategory(c.Category)
		if err != nil || rec.Category != cat {
			return false
		}
	}
	if statusActive(c.Status) && rec.CaseState.Status() != strings.ToLower(strings.TrimSpace(c.Status)) {
		return false
	}
	if !c.IncludeReunited && rec.CaseState.IsReunited() {
		return false
	}
	if r, ok := ParseAgeRange(c.AgeRange); ok {
		if rec.DOB == nil || !r.Contains(AgeOf(*rec.DOB, now)) {
			return false
		}
	}
	return true
}

// Validate rejects values that cannot be turned into a predicate.
func (c Criteria) Validate() error {
	if categoryActive(c.Category) {
		if _, err := model.ParseCategory(c.Category); err != nil {
			return err
		}
	}
	if statusActive(c.Status) {
		switch strings.ToLower(strings.TrimSpace(c.Status)) {
		case "missing", "investigating", "found":
		default:
			return fmt.Errorf("unknown status %q", c.Status)
		}
	}
	return nil
}

func categoryActive(c string) bool {
	c = strings.ToLower(strings.TrimSpace(c))
	return c != "" && c != "all"
}

func statusActive(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s != "" && s != "all"
}
