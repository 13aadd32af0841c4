package service

import (
	"strings"

	"brokenweave/internal/model"
)

func (f ListFilter) term() string {
	return strings.ToLower(strings.TrimSpace(f.Term))
}

func (f ListFilter) status() string {
	s := strings.ToLower(strings.TrimSpace(f.Status))
	if s == "all" {
		return ""
	}
	return s
}

// containsAny reports whether any of fields contains term, ignoring case. An
// empty term matches everything.
func containsAny(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func keep[T any](items []T, match func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if match(it) {
			out = append(out, it)
		}
	}
	return out
}

// FilterReports keeps reports whose name or last known location contains the
// term and whose listing status matches.
func FilterReports(reports []model.MissingPerson, f ListFilter) []model.MissingPerson {
	term, status := f.term(), f.status()
	return keep(reports, func(r model.MissingPerson) bool {
		if status != "" && r.CaseState.Status() != status {
			return false
		}
		return containsAny(term, r.Name, r.LastKnownLocation)
	})
}

// FilterUsers matches the term against username and email.
func FilterUsers(users []model.User, f ListFilter) []model.User {
	term := f.term()
	return keep(users, func(u model.User) bool {
		return containsAny(term, u.Username, u.Email)
	})
}

// FilterVolunteers matches the term against name, email and skills.
func FilterVolunteers(volunteers []model.Volunteer, f ListFilter) []model.Volunteer {
	term := f.term()
	return keep(volunteers, func(v model.Volunteer) bool {
		return containsAny(term, v.Name, v.Email, v.Skills)
	})
}
