package search

import (
	"strconv"
	"strings"

	"brokenweave/internal/model"
)

// Query is a parameterised WHERE clause over missing_persons.
type Query struct {
	Where string
	Args  []any
}

const orderBy = "ORDER BY reported_at DESC, id DESC"

// SQL renders the full statement selecting columns.
func (q Query) SQL(columns string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM missing_persons")
	if q.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	b.WriteString(" ")
	b.WriteString(orderBy)
	return b.String()
}

// Compose translates c into the backend predicate. The age filter is not part
// of it; apply ApplyAge to the rows. Call Validate first: unknown category or
// status values are skipped here.
func Compose(c Criteria) Query {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if categoryActive(c.Category) {
		if cat, err := model.ParseCategory(c.Category); err == nil {
			conds = append(conds, "category = "+next(string(cat)))
		}
	}
	if term := strings.TrimSpace(c.Term); term != "" {
		p := next(likePattern(term))
		conds = append(conds, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if loc := strings.TrimSpace(c.Location); loc != "" {
		conds = append(conds, "last_known_location ILIKE "+next(likePattern(loc)))
	}
	switch strings.ToLower(strings.TrimSpace(c.Status)) {
	case "missing":
		conds = append(conds, "case_state = "+next(string(model.CaseMissing)))
	case "investigating":
		conds = append(conds, "case_state = "+next(string(model.CaseInvestigating)))
	case "found":
		conds = append(conds, "case_state IN ("+next(string(model.CaseFoundReunited))+", "+next(string(model.CaseFoundNotReunited))+")")
	}
	if !c.IncludeReunited {
		conds = append(conds, "case_state <> "+next(string(model.CaseFoundReunited)))
	}

	return Query{Where: strings.Join(conds, " AND "), Args: args}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a substring ILIKE, escaping LIKE metacharacters.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
