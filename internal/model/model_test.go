package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory_Aliases(t *testing.T) {
	for in, want := range map[string]Category{
		"child":          CategoryChild,
		" Woman ":        CategoryWoman,
		"senior-citizen": CategorySenior,
		"unknown":        CategoryOther,
	} {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseCategory("adult")
	assert.Error(t, err)
}

func TestCaseState_Derived(t *testing.T) {
	assert.Equal(t, "missing", CaseMissing.Status())
	assert.Equal(t, "investigating", CaseInvestigating.Status())
	assert.Equal(t, "found", CaseFoundReunited.Status())
	assert.Equal(t, "found", CaseFoundNotReunited.Status())
	assert.True(t, CaseFoundReunited.IsReunited())
	assert.False(t, CaseFoundNotReunited.IsReunited())
}

func TestMissingPerson_MarshalJSON(t *testing.T) {
	dob := time.Date(2017, 3, 4, 0, 0, 0, 0, time.UTC)
	b, err := json.Marshal(MissingPerson{ID: 1, Name: "Priya", DOB: &dob, Category: CategoryChild, CaseState: CaseFoundReunited})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "2017-03-04", out["dob"])
	assert.Equal(t, "found", out["status"])
	assert.Equal(t, true, out["is_reunited"])
	assert.Equal(t, "found_reunited", out["case_state"])
}

func TestFormatContactInfo(t *testing.T) {
	assert.Equal(t, "Name: Asha | Phone: 123 | Email: a@b.org", FormatContactInfo("Asha", "123", "a@b.org"))
	assert.Equal(t, "Name: Asha | Email: a@b.org", FormatContactInfo("Asha", " ", "a@b.org"))
	assert.Equal(t, "", FormatContactInfo("", "", ""))
}
