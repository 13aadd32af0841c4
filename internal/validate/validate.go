// Package validate checks form input before anything reaches the backend.
package validate

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"brokenweave/internal/model"
)

const (
	notBlankTag  = "notblank"
	categoryTag  = "category"
	pastDateTag  = "pastdate"
	caseStateTag = "case_state"
	dateLayout   = "2006-01-02"
)

var customMessages = map[string]string{
	notBlankTag:  "{0} cannot be blank",
	categoryTag:  "{0} must be one of child, woman, senior, other",
	pastDateTag:  "{0} must be a date (YYYY-MM-DD) not in the future",
	caseStateTag: "{0} must be one of missing, investigating, found_reunited, found_not_reunited",
	"eqfield":    "{0} must match {1}",
}

// Error lists the failed fields with human-readable messages, keyed by JSON name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Field builds a single-field Error.
func Field(name, msg string) *Error {
	return &Error{Fields: map[string]string{name: msg}}
}

type Validator struct {
	v     *validator.Validate
	trans ut.Translator
	now   func() time.Time
}

func New() *Validator {
	val := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: time.Now}

	english := en.New()
	uni := ut.New(english, english)
	val.trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(val.v, val.trans)

	val.v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = val.v.RegisterValidation(notBlankTag, notBlank)
	_ = val.v.RegisterValidation(categoryTag, validCategory)
	_ = val.v.RegisterValidation(caseStateTag, validCaseState)
	_ = val.v.RegisterValidation(pastDateTag, val.pastDate)

	for tag, msg := range customMessages {
		msg := msg
		_ = val.v.RegisterTranslation(tag, val.trans,
			func(t ut.Translator) error { return t.Add(tag, msg, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, err := t.T(fe.Tag(), fe.Field(), fe.Param())
				if err != nil {
					return fe.Error()
				}
				return s
			},
		)
	}
	return val
}

// Struct validates s and returns *Error when any field fails.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		if _, ok := out.Fields[fe.Field()]; !ok {
			out.Fields[fe.Field()] = fe.Translate(val.trans)
		}
	}
	return out
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func validCategory(fl validator.FieldLevel) bool {
	_, err := model.ParseCategory(fl.Field().String())
	return err == nil
}

func validCaseState(fl validator.FieldLevel) bool {
	_, err := model.ParseCaseState(fl.Field().String())
	return err == nil
}

func (val *Validator) pastDate(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return false
	}
	return !d.After(val.now())
}

// ParseDate parses an optional YYYY-MM-DD value.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
