// Package validation wires go-playground/validator with English translations and the
// custom tags used by OD request payloads.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	CollegeEmailTag = "college_email"
	NotBlankTag     = "notblank"
	ReasonTag       = "od_reason"
	SelectedTag     = "selected"

	DefaultEmailDomain = "citchennai.net"
)

// Reasons lists the OD reasons a student may pick.
var Reasons = []string{
	"Academic Event",
	"Sports Event",
	"Cultural Event",
	"Hackathon",
	"Workshop",
	"Conference",
	"Medical",
	"Other",
}

// Validator bundles the validator instance, its translator and the college email rule.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
	email      *regexp.Regexp
	domain     string
}

// FieldError reports the first invalid field using its JSON name.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// New builds a Validator accepting student emails on the given domain.
func New(domain string) *Validator {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
	if domain == "" {
		domain = DefaultEmailDomain
	}

	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{
		validate:   validate,
		translator: translator,
		email:      EmailPattern(domain),
		domain:     domain,
	}

	_ = validate.RegisterValidation(NotBlankTag, notBlank)
	_ = validate.RegisterValidation(SelectedTag, notBlank)
	_ = validate.RegisterValidation(CollegeEmailTag, func(fl validator.FieldLevel) bool {
		return v.email.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation(ReasonTag, func(fl validator.FieldLevel) bool {
		return IsKnownReason(fl.Field().String())
	})

	v.registerMessage("required", "{0} is required")
	v.registerMessage(NotBlankTag, "{0} is required")
	v.registerMessage(CollegeEmailTag, fmt.Sprintf("{0} must look like name.dept2024@%s", domain))
	v.registerMessage(ReasonTag, "{0} is not a recognised option")
	v.registerMessage(SelectedTag, "please select a {0}")

	return v
}

// EmailPattern returns the case-sensitive student email rule for a domain.
func EmailPattern(domain string) *regexp.Regexp {
	return regexp.MustCompile(`^[a-z]+\.[a-z]+[0-9]{4}@` + regexp.QuoteMeta(domain) + `$`)
}

// Domain returns the configured student email domain.
func (v *Validator) Domain() string {
	return v.domain
}

// ValidEmail reports whether email matches the student pattern.
func (v *Validator) ValidEmail(email string) bool {
	return v.email.MatchString(email)
}

// Struct validates s and converts the first failure into a *FieldError.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &FieldError{Field: fe.Field(), Message: fe.Translate(v.translator)}
}

// Engine exposes the underlying validator for services that expect one.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// IsKnownReason reports whether reason is one of Reasons.
func IsKnownReason(reason string) bool {
	for _, r := range Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// ProfileFromEmail derives a display name and department code from a student
// email: "priya.cse2023@..." gives ("Priya", "CSE"). Missing parts come back empty.
func ProfileFromEmail(email string) (name, dept string) {
	local := strings.SplitN(strings.TrimSpace(email), "@", 2)[0]
	parts := strings.SplitN(local, ".", 2)
	if first := parts[0]; first != "" {
		r, size := utf8.DecodeRuneInString(first)
		name = string(unicode.ToUpper(r)) + first[size:]
	}
	if len(parts) == 2 {
		dept = strings.ToUpper(strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return -1
			}
			return r
		}, parts[1]))
	}
	return name, dept
}

func (v *Validator) registerMessage(tag, text string) {
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}
