package portal

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
	"github.com/noah-isme/campus-od-api/pkg/validation"
)

// FieldError names the first invalid form field.
type FieldError = validation.FieldError

// RequestCreator submits OD requests. *odclient.Client satisfies it.
type RequestCreator interface {
	CreateRequest(ctx context.Context, req odclient.NewRequest) (*odclient.Request, error)
}

// intakeFields is validated in form order.
type intakeFields struct {
	Name        string `json:"name" validate:"notblank"`
	RollNo      string `json:"roll_no" validate:"notblank"`
	DeptName    string `json:"dept_name" validate:"notblank"`
	Section     string `json:"section" validate:"notblank"`
	Reason      string `json:"reason" validate:"selected,od_reason"`
	Venue       string `json:"venue" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
	Email       string `json:"email" validate:"notblank,college_email"`
}

// IntakeForm collects a student's OD request.
type IntakeForm struct {
	Name        string
	RollNo      string
	DeptName    string
	Section     string
	Reason      string
	Venue       string
	Description string

	// OnSubmitted runs after a successful submit, typically to switch to the history view.
	OnSubmitted func(*odclient.Request)

	email     string
	client    RequestCreator
	validator *validation.Validator
	now       func() time.Time
}

// NewIntakeForm returns a form bound to the session email, prefilled from it.
func NewIntakeForm(client RequestCreator, email string, v *validation.Validator) *IntakeForm {
	if v == nil {
		v = validation.New("")
	}
	f := &IntakeForm{client: client, validator: v, now: time.Now}
	f.Prefill(email)
	return f
}

// Email returns the session email the form submits for.
func (f *IntakeForm) Email() string {
	return f.email
}

// Prefill sets the session email and derives name and department from it.
// Fields the student already typed are kept.
func (f *IntakeForm) Prefill(email string) {
	f.email = strings.TrimSpace(email)
	name, dept := validation.ProfileFromEmail(f.email)
	if strings.TrimSpace(f.Name) == "" {
		f.Name = name
	}
	if strings.TrimSpace(f.DeptName) == "" {
		f.DeptName = dept
	}
}

// Reasons lists the options for the reason picker.
func (f *IntakeForm) Reasons() []string {
	return append([]string(nil), validation.Reasons...)
}

// Validate returns a *FieldError for the first failing field, or nil.
func (f *IntakeForm) Validate() error {
	return f.validator.Struct(f.fields())
}

// Submit validates and sends the request. Validation failures never reach the
// network. On success the per-request fields are cleared while name,
// department and email stay for the next request.
func (f *IntakeForm) Submit(ctx context.Context) (*odclient.Request, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	fields := f.fields()
	created, err := f.client.CreateRequest(ctx, odclient.NewRequest{
		StudentEmail: fields.Email,
		Name:         fields.Name,
		RollNo:       fields.RollNo,
		DeptName:     fields.DeptName,
		Section:      fields.Section,
		Reason:       fields.Reason,
		Venue:        fields.Venue,
		Description:  fields.Description,
		AppliedAt:    f.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	f.RollNo = ""
	f.Section = ""
	f.Reason = ""
	f.Venue = ""
	f.Description = ""

	if f.OnSubmitted != nil {
		f.OnSubmitted(created)
	}
	return created, nil
}

func (f *IntakeForm) fields() intakeFields {
	return intakeFields{
		Name:        strings.TrimSpace(f.Name),
		RollNo:      strings.TrimSpace(f.RollNo),
		DeptName:    strings.TrimSpace(f.DeptName),
		Section:     strings.TrimSpace(f.Section),
		Reason:      strings.TrimSpace(f.Reason),
		Venue:       strings.TrimSpace(f.Venue),
		Description: strings.TrimSpace(f.Description),
		Email:       f.email,
	}
}
