package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
)

type recordingCreator struct {
	calls []odclient.NewRequest
	err   error
}

func (r *recordingCreator) CreateRequest(_ context.Context, req odclient.NewRequest) (*odclient.Request, error) {
	r.calls = append(r.calls, req)
	if r.err != nil {
		return nil, r.err
	}
	return &odclient.Request{ID: "od-1", StudentEmail: req.StudentEmail, Status: odclient.StatusPending, AppliedAt: req.AppliedAt}, nil
}

func filledForm(creator RequestCreator) *IntakeForm {
	f := NewIntakeForm(creator, "priya.cse2023@citchennai.net", nil)
	f.RollNo = "21CS042"
	f.Section = "B"
	f.Reason = "Workshop"
	f.Venue = "Anna University"
	f.Description = "Cloud native workshop"
	return f
}

func TestIntakePrefill(t *testing.T) {
	f := NewIntakeForm(&recordingCreator{}, "priya.cse2023@citchennai.net", nil)
	assert.Equal(t, "Priya", f.Name)
	assert.Equal(t, "CSE", f.DeptName)
	assert.Equal(t, "priya.cse2023@citchennai.net", f.Email())

	f.Name = "Priya K"
	f.Prefill("priya.cse2023@citchennai.net")
	assert.Equal(t, "Priya K", f.Name)
}

func TestIntakeValidateFirstFailingField(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*IntakeForm)
		field   string
		message string
	}{
		{"name", func(f *IntakeForm) { f.Name = "" }, "name", "name is required"},
		{"roll_no", func(f *IntakeForm) { f.RollNo = "  " }, "roll_no", "roll_no is required"},
		{"dept_name", func(f *IntakeForm) { f.DeptName = "" }, "dept_name", "dept_name is required"},
		{"section", func(f *IntakeForm) { f.Section = "" }, "section", "section is required"},
		{"reason unset", func(f *IntakeForm) { f.Reason = "" }, "reason", "please select a reason"},
		{"reason unknown", func(f *IntakeForm) { f.Reason = "Picnic" }, "reason", "reason is not a recognised option"},
		{"venue", func(f *IntakeForm) { f.Venue = "" }, "venue", "venue is required"},
		{"description", func(f *IntakeForm) { f.Description = "" }, "description", "description is required"},
		{"email", func(f *IntakeForm) { f.Prefill("a@citchennai.net") }, "email", "email must look like name.dept2024@citchennai.net"},
		{"order", func(f *IntakeForm) { f.Venue = ""; f.RollNo = "" }, "roll_no", "roll_no is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &recordingCreator{}
			f := filledForm(creator)
			tt.mutate(f)

			_, err := f.Submit(context.Background())
			var fieldErr *FieldError
			require.True(t, errors.As(err, &fieldErr))
			assert.Equal(t, tt.field, fieldErr.Field)
			assert.Equal(t, tt.message, fieldErr.Message)
			assert.Empty(t, creator.calls)
		})
	}
}

func TestIntakeSubmitClearsPerRequestFields(t *testing.T) {
	creator := &recordingCreator{}
	f := filledForm(creator)
	f.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("IST", 5*3600+1800)) }
	var submitted *odclient.Request
	f.OnSubmitted = func(r *odclient.Request) { submitted = r }

	created, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, creator.calls, 1)

	sent := creator.calls[0]
	assert.Equal(t, "priya.cse2023@citchennai.net", sent.StudentEmail)
	assert.Equal(t, "Workshop", sent.Reason)
	assert.Equal(t, time.UTC, sent.AppliedAt.Location())
	assert.Equal(t, 3, sent.AppliedAt.Hour())
	assert.Equal(t, created, submitted)

	assert.Equal(t, "Priya", f.Name)
	assert.Equal(t, "CSE", f.DeptName)
	assert.Empty(t, f.RollNo)
	assert.Empty(t, f.Section)
	assert.Empty(t, f.Reason)
	assert.Empty(t, f.Venue)
	assert.Empty(t, f.Description)
}

func TestIntakeSubmitServerErrorKeepsFields(t *testing.T) {
	creator := &recordingCreator{err: &odclient.APIError{Status: 403, Message: "students may only submit requests for their own email"}}
	f := filledForm(creator)
	called := false
	f.OnSubmitted = func(*odclient.Request) { called = true }

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "students may only submit requests for their own email", err.Error())
	assert.False(t, called)
	assert.Equal(t, "Workshop", f.Reason)
	assert.Len(t, creator.calls, 1)
}

func TestIntakeEmailPattern(t *testing.T) {
	f := filledForm(&recordingCreator{})
	for email, ok := range map[string]bool{
		"a.b2024@citchennai.net": true,
		"a@citchennai.net":       false,
		"A.B2024@citchennai.net": false,
		"a.b24@citchennai.net":   false,
		"a.b2024@gmail.com":      false,
	} {
		f.email = email
		assert.Equal(t, ok, f.Validate() == nil, email)
	}
}
