package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/campus-od-api/internal/models"
)

// CreateODRequest is the create payload. Older clients send student_name and
// department, newer ones name and dept_name; both are accepted.
type CreateODRequest struct {
	StudentEmail string     `json:"student_email"`
	StudentName  string     `json:"student_name,omitempty"`
	Name         string     `json:"name,omitempty"`
	RollNo       string     `json:"roll_no"`
	Department   string     `json:"department,omitempty"`
	DeptName     string     `json:"dept_name,omitempty"`
	Section      string     `json:"section"`
	Reason       string     `json:"reason"`
	Venue        string     `json:"venue"`
	Description  string     `json:"description"`
	AppliedAt    *time.Time `json:"applied_at,omitempty"`
}

// ODRequestFields is the normalised create payload in form order.
type ODRequestFields struct {
	Name         string `json:"name" validate:"notblank"`
	RollNo       string `json:"roll_no" validate:"notblank"`
	DeptName     string `json:"dept_name" validate:"notblank"`
	Section      string `json:"section" validate:"notblank"`
	Reason       string `json:"reason" validate:"selected,od_reason"`
	Venue        string `json:"venue" validate:"notblank"`
	Description  string `json:"description" validate:"notblank"`
	StudentEmail string `json:"student_email" validate:"notblank,college_email"`
}

// Fields resolves aliases and trims surrounding whitespace.
func (r CreateODRequest) Fields() ODRequestFields {
	return ODRequestFields{
		Name:         firstNonBlank(r.Name, r.StudentName),
		RollNo:       strings.TrimSpace(r.RollNo),
		DeptName:     firstNonBlank(r.DeptName, r.Department),
		Section:      strings.TrimSpace(r.Section),
		Reason:       strings.TrimSpace(r.Reason),
		Venue:        strings.TrimSpace(r.Venue),
		Description:  strings.TrimSpace(r.Description),
		StudentEmail: strings.TrimSpace(r.StudentEmail),
	}
}

// UpdateODStatusRequest carries a faculty decision.
type UpdateODStatusRequest struct {
	Status models.ODStatus `json:"status"`
}

// ODQuery mirrors the list-all query string.
type ODQuery struct {
	Status string
	Search string
	Sort   string
	Page   int
	Limit  int
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
