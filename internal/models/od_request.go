package models

import "time"

// ODStatus captures the review state of an OD request.
type ODStatus string

const (
	ODStatusPending  ODStatus = "pending"
	ODStatusApproved ODStatus = "approved"
	ODStatusRejected ODStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ODStatus) Valid() bool {
	switch s {
	case ODStatusPending, ODStatusApproved, ODStatusRejected:
		return true
	}
	return false
}

// ODRequest is a student's on-duty request as stored in od_requests.
type ODRequest struct {
	ID           string     `db:"id" json:"id"`
	StudentEmail string     `db:"student_email" json:"student_email"`
	Name         string     `db:"name" json:"name"`
	RollNo       string     `db:"roll_no" json:"roll_no"`
	DeptName     string     `db:"dept_name" json:"dept_name"`
	Section      string     `db:"section" json:"section"`
	Reason       string     `db:"reason" json:"reason"`
	Venue        string     `db:"venue" json:"venue"`
	Description  string     `db:"description" json:"description"`
	Status       ODStatus   `db:"status" json:"status"`
	AppliedAt    time.Time  `db:"applied_at" json:"applied_at"`
	ReviewedBy   *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ODRequestFilter constrains list-all queries.
type ODRequestFilter struct {
	Status       ODStatus
	StudentEmail string
	Search       string
	SortOrder    string
	Page         int
	PageSize     int
}

// ODStats counts requests per status.
type ODStats struct {
	Total    int `db:"total" json:"total"`
	Pending  int `db:"pending" json:"pending"`
	Approved int `db:"approved" json:"approved"`
	Rejected int `db:"rejected" json:"rejected"`
}

// ODStatusChange is handed to notifiers after a successful review.
type ODStatusChange struct {
	Request    ODRequest `json:"request"`
	Previous   ODStatus  `json:"previous"`
	ReviewerID string    `json:"reviewer_id"`
}
