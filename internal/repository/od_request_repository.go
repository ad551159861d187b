package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-od-api/internal/models"
)

const odRequestColumns = `id, student_email, name, roll_no, dept_name, section, reason, venue, description,
       status, applied_at, reviewed_by, reviewed_at, updated_at`

const maxODPageSize = 500

// ODRequestRepository persists OD requests.
type ODRequestRepository struct {
	db *sqlx.DB
}

// NewODRequestRepository constructs the repository.
func NewODRequestRepository(db *sqlx.DB) *ODRequestRepository {
	return &ODRequestRepository{db: db}
}

// Create inserts a new request. Status defaults to pending and applied_at to now.
func (r *ODRequestRepository) Create(ctx context.Context, req *models.ODRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.ODStatusPending
	}
	now := time.Now().UTC()
	if req.AppliedAt.IsZero() {
		req.AppliedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO od_requests
	(id, student_email, name, roll_no, dept_name, section, reason, venue, description, status, applied_at, reviewed_by, reviewed_at, updated_at)
	VALUES (:id, :student_email, :name, :roll_no, :dept_name, :section, :reason, :venue, :description, :status, :applied_at, :reviewed_by, :reviewed_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create od request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier. Unknown ids yield sql.ErrNoRows.
func (r *ODRequestRepository) GetByID(ctx context.Context, id string) (*models.ODRequest, error) {
	query := `SELECT ` + odRequestColumns + ` FROM od_requests WHERE id = $1`
	var req models.ODRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get od request: %w", err)
	}
	return &req, nil
}

// ListByStudent returns every request of one student, newest first.
func (r *ODRequestRepository) ListByStudent(ctx context.Context, email string) ([]models.ODRequest, error) {
	query := `SELECT ` + odRequestColumns + ` FROM od_requests WHERE student_email = $1 ORDER BY applied_at DESC`
	requests := make([]models.ODRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, email); err != nil {
		return nil, fmt.Errorf("list od requests by student: %w", err)
	}
	return requests, nil
}

// List returns requests matching the filter with the total count before paging.
// A zero PageSize returns every matching row.
func (r *ODRequestRepository) List(ctx context.Context, filter models.ODRequestFilter) ([]models.ODRequest, int, error) {
	baseQuery := `FROM od_requests WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.StudentEmail != "" {
		args = append(args, filter.StudentEmail)
		conditions = append(conditions, fmt.Sprintf("student_email = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(roll_no) LIKE $%d OR LOWER(student_email) LIKE $%d OR LOWER(reason) LIKE $%d)", n, n, n, n))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s", odRequestColumns, baseQuery, orderClause(filter.SortOrder))

	if filter.PageSize > 0 {
		pageSize := filter.PageSize
		if pageSize > maxODPageSize {
			pageSize = maxODPageSize
		}
		page := filter.Page
		if page < 1 {
			page = 1
		}
		listQuery += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	}

	requests := make([]models.ODRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list od requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count od requests: %w", err)
	}

	return requests, total, nil
}

// UpdateODStatusParams groups the columns written by a review.
type UpdateODStatusParams struct {
	ID         string
	Status     models.ODStatus
	ReviewedBy string
	ReviewedAt time.Time
	// OnlyPending restricts the update to rows still pending.
	OnlyPending bool
}

// UpdateStatus writes the review outcome and returns the stored row.
// sql.ErrNoRows means the id is unknown or, with OnlyPending, already reviewed.
func (r *ODRequestRepository) UpdateStatus(ctx context.Context, params UpdateODStatusParams) (*models.ODRequest, error) {
	query := `UPDATE od_requests SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1`
	if params.OnlyPending {
		query += fmt.Sprintf(" AND status = '%s'", models.ODStatusPending)
	}
	query += ` RETURNING ` + odRequestColumns

	var reviewer interface{}
	if params.ReviewedBy != "" {
		reviewer = params.ReviewedBy
	}

	var req models.ODRequest
	if err := r.db.GetContext(ctx, &req, query, params.ID, params.Status, reviewer, params.ReviewedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update od request status: %w", err)
	}
	return &req, nil
}

// Stats counts requests per status.
func (r *ODRequestRepository) Stats(ctx context.Context) (*models.ODStats, error) {
	const query = `SELECT COUNT(*) AS total,
       COUNT(*) FILTER (WHERE status = 'pending') AS pending,
       COUNT(*) FILTER (WHERE status = 'approved') AS approved,
       COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
	FROM od_requests`
	var stats models.ODStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("od request stats: %w", err)
	}
	return &stats, nil
}

func orderClause(sort string) string {
	switch sort {
	case "date-asc":
		return "applied_at ASC"
	case "status":
		return "status ASC, applied_at DESC"
	default:
		return "applied_at DESC"
	}
}
