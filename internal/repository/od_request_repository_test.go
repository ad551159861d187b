package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-od-api/internal/models"
)

var odColumns = []string{"id", "student_email", "name", "roll_no", "dept_name", "section", "reason", "venue", "description", "status", "applied_at", "reviewed_by", "reviewed_at", "updated_at"}

func newODRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func odRow(rows *sqlmock.Rows, id, email string, status models.ODStatus, applied time.Time) *sqlmock.Rows {
	return rows.AddRow(id, email, "Asha", "21CS001", "CSE", "A", "Hackathon", "IIT Madras", "Shaastra", string(status), applied, nil, nil, applied)
}

func TestODRequestRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newODRepoMock(t)
	defer cleanup()

	repo := NewODRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO od_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.ODRequest{StudentEmail: "asha.cse2024@citchennai.net", Name: "Asha"}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.ODStatusPending, req.Status)
	assert.False(t, req.AppliedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestODRequestRepositoryCreateKeepsAppliedAt(t *testing.T) {
	db, mock, cleanup := newODRepoMock(t)
	defer cleanup()

	repo := NewODRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO od_requests")).
		WillReturnError(errors.New("boom"))

	applied := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	req := &models.ODRequest{AppliedAt: applied}
	err := repo.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create od request")
	assert.Equal(t, applied, req.AppliedAt)
}

func TestODRequestRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newODRepoMock(t)
	defer cleanup()

	repo := NewODRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_email")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestODRequestRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newODRepoMock(t)
	defer cleanup()

	repo := NewODRequestRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(odColumns)
	odRow(rows, "od-2", "asha.cse2024@citchennai.net", models.ODStatusPending, now)
	odRow(rows, "od-1", "asha.cse2024@citchennai.net", models.ODStatusApproved, now.Add(-time.Hour))
	mock.ExpectQuery(`FROM od_requests WHERE student_email = \$1 ORDER BY applied_at DESC`).
		WithArgs("asha.cse2024@citchennai.net").
		WillReturnRows(rows)

	list, err := repo.ListByStudent(context.Background(), "asha.cse2024@citchennai.net")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "od-2", list[0].ID)
	assert.Equal(t, models.ODStatusApproved, list[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestODRequestRepositoryListFiltersAndPaging(t *testing.T) {
	db, mock, cleanup := newODRepoMock(t)
	defer cleanup()

	repo := NewODRequestRepository(db)
	rows := sqlmock.NewRows(odColumns)
	odRow(rows, "od-1", "asha.cse2024@citchennai.net", models.ODStatusPending, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("AND status = $1 AND (LOWER(name) LIKE $2 OR LOWER(roll_no) LIKE $2")+".*"+regexp.QuoteMeta("ORDER BY applied_at ASC LIMIT 10 OFFSET 10")).
		WithArgs(models.ODStatusPending, "%asha%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM od_requests WHERE 1=1 AND status = $1")).
		WithArgs(models.ODStatusPending, "%asha%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	list, total, err := repo.List(context.Background(), models.ODRequestFilter{
		Status:    models.ODStatusPending,
		Search:    " Asha ",
		SortOrder: "date-asc",
		Page:      2,
		PageSize:  10,
	})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestODRequestRepositoryListUnpaged(t *testing.T) {
	db, mock, cleanup := newODRepoMock(t)
	defer cleanup()

	repo := NewODRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM od_requests WHERE 1=1 ORDER BY status ASC, applied_at DESC") + "$").
		WillReturnRows(sqlmock.NewRows(odColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM od_requests WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.ODRequestFilter{SortOrder: "status"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestODRequestRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newODRepoMock(t)
	defer cleanup()

	repo := NewODRequestRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(odColumns).
		AddRow("od-1", "asha.cse2024@citchennai.net", "Asha", "21CS001", "CSE", "A", "Hackathon", "IIT", "desc", "approved", now, "fac-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE od_requests SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1 RETURNING")).
		WithArgs("od-1", models.ODStatusApproved, "fac-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	updated, err := repo.UpdateStatus(context.Background(), UpdateODStatusParams{
		ID:         "od-1",
		Status:     models.ODStatusApproved,
		ReviewedBy: "fac-1",
		ReviewedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ODStatusApproved, updated.Status)
	require.NotNil(t, updated.ReviewedBy)
	assert.Equal(t, "fac-1", *updated.ReviewedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestODRequestRepositoryUpdateStatusOnlyPending(t *testing.T) {
	db, mock, cleanup := newODRepoMock(t)
	defer cleanup()

	repo := NewODRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = 'pending' RETURNING")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStatus(context.Background(), UpdateODStatusParams{
		ID:          "od-1",
		Status:      models.ODStatusRejected,
		ReviewedAt:  time.Now(),
		OnlyPending: true,
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestODRequestRepositoryStats(t *testing.T) {
	db, mock, cleanup := newODRepoMock(t)
	defer cleanup()

	repo := NewODRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE status = 'pending') AS pending")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "approved", "rejected"}).AddRow(6, 3, 2, 1))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ODStats{Total: 6, Pending: 3, Approved: 2, Rejected: 1}, *stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
