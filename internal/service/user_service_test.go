package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-od-api/internal/models"
	appErrors "github.com/noah-isme/campus-od-api/pkg/errors"
)

type mockUserRepo struct {
	users        map[string]*models.User
	listUsers    []models.User
	listCount    int
	listErr      error
	lastFilter   models.UserFilter
	revoked      []string
	auditLogs    []*models.AuditLog
	findEmailErr error
}

func (m *mockUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listUsers, m.listCount, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		stored := *user
		return &stored, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.findEmailErr != nil {
		return nil, m.findEmailErr
	}
	for _, u := range m.users {
		if u.Email == email {
			stored := *u
			return &stored, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id string, active bool) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Active = active
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func TestUserServiceList(t *testing.T) {
	repo := &mockUserRepo{listUsers: []models.User{{ID: "1", Email: "hod.cse@citchennai.net"}}, listCount: 41}
	svc := NewUserService(repo, nil, zap.NewNop())

	role := models.RoleFaculty
	users, pagination, err := svc.List(context.Background(), models.UserFilter{Role: &role, Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 41}, pagination)
	assert.Equal(t, &role, repo.lastFilter.Role)

	repo.listErr = errors.New("db down")
	_, _, err = svc.List(context.Background(), models.UserFilter{})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	svc := NewUserService(repo, nil, zap.NewNop())

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    " HOD.CSE@citchennai.net ",
		FullName: "Head of CSE",
		Role:     models.RoleFaculty,
		Password: "secret123",
	}, "admin-1", models.LoginRequest{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "hod.cse@citchennai.net", user.Email)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))

	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
	assert.Equal(t, "admin-1", *repo.auditLogs[0].UserID)
	assert.Equal(t, "10.0.0.1", repo.auditLogs[0].IPAddress)

	_, err = svc.Create(context.Background(), CreateUserRequest{
		Email: "hod.cse@citchennai.net", FullName: "Again", Role: models.RoleFaculty, Password: "secret123",
	}, "admin-1", models.LoginRequest{})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUserServiceCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"student role", CreateUserRequest{Email: "a@citchennai.net", FullName: "A", Role: models.RoleStudent, Password: "secret123"}},
		{"short password", CreateUserRequest{Email: "a@citchennai.net", FullName: "A", Role: models.RoleFaculty, Password: "short"}},
		{"bad email", CreateUserRequest{Email: "not-an-email", FullName: "A", Role: models.RoleFaculty, Password: "secret123"}},
		{"blank name", CreateUserRequest{Email: "a@citchennai.net", FullName: "  ", Role: models.RoleAdmin, Password: "secret123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepo{}
			svc := NewUserService(repo, nil, zap.NewNop())

			_, err := svc.Create(context.Background(), tt.req, "admin-1", models.LoginRequest{})
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Empty(t, repo.users)
		})
	}
}

func TestUserServiceSetActive(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"f1": {ID: "f1", Email: "hod.cse@citchennai.net", Role: models.RoleFaculty, Active: true},
	}}
	svc := NewUserService(repo, nil, zap.NewNop())
	off := false

	user, err := svc.SetActive(context.Background(), "f1", SetActiveRequest{Active: &off}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.False(t, user.Active)
	assert.False(t, repo.users["f1"].Active)
	assert.Equal(t, []string{"f1"}, repo.revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserUpdate, repo.auditLogs[0].Action)
	assert.JSONEq(t, `{"active":true}`, string(repo.auditLogs[0].OldValues))

	on := true
	_, err = svc.SetActive(context.Background(), "f1", SetActiveRequest{Active: &on}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Len(t, repo.revoked, 1)
}

func TestUserServiceSetActiveErrors(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"admin-1": {ID: "admin-1", Role: models.RoleAdmin, Active: true}}}
	svc := NewUserService(repo, nil, zap.NewNop())
	off := false

	tests := []struct {
		name string
		id   string
		req  SetActiveRequest
		code string
	}{
		{"missing flag", "admin-1", SetActiveRequest{}, appErrors.ErrValidation.Code},
		{"self", "admin-1", SetActiveRequest{Active: &off}, appErrors.ErrValidation.Code},
		{"unknown", "nope", SetActiveRequest{Active: &off}, appErrors.ErrNotFound.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetActive(context.Background(), tt.id, tt.req, "admin-1", models.LoginRequest{})
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
	assert.Empty(t, repo.revoked)
}
