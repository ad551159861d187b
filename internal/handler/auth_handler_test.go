package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-od-api/internal/models"
	appErrors "github.com/noah-isme/campus-od-api/pkg/errors"
)

type fakeAuthService struct {
	studentReq models.StudentLoginRequest
	facultyReq models.LoginRequest
	loginErr   error
	logoutUser string
	logoutTok  string
}

func (f *fakeAuthService) StudentLogin(_ context.Context, req models.StudentLoginRequest) (*models.LoginResponse, error) {
	f.studentReq = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "student-token", User: models.UserInfo{Email: req.Email, Role: models.RoleStudent}}, nil
}

func (f *fakeAuthService) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.facultyReq = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "faculty-token", User: models.UserInfo{Email: req.Email, Role: models.RoleFaculty}}, nil
}

func (f *fakeAuthService) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "next"}, nil
}

func (f *fakeAuthService) Logout(_ context.Context, refreshToken, userID string, _ models.LoginRequest) error {
	f.logoutTok = refreshToken
	f.logoutUser = userID
	return nil
}

func TestAuthHandlerStudentLogin(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)

	c, rec := newODTestContext(http.MethodPost, "/auth/login", []byte(`{"email":"asha.cse2024@citchennai.net"}`), nil)
	c.Request.Header.Set("User-Agent", "odctl")
	h.StudentLogin(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "asha.cse2024@citchennai.net", svc.studentReq.Email)
	assert.Equal(t, "odctl", svc.studentReq.UserAgent)
	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, "student-token", res.AccessToken)
}

func TestAuthHandlerFacultyLoginRejected(t *testing.T) {
	svc := &fakeAuthService{loginErr: appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")}
	h := NewAuthHandler(svc)

	c, rec := newODTestContext(http.MethodPost, "/od/auth/faculty-login", []byte(`{"email":"hod@citchennai.net","password":"nope"}`), nil)
	h.FacultyLogin(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decodeEnvelope(t, rec).Error.Message)
	assert.Equal(t, "hod@citchennai.net", svc.facultyReq.Email)
}

func TestAuthHandlerLogoutAndMe(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)
	claims := &models.JWTClaims{UserID: "f-1", Email: "hod@citchennai.net", Role: models.RoleFaculty, FullName: "HOD"}

	c, _ := newODTestContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"r-1"}`), claims)
	h.Logout(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "r-1", svc.logoutTok)
	assert.Equal(t, "f-1", svc.logoutUser)

	c, rec := newODTestContext(http.MethodGet, "/auth/me", nil, claims)
	h.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.UserInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &info))
	assert.Equal(t, models.RoleFaculty, info.Role)

	c, rec = newODTestContext(http.MethodGet, "/auth/me", nil, nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
