package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-od-api/internal/models"
	"github.com/noah-isme/campus-od-api/internal/service"
)

type recordingCreator struct {
	requests []service.CreateUserRequest
	err      error
}

func (r *recordingCreator) Create(_ context.Context, req service.CreateUserRequest, actorID string, _ models.LoginRequest) (*models.User, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &models.User{ID: "u-1", Email: strings.ToLower(strings.TrimSpace(req.Email)), Role: req.Role, Active: true}, nil
}

type cliTest struct {
	name       string
	args       []string
	password   string
	storeErr   error
	wantErr    error
	wantErrStr string
	wantRole   models.UserRole
	wantEmail  string
}

func Test_commandLine_createFaculty(t *testing.T) {
	tests := []cliTest{
		{name: "no flags", args: nil, wantErr: errHelp},
		{name: "missing name", args: []string{"-email", "hod@citchennai.net"}, wantErr: errHelp},
		{name: "short password", args: []string{"-email", "hod@citchennai.net", "-name", "HOD"}, password: "short", wantErrStr: "password must be at least 8 characters"},
		{name: "store failure", args: []string{"-email", "hod@citchennai.net", "-name", "HOD"}, password: "long-enough", storeErr: errors.New("duplicate email"), wantErrStr: "duplicate email"},
		{name: "faculty", args: []string{"-email", " HOD@citchennai.net ", "-name", "HOD"}, password: "long-enough", wantRole: models.RoleFaculty, wantEmail: "hod@citchennai.net"},
		{name: "admin", args: []string{"-email", "dean@citchennai.net", "-name", "Dean", "-admin"}, password: "long-enough", wantRole: models.RoleAdmin, wantEmail: "dean@citchennai.net"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingCreator{err: tt.storeErr}
			out := &bytes.Buffer{}
			cli := &commandLine{users: store, out: out}
			readPasswordFunc = func(int) ([]byte, error) { return []byte(tt.password), nil }

			err := cli.createFaculty(context.Background(), tt.args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				return
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
				return
			}

			require.NoError(t, err)
			require.Len(t, store.requests, 1)
			req := store.requests[0]
			assert.Equal(t, tt.wantRole, req.Role)
			assert.Equal(t, tt.password, req.Password)
			assert.Contains(t, out.String(), "created "+strings.ToLower(string(tt.wantRole))+" account "+tt.wantEmail)
		})
	}
}
