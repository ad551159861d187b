package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
)

type stubAuth struct {
	err  error
	user string
}

func (a *stubAuth) Authenticate(_ context.Context, username, _ string) error {
	a.user = username
	return a.err
}

type stubReviewer struct {
	list      []odclient.Request
	listErr   error
	updateErr error
	updates   []string
}

func (s *stubReviewer) ListAll(context.Context, odclient.ListOptions) ([]odclient.Request, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]odclient.Request(nil), s.list...), nil
}

func (s *stubReviewer) UpdateStatus(_ context.Context, id string, status odclient.Status) (*odclient.Request, error) {
	s.updates = append(s.updates, id+":"+string(status))
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	for _, r := range s.list {
		if r.ID == id {
			r.Status = status
			return &r, nil
		}
	}
	return nil, &odclient.APIError{Status: 404, Code: "NOT_FOUND", Message: "od request not found"}
}

func accept(string) bool  { return true }
func decline(string) bool { return false }

func loadedDashboard(t *testing.T) (*FacultyDashboard, *stubReviewer) {
	t.Helper()
	reviewer := &stubReviewer{list: sampleRequests()}
	d := NewFacultyDashboard(reviewer, &stubAuth{})
	require.NoError(t, d.Login(context.Background(), "hod.cse@citchennai.net", "secret123"))
	require.NoError(t, d.Load(context.Background()))
	return d, reviewer
}

func TestFacultyDashboardRequiresLogin(t *testing.T) {
	reviewer := &stubReviewer{list: sampleRequests()}
	auth := &stubAuth{err: &odclient.APIError{Status: 401, Message: "invalid credentials"}}
	d := NewFacultyDashboard(reviewer, auth)

	err := d.Login(context.Background(), "hod.cse@citchennai.net", "wrong")
	require.Error(t, err)
	assert.False(t, d.LoggedIn())

	assert.ErrorIs(t, d.Load(context.Background()), ErrNotAuthenticated)
	_, err = d.Approve(context.Background(), "a", accept)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, reviewer.updates)
}

func TestFacultyDashboardLoginAndLogout(t *testing.T) {
	d, _ := loadedDashboard(t)
	assert.True(t, d.LoggedIn())
	assert.Equal(t, "hod.cse@citchennai.net", d.Username())
	assert.Equal(t, 4, d.Counts().Total)

	d.Logout()
	assert.False(t, d.LoggedIn())
	assert.Empty(t, d.Username())
	assert.Empty(t, d.View(ListQuery{}))
	assert.Nil(t, d.Selected())
}

func TestFacultyDashboardViewKeepsServerOrder(t *testing.T) {
	d, _ := loadedDashboard(t)

	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(d.View(ListQuery{Status: StatusAll})))
	assert.Equal(t, []string{"a", "c"}, ids(d.View(ListQuery{Status: "pending"})))
	assert.Equal(t, []string{"d"}, ids(d.View(ListQuery{Search: "karthik.mech"})))
}

func TestFacultyDashboardDeclinedConfirmation(t *testing.T) {
	d, reviewer := loadedDashboard(t)

	var asked string
	_, err := d.Reject(context.Background(), "a", func(prompt string) bool {
		asked = prompt
		return false
	})
	require.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, "reject this request?", asked)
	assert.Empty(t, reviewer.updates)
	assert.Equal(t, 2, d.Counts().Pending)
}

func TestFacultyDashboardApproveUpdatesLocalState(t *testing.T) {
	d, reviewer := loadedDashboard(t)

	_, err := d.Select("a")
	require.NoError(t, err)

	updated, err := d.Approve(context.Background(), "a", accept)
	require.NoError(t, err)
	assert.Equal(t, odclient.StatusApproved, updated.Status)
	assert.Equal(t, []string{"a:approved"}, reviewer.updates)

	assert.Equal(t, Counts{Total: 4, Pending: 1, Approved: 2, Rejected: 1}, d.Counts())
	require.NotNil(t, d.Selected())
	assert.Equal(t, odclient.StatusApproved, d.Selected().Status)
	assert.Equal(t, []string{"c"}, ids(d.View(ListQuery{Status: "pending"})))
}

func TestFacultyDashboardFailedUpdateLeavesState(t *testing.T) {
	d, reviewer := loadedDashboard(t)
	reviewer.updateErr = &odclient.APIError{Status: 409, Code: "CONFLICT", Message: "only pending requests can be reviewed"}

	_, err := d.Reject(context.Background(), "b", accept)
	var apiErr *odclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, odclient.IsConflict(err))

	assert.Equal(t, Counts{Total: 4, Pending: 2, Approved: 1, Rejected: 1}, d.Counts())
}

func TestFacultyDashboardSelect(t *testing.T) {
	d, _ := loadedDashboard(t)

	_, err := d.Select("missing")
	assert.ErrorIs(t, err, ErrUnknownRequest)
	assert.Nil(t, d.Selected())

	got, err := d.Select("c")
	require.NoError(t, err)
	got.Status = odclient.StatusRejected
	assert.Equal(t, odclient.StatusPending, d.Selected().Status)

	_, err = d.Approve(context.Background(), "c", decline)
	assert.ErrorIs(t, err, ErrDeclined)
}
