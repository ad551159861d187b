package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
)

var (
	// ErrNotAuthenticated is returned by faculty actions before a successful Login.
	ErrNotAuthenticated = errors.New("faculty login required")
	// ErrDeclined is returned when the reviewer does not confirm a decision.
	ErrDeclined = errors.New("action cancelled")
	// ErrUnknownRequest is returned when an id is not in the loaded list.
	ErrUnknownRequest = errors.New("od request not in the loaded list")
)

// Authenticator checks faculty credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// ClientAuthenticator signs faculty in through the API's faculty login and
// leaves the issued token on the client.
type ClientAuthenticator struct {
	Client *odclient.Client
}

// Authenticate implements Authenticator.
func (a ClientAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	_, err := a.Client.FacultyLogin(ctx, username, password)
	return err
}

// ReviewClient lists and decides requests. *odclient.Client satisfies it.
type ReviewClient interface {
	ListAll(ctx context.Context, opts odclient.ListOptions) ([]odclient.Request, error)
	UpdateStatus(ctx context.Context, id string, status odclient.Status) (*odclient.Request, error)
}

// Confirmer asks the reviewer a yes/no question.
type Confirmer func(prompt string) bool

// FacultyDashboard is the reviewer's view over all requests.
type FacultyDashboard struct {
	client ReviewClient
	auth   Authenticator

	mu       sync.RWMutex
	username string
	loggedIn bool
	requests []odclient.Request
	selected *odclient.Request
}

// NewFacultyDashboard returns a signed-out dashboard.
func NewFacultyDashboard(client ReviewClient, auth Authenticator) *FacultyDashboard {
	return &FacultyDashboard{client: client, auth: auth}
}

// Login checks credentials with the Authenticator.
func (d *FacultyDashboard) Login(ctx context.Context, username, password string) error {
	if err := d.auth.Authenticate(ctx, username, password); err != nil {
		return err
	}
	d.Resume(username)
	return nil
}

// Resume marks the dashboard signed in from a persisted session.
func (d *FacultyDashboard) Resume(username string) {
	d.mu.Lock()
	d.username = username
	d.loggedIn = true
	d.mu.Unlock()
}

// Logout signs out and drops the loaded list.
func (d *FacultyDashboard) Logout() {
	d.mu.Lock()
	d.username = ""
	d.loggedIn = false
	d.requests = nil
	d.selected = nil
	d.mu.Unlock()
}

// LoggedIn reports whether faculty actions are allowed.
func (d *FacultyDashboard) LoggedIn() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loggedIn
}

// Username is the signed-in reviewer.
func (d *FacultyDashboard) Username() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.username
}

// Load fetches every request, replacing the local list.
func (d *FacultyDashboard) Load(ctx context.Context) error {
	if !d.LoggedIn() {
		return ErrNotAuthenticated
	}
	list, err := d.client.ListAll(ctx, odclient.ListOptions{})
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.requests = list
	if d.selected != nil {
		d.selected = findRequest(list, d.selected.ID)
	}
	d.mu.Unlock()
	return nil
}

// View filters by status and search (name, roll number, email, reason),
// keeping the server's order.
func (d *FacultyDashboard) View(q ListQuery) []odclient.Request {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return filterRequests(d.requests, q, facultySearchFields)
}

// Select opens the detail panel for id.
func (d *FacultyDashboard) Select(id string) (*odclient.Request, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	found := findRequest(d.requests, id)
	if found == nil {
		return nil, ErrUnknownRequest
	}
	d.selected = found
	cp := *found
	return &cp, nil
}

// Selected returns the request in the detail panel, or nil.
func (d *FacultyDashboard) Selected() *odclient.Request {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.selected == nil {
		return nil
	}
	cp := *d.selected
	return &cp
}

// Approve asks confirm and, if accepted, approves id.
func (d *FacultyDashboard) Approve(ctx context.Context, id string, confirm Confirmer) (*odclient.Request, error) {
	return d.decide(ctx, id, odclient.StatusApproved, confirm)
}

// Reject asks confirm and, if accepted, rejects id.
func (d *FacultyDashboard) Reject(ctx context.Context, id string, confirm Confirmer) (*odclient.Request, error) {
	return d.decide(ctx, id, odclient.StatusRejected, confirm)
}

// Counts summarises the loaded list by status.
func (d *FacultyDashboard) Counts() Counts {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return countStatuses(d.requests)
}

// decide updates local state only after the server accepted the change.
func (d *FacultyDashboard) decide(ctx context.Context, id string, status odclient.Status, confirm Confirmer) (*odclient.Request, error) {
	if !d.LoggedIn() {
		return nil, ErrNotAuthenticated
	}
	verb := "approve"
	if status == odclient.StatusRejected {
		verb = "reject"
	}
	if confirm != nil && !confirm(fmt.Sprintf("%s this request?", verb)) {
		return nil, ErrDeclined
	}

	updated, err := d.client.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	for i := range d.requests {
		if d.requests[i].ID == id {
			d.requests[i] = *updated
			break
		}
	}
	if d.selected != nil && d.selected.ID == id {
		d.selected = findRequest(d.requests, id)
		if d.selected == nil {
			cp := *updated
			d.selected = &cp
		}
	}
	d.mu.Unlock()
	return updated, nil
}

func findRequest(list []odclient.Request, id string) *odclient.Request {
	for i := range list {
		if list[i].ID == id {
			cp := list[i]
			return &cp
		}
	}
	return nil
}
