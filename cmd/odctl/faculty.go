package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
	"github.com/noah-isme/campus-od-api/pkg/portal"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

func (a *app) facultyLogin(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("faculty login", flag.ContinueOnError)
	cmd.SetOutput(a.out)
	email := cmd.String("email", "", "Faculty sign-in email.")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	username := strings.ToLower(strings.TrimSpace(*email))
	if username == "" {
		cmd.Usage()
		return errHelp
	}

	fmt.Fprint(a.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(a.out)
	if err != nil {
		return err
	}

	dash := a.newFacultyDashboard()
	if err := dash.Login(ctx, username, string(pwd)); err != nil {
		return err
	}

	a.session.StudentEmail = ""
	a.session.FacultyLoggedIn = true
	a.session.FacultyUsername = username
	a.session.AccessToken = a.client.Token()
	if err := a.session.Save(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "signed in as %s\n", username)
	return nil
}

func (a *app) newFacultyDashboard() *portal.FacultyDashboard {
	return portal.NewFacultyDashboard(a.client, portal.ClientAuthenticator{Client: a.client})
}

// loadFacultyDashboard resumes the persisted faculty session and loads every request.
func (a *app) loadFacultyDashboard(ctx context.Context) (*portal.FacultyDashboard, error) {
	if !a.session.FacultyLoggedIn {
		return nil, fmt.Errorf("%w, run: odctl faculty login -email EMAIL", portal.ErrNotAuthenticated)
	}
	dash := a.newFacultyDashboard()
	dash.Resume(a.session.FacultyUsername)
	if err := dash.Load(ctx); err != nil {
		return nil, a.explain(err)
	}
	return dash, nil
}

func (a *app) explain(err error) error {
	if odclient.IsUnauthorized(err) {
		return fmt.Errorf("session expired, sign in again: %w", err)
	}
	return err
}

func (a *app) facultyList(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("faculty list", flag.ContinueOnError)
	cmd.SetOutput(a.out)
	var lf listFlags
	lf.register(cmd, false)
	if err := cmd.Parse(args); err != nil {
		return err
	}

	dash, err := a.loadFacultyDashboard(ctx)
	if err != nil {
		return err
	}
	printCounts(a.out, dash.Counts())
	printRequests(a.out, dash.View(lf.query()))
	return nil
}

func parseID(cmd *flag.FlagSet, args []string) (string, error) {
	id := cmd.String("id", "", "Request id.")
	if err := cmd.Parse(args); err != nil {
		return "", err
	}
	if strings.TrimSpace(*id) == "" {
		cmd.Usage()
		return "", errHelp
	}
	return strings.TrimSpace(*id), nil
}

func (a *app) facultyShow(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("faculty show", flag.ContinueOnError)
	cmd.SetOutput(a.out)
	id, err := parseID(cmd, args)
	if err != nil {
		return err
	}

	dash, err := a.loadFacultyDashboard(ctx)
	if err != nil {
		return err
	}
	req, err := dash.Select(id)
	if err != nil {
		return err
	}
	printDetail(a.out, req)
	return nil
}

func (a *app) facultyDecide(ctx context.Context, args []string, status odclient.Status) error {
	cmd := flag.NewFlagSet("faculty "+verbFor(status), flag.ContinueOnError)
	cmd.SetOutput(a.out)
	yes := cmd.Bool("yes", false, "Skip the confirmation prompt.")
	id, err := parseID(cmd, args)
	if err != nil {
		return err
	}

	dash, err := a.loadFacultyDashboard(ctx)
	if err != nil {
		return err
	}
	req, err := dash.Select(id)
	if err != nil {
		return err
	}
	printDetail(a.out, req)

	confirm := portal.Confirmer(a.confirm)
	if *yes {
		confirm = nil
	}

	var updated *odclient.Request
	if status == odclient.StatusApproved {
		updated, err = dash.Approve(ctx, id, confirm)
	} else {
		updated, err = dash.Reject(ctx, id, confirm)
	}
	if errors.Is(err, portal.ErrDeclined) {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	if err != nil {
		return a.explain(err)
	}

	fmt.Fprintf(a.out, "request %s is now %s\n", updated.ID, updated.Status)
	return nil
}

func verbFor(status odclient.Status) string {
	if status == odclient.StatusRejected {
		return "reject"
	}
	return "approve"
}
