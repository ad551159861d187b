package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/campus-od-api/pkg/odclient"
	"github.com/noah-isme/campus-od-api/pkg/portal"
)

var errNoStudent = errors.New("no student session, run: odctl student login -email EMAIL")

func (a *app) studentLogin(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("student login", flag.ContinueOnError)
	cmd.SetOutput(a.out)
	email := cmd.String("email", "", "College email, e.g. name.dept2024@"+a.validator.Domain()+".")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	addr := strings.TrimSpace(*email)
	if addr == "" {
		cmd.Usage()
		return errHelp
	}
	if !a.validator.ValidEmail(addr) {
		return fmt.Errorf("email must look like name.dept2024@%s", a.validator.Domain())
	}

	login, err := a.client.StudentLogin(ctx, addr)
	if err != nil {
		return err
	}

	a.session.StudentEmail = addr
	a.session.FacultyLoggedIn = false
	a.session.FacultyUsername = ""
	a.session.AccessToken = login.AccessToken
	if err := a.session.Save(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "signed in as %s\n", addr)
	return nil
}

func (a *app) studentSubmit(ctx context.Context, args []string) error {
	if a.session.StudentEmail == "" {
		return errNoStudent
	}
	form := portal.NewIntakeForm(a.client, a.session.StudentEmail, a.validator)

	cmd := flag.NewFlagSet("student submit", flag.ContinueOnError)
	cmd.SetOutput(a.out)
	cmd.StringVar(&form.Name, "name", form.Name, "Student name.")
	cmd.StringVar(&form.DeptName, "dept", form.DeptName, "Department.")
	cmd.StringVar(&form.RollNo, "roll", "", "Roll number.")
	cmd.StringVar(&form.Section, "section", "", "Section.")
	cmd.StringVar(&form.Reason, "reason", "", "One of: "+strings.Join(form.Reasons(), ", ")+".")
	cmd.StringVar(&form.Venue, "venue", "", "Event venue.")
	cmd.StringVar(&form.Description, "description", "", "What the OD is for.")
	if err := cmd.Parse(args); err != nil {
		return err
	}

	form.OnSubmitted = func(r *odclient.Request) {
		fmt.Fprintf(a.out, "submitted %s (%s)\n", r.ID, r.Status)
	}

	_, err := form.Submit(ctx)
	var fieldErr *portal.FieldError
	if errors.As(err, &fieldErr) && fieldErr.Field == "reason" {
		return fmt.Errorf("%s (options: %s)", fieldErr.Message, strings.Join(form.Reasons(), ", "))
	}
	if err != nil {
		return err
	}
	return a.showHistory(ctx, portal.ListQuery{Status: portal.StatusAll, Sort: portal.SortDateDesc})
}

type listFlags struct {
	search string
	status string
	sort   string
}

func (f *listFlags) register(cmd *flag.FlagSet, withSort bool) {
	cmd.StringVar(&f.search, "search", "", "Case-insensitive search term.")
	cmd.StringVar(&f.status, "status", portal.StatusAll, "all, pending, approved or rejected.")
	if withSort {
		cmd.StringVar(&f.sort, "sort", portal.SortDateDesc, "date-desc, date-asc or status.")
	}
}

func (f *listFlags) query() portal.ListQuery {
	return portal.ListQuery{Search: f.search, Status: f.status, Sort: f.sort}
}

func (a *app) studentHistory(ctx context.Context, args []string) error {
	if a.session.StudentEmail == "" {
		return errNoStudent
	}
	cmd := flag.NewFlagSet("student history", flag.ContinueOnError)
	cmd.SetOutput(a.out)
	var lf listFlags
	lf.register(cmd, true)
	if err := cmd.Parse(args); err != nil {
		return err
	}

	return a.showHistory(ctx, lf.query())
}

func (a *app) showHistory(ctx context.Context, q portal.ListQuery) error {
	dash := portal.NewStudentDashboard(a.client, a.session.StudentEmail, portal.WithDashboardLogger(a.logger))
	if err := dash.Refresh(ctx); err != nil {
		return err
	}
	printCounts(a.out, dash.Stats())
	printRequests(a.out, dash.View(q))
	return nil
}

// studentWatch polls the history until ctx is cancelled.
func (a *app) studentWatch(ctx context.Context, args []string) error {
	if a.session.StudentEmail == "" {
		return errNoStudent
	}
	cmd := flag.NewFlagSet("student watch", flag.ContinueOnError)
	cmd.SetOutput(a.out)
	interval := cmd.Duration("interval", portal.DefaultPollInterval, "Refresh interval.")
	var lf listFlags
	lf.register(cmd, true)
	if err := cmd.Parse(args); err != nil {
		return err
	}

	var dash *portal.StudentDashboard
	dash = portal.NewStudentDashboard(a.client, a.session.StudentEmail,
		portal.WithPollInterval(*interval),
		portal.WithDashboardLogger(a.logger),
		portal.WithRefreshHook(func(_ []odclient.Request, err error) {
			if err != nil {
				fmt.Fprintf(a.out, "refresh failed: %v\n", err)
				return
			}
			fmt.Fprintf(a.out, "updated %s\n", dash.LastUpdated().Format(time.Kitchen))
			printCounts(a.out, dash.Stats())
			printRequests(a.out, dash.View(lf.query()))
		}),
	)

	// The refresh hook reports a failed first fetch; polling continues regardless.
	_ = dash.Activate(ctx)
	<-ctx.Done()
	dash.Deactivate()
	return nil
}
