// Command odctl is the terminal front end for students and reviewers.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-od-api/pkg/logger"
	"github.com/noah-isme/campus-od-api/pkg/odclient"
	"github.com/noah-isme/campus-od-api/pkg/portal"
	"github.com/noah-isme/campus-od-api/pkg/validation"
)

type settings struct {
	APIURL      string
	SessionPath string
	EmailDomain string
	LogLevel    string
}

func loadSettings() (settings, error) {
	v := viper.New()
	v.SetEnvPrefix("ODCTL")
	v.AutomaticEnv()
	v.SetDefault("API_URL", "http://localhost:8000")
	v.SetDefault("EMAIL_DOMAIN", validation.DefaultEmailDomain)
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("SESSION", "")

	s := settings{
		APIURL:      v.GetString("API_URL"),
		SessionPath: v.GetString("SESSION"),
		EmailDomain: v.GetString("EMAIL_DOMAIN"),
		LogLevel:    v.GetString("LOG_LEVEL"),
	}
	if s.SessionPath == "" {
		path, err := portal.DefaultSessionPath()
		if err != nil {
			return s, err
		}
		s.SessionPath = path
	}
	return s, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	log, err := logger.NewConsole(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	session, err := portal.LoadSession(cfg.SessionPath)
	if err != nil {
		return err
	}

	a := &app{
		client:    odclient.New(cfg.APIURL, odclient.WithToken(session.AccessToken)),
		session:   session,
		validator: validation.New(cfg.EmailDomain),
		logger:    log,
		in:        bufio.NewReader(in),
		out:       out,
	}
	return a.dispatch(ctx, args)
}

type app struct {
	client    *odclient.Client
	session   *portal.Session
	validator *validation.Validator
	logger    *zap.Logger
	in        *bufio.Reader
	out       io.Writer
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) < 2 {
		printUsage(a.out)
		return errHelp
	}

	group, cmd, rest := args[0], args[1], args[2:]
	switch group + " " + cmd {
	case "student login":
		return a.studentLogin(ctx, rest)
	case "student submit":
		return a.studentSubmit(ctx, rest)
	case "student history":
		return a.studentHistory(ctx, rest)
	case "student watch":
		return a.studentWatch(ctx, rest)
	case "student logout":
		return a.logout("student")
	case "faculty login":
		return a.facultyLogin(ctx, rest)
	case "faculty list":
		return a.facultyList(ctx, rest)
	case "faculty show":
		return a.facultyShow(ctx, rest)
	case "faculty approve":
		return a.facultyDecide(ctx, rest, odclient.StatusApproved)
	case "faculty reject":
		return a.facultyDecide(ctx, rest, odclient.StatusRejected)
	case "faculty logout":
		return a.logout("faculty")
	default:
		printUsage(a.out)
		return errHelp
	}
}

func (a *app) logout(who string) error {
	if err := a.session.Clear(); err != nil {
		return err
	}
	a.client.SetToken("")
	fmt.Fprintf(a.out, "signed out of the %s session\n", who)
	return nil
}

// confirm asks a yes/no question on the terminal. Anything but y or yes declines.
func (a *app) confirm(prompt string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  odctl student login -email EMAIL")
	fmt.Fprintln(w, "  odctl student submit -roll ROLL -section SEC -reason REASON -venue VENUE -description TEXT [-name NAME] [-dept DEPT]")
	fmt.Fprintln(w, "  odctl student history [-search TERM] [-status STATUS] [-sort date-desc|date-asc|status]")
	fmt.Fprintln(w, "  odctl student watch [-interval 30s] [-search TERM] [-status STATUS] [-sort KEY]")
	fmt.Fprintln(w, "  odctl student logout")
	fmt.Fprintln(w, "  odctl faculty login -email EMAIL")
	fmt.Fprintln(w, "  odctl faculty list [-search TERM] [-status STATUS]")
	fmt.Fprintln(w, "  odctl faculty show -id ID")
	fmt.Fprintln(w, "  odctl faculty approve -id ID [-yes]")
	fmt.Fprintln(w, "  odctl faculty reject -id ID [-yes]")
	fmt.Fprintln(w, "  odctl faculty logout")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment: ODCTL_API_URL, ODCTL_SESSION, ODCTL_EMAIL_DOMAIN, ODCTL_LOG_LEVEL")
}
