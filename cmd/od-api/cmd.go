package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/noah-isme/campus-od-api/internal/models"
	"github.com/noah-isme/campus-od-api/internal/service"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

const minPasswordLength = 8

type accountCreator interface {
	Create(ctx context.Context, req service.CreateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error)
}

type commandLine struct {
	users accountCreator
	out   io.Writer
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  od-api [serve]                                   - run the HTTP API")
	fmt.Fprintln(w, "  od-api create-faculty -email EMAIL -name NAME [-admin] - add a reviewer; the password is prompted next")
}

// createFaculty parses the create-faculty flags, prompts for the password and stores the account.
func (cli *commandLine) createFaculty(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("create-faculty", flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	email := cmd.String("email", "", "The faculty member's sign-in email.")
	name := cmd.String("name", "", "Display name.")
	admin := cmd.Bool("admin", false, "Grant the ADMIN role instead of FACULTY.")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" || strings.TrimSpace(*name) == "" {
		cmd.Usage()
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	role := models.RoleFaculty
	if *admin {
		role = models.RoleAdmin
	}
	user, err := cli.users.Create(ctx, service.CreateUserRequest{
		Email:    *email,
		FullName: *name,
		Role:     role,
		Password: string(pwd),
	}, "", models.LoginRequest{UserAgent: "od-api create-faculty"})
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "created %s account %s (%s)\n", strings.ToLower(string(role)), user.Email, user.ID)
	return nil
}
