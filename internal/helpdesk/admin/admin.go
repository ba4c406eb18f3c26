// Package admin implements the maintenance commands of helpdesk-admin.
package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/services/articleservice"
	"golang.org/x/term"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingFlag    = errors.New("missing required flag")
)

type AdminInitializer interface {
	InitFirstAdmin(ctx context.Context, username, password string) (models.User, error)
}

type BackupService interface {
	BackupToFile(ctx context.Context, path string) (int, error)
	RestoreFromFile(ctx context.Context, path string, merge bool) (articleservice.RestoreSummary, error)
}

type Commands struct {
	auth     AdminInitializer
	articles BackupService
	out      io.Writer

	readPassword func() ([]byte, error)
}

func New(auth AdminInitializer, articles BackupService, out io.Writer) *Commands {
	return &Commands{
		auth:     auth,
		articles: articles,
		out:      out,
		readPassword: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}
}

const usage = `usage: helpdesk-admin -config <file> <command> [flags]

commands:
  init-admin -username <name>       create the first admin, password is read from the terminal
  backup     -file <path>           write every article to a backup file
  restore    -file <path> [-merge]  load a backup into every user
`

func (c *Commands) Usage() string {
	return usage
}

func (c *Commands) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: none given", ErrUnknownCommand)
	}

	switch args[0] {
	case "init-admin":
		return c.initAdmin(ctx, args[1:])
	case "backup":
		return c.backup(ctx, args[1:])
	case "restore":
		return c.restore(ctx, args[1:])
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
}

func (c *Commands) initAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init-admin", flag.ContinueOnError)
	fs.SetOutput(c.out)
	username := fs.String("username", "", "admin username")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags error: %w", err)
	}

	if *username == "" {
		return fmt.Errorf("%w: -username", ErrMissingFlag)
	}

	fmt.Fprint(c.out, "Password: ")

	password, err := c.readPassword()
	fmt.Fprintln(c.out)

	if err != nil {
		return fmt.Errorf("read password error: %w", err)
	}

	u, err := c.auth.InitFirstAdmin(ctx, *username, strings.TrimSpace(string(password)))
	if err != nil {
		return fmt.Errorf("init admin error: %w", err)
	}

	fmt.Fprintf(c.out, "admin %s created\n", u.Username)

	return nil
}

func (c *Commands) backup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(c.out)
	path := fs.String("file", "", "backup file")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags error: %w", err)
	}

	if *path == "" {
		return fmt.Errorf("%w: -file", ErrMissingFlag)
	}

	n, err := c.articles.BackupToFile(ctx, *path)
	if err != nil {
		return fmt.Errorf("backup error: %w", err)
	}

	fmt.Fprintf(c.out, "%d articles written to %s\n", n, *path)

	return nil
}

func (c *Commands) restore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(c.out)
	path := fs.String("file", "", "backup file")
	merge := fs.Bool("merge", false, "keep existing articles and add the missing ones")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags error: %w", err)
	}

	if *path == "" {
		return fmt.Errorf("%w: -file", ErrMissingFlag)
	}

	summary, err := c.articles.RestoreFromFile(ctx, *path, *merge)
	if err != nil {
		return fmt.Errorf("restore error: %w", err)
	}

	fmt.Fprintf(c.out, "%d articles restored into %d users, %d added (merge=%t)\n",
		summary.Restored, summary.Users, summary.Added, summary.Merge)

	return nil
}
