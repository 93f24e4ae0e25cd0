// Package ctl implements worktrackctl, the operator tool for applying
// database migrations and provisioning admin accounts.
package ctl

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/dbx"
	"github.com/dmitrijs2005/worktrack/internal/filex"
	"github.com/dmitrijs2005/worktrack/internal/flagx"
	"github.com/dmitrijs2005/worktrack/internal/netx"
	"github.com/dmitrijs2005/worktrack/internal/server"
	"github.com/dmitrijs2005/worktrack/internal/server/config"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/worktrack/internal/server/services"
)

const usage = `usage: worktrackctl [server flags] <command>

commands:
  migrate                               apply pending database migrations
  create-admin [-email e] [-name n]     create a verified ADMIN account
  upload-resume -url u -file f          PUT a file to a presigned resume URL
`

// MaxResumeBytes bounds files sent by upload-resume.
const MaxResumeBytes = 10 << 20

var ErrUsage = errors.New("unknown command")

// openDatabase is a test seam for server.OpenDatabase.
var openDatabase = server.OpenDatabase

type App struct {
	config      *config.Config
	repomanager repomanager.RepositoryManager
	httpClient  *http.Client
	in          *bufio.Reader
	out         io.Writer
}

func NewApp(c *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		config:      c,
		repomanager: repomanager.NewPostgresRepositoryManager(),
		httpClient:  http.DefaultClient,
		in:          bufio.NewReader(in),
		out:         out,
	}
}

// Run dispatches on the first known command in args. Server flags may
// appear anywhere before it; everything after it belongs to the command.
func (a *App) Run(ctx context.Context, args []string) error {
	cmd, rest := command(args)
	switch cmd {
	case "migrate":
		return a.Migrate(ctx)
	case "create-admin":
		return a.CreateAdmin(ctx, rest)
	case "upload-resume":
		return a.UploadResume(ctx, rest)
	case "help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}
}

func command(args []string) (string, []string) {
	for i, arg := range args {
		switch arg {
		case "migrate", "create-admin", "upload-resume", "help":
			return arg, args[i+1:]
		}
	}
	return "", nil
}

func (a *App) open(ctx context.Context) (*sql.DB, error) {
	if a.config.DatabaseDSN == "" {
		return nil, errors.New("database dsn is empty")
	}
	return openDatabase(ctx, a.config.DatabaseDSN, a.repomanager)
}

// Migrate opens the database, which applies every pending migration.
func (a *App) Migrate(ctx context.Context) error {
	db, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(a.out, "Migrations applied")
	return nil
}

// CreateAdmin provisions an admin account. Missing email and name are
// prompted for; the password is always read from the terminal, twice.
func (a *App) CreateAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "admin email")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-name"})); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = GetSimpleText(a.in, "Email", a.out); err != nil {
			return err
		}
	}
	if *name == "" {
		if *name, err = GetSimpleText(a.in, "Display name", a.out); err != nil {
			return err
		}
	}

	password, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	repeat, err := GetPassword(a.out, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(repeat)

	if !bytes.Equal(password, repeat) {
		return errors.New("passwords do not match")
	}

	db, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	us := services.NewUserService(dbx.NewConn(db, nil), a.repomanager, services.PasswordPolicy{Strict: a.config.StrictPasswords})
	user, err := us.CreateAdmin(ctx, services.RegisterInput{
		Email:       *email,
		Password:    string(password),
		DisplayName: *name,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Admin %s created (id %d)\n", user.Email, user.ID)
	return nil
}

// UploadResume sends a local file to a presigned upload URL obtained from
// POST /api/v1/applications/{id}/resume.
func (a *App) UploadResume(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload-resume", flag.ContinueOnError)
	fs.SetOutput(a.out)
	url := fs.String("url", "", "presigned upload URL")
	file := fs.String("file", "", "path of the file to upload")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-url", "-file"})); err != nil {
		return err
	}
	if *url == "" || *file == "" {
		return errors.New("both -url and -file are required")
	}

	data, err := filex.ReadLimited(*file, MaxResumeBytes)
	if err != nil {
		return err
	}

	if err := netx.UploadToPresignedURL(ctx, a.httpClient, *url, netx.ContentTypeFor(*file), data); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Uploaded %s (%d bytes)\n", *file, len(data))
	return nil
}
