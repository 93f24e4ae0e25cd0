// Package server initializes and runs the worktrack API server.
// It opens the database and applies migrations, wires the services together,
// and runs the HTTP server until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/worktrack/internal/dbx"
	"github.com/dmitrijs2005/worktrack/internal/logging"
	"github.com/dmitrijs2005/worktrack/internal/server/auth"
	"github.com/dmitrijs2005/worktrack/internal/server/config"
	"github.com/dmitrijs2005/worktrack/internal/server/mail"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/worktrack/internal/server/rest"
	"github.com/dmitrijs2005/worktrack/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config             *config.Config
	logger             logging.Logger
	db                 *sql.DB
	codec              *auth.Codec
	authService        *services.AuthService
	userService        *services.UserService
	applicationService *services.ApplicationService
}

// OpenDatabase opens the pgx pool for dsn and brings the schema up to date.
func OpenDatabase(ctx context.Context, dsn string, m repomanager.RepositoryManager) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}
	return db, nil
}

// NewMailSender returns an SMTP sender, or a logging one when no SMTP host
// is configured.
func NewMailSender(c *config.Config, logger logging.Logger) mail.Sender {
	if c.SMTPHost == "" {
		return mail.NewLogSender(logger)
	}
	return mail.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUsername, c.SMTPPassword, c.SMTPFrom)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	codec, err := auth.NewCodec([]byte(c.SecretKey), c.AccessTokenValidityDuration, config.MinSecretKeyLength)
	if err != nil {
		return nil, fmt.Errorf("token codec error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	db, err := OpenDatabase(ctx, c.DatabaseDSN, rm)
	if err != nil {
		return nil, err
	}
	conn := dbx.NewConn(db, nil)

	mailer := NewMailSender(c, logger.With("module", "mail"))

	as := services.NewAuthService(conn, rm, codec, mailer, c, logger.With("module", "auth"))
	us := services.NewUserService(conn, rm, services.PasswordPolicy{Strict: c.StrictPasswords})
	aps := services.NewApplicationService(conn, rm, services.NewS3ResumeStorage(c))

	return &App{
		config:             c,
		logger:             logger,
		db:                 db,
		codec:              codec,
		authService:        as,
		userService:        us,
		applicationService: aps,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := rest.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger,
		app.authService, app.userService, app.applicationService, app.codec, app.config.RateLimitRPS)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
