// Package rest exposes the worktrack services over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/logging"
	"github.com/dmitrijs2005/worktrack/internal/server/auth"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
	"github.com/dmitrijs2005/worktrack/internal/server/services"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

// AuthAPI is the subset of services.AuthService the handlers call.
type AuthAPI interface {
	Register(ctx context.Context, in services.RegisterInput) (string, error)
	ConfirmToken(ctx context.Context, value string) (string, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, value string) (*services.TokenPair, error)
	Logout(ctx context.Context, value string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, value, newPassword string) error
}

// UserAPI is the subset of services.UserService the handlers call.
type UserAPI interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	Me(ctx context.Context, p auth.Principal) (*models.User, error)
	UpdateProfile(ctx context.Context, p auth.Principal, displayName string) (*models.User, error)
	ChangePassword(ctx context.Context, p auth.Principal, current, newPassword string) error
	ListUsers(ctx context.Context, p auth.Principal) ([]*models.User, error)
}

// ApplicationAPI is the subset of services.ApplicationService the handlers call.
type ApplicationAPI interface {
	Create(ctx context.Context, p auth.Principal, in services.ApplicationInput) (*models.JobApplication, error)
	List(ctx context.Context, p auth.Principal) ([]*models.JobApplication, error)
	Get(ctx context.Context, p auth.Principal, id int64) (*models.JobApplication, error)
	Update(ctx context.Context, p auth.Principal, id int64, in services.ApplicationInput) (*models.JobApplication, error)
	Delete(ctx context.Context, p auth.Principal, id int64) error
	PatchStatus(ctx context.Context, p auth.Principal, id int64, status models.ApplicationStatus) (*models.JobApplication, error)
	ResumeUploadURL(ctx context.Context, p auth.Principal, id int64, fileName string) (string, error)
	ResumeDownloadURL(ctx context.Context, p auth.Principal, id int64) (string, error)
}

// TokenVerifier checks bearer tokens. *auth.Codec implements it.
type TokenVerifier interface {
	ExtractSubject(token string) (string, error)
	IsValid(token, expectedSubject string) bool
}

type HTTPServer struct {
	address      string
	logger       logging.Logger
	auth         AuthAPI
	users        UserAPI
	applications ApplicationAPI
	verifier     TokenVerifier
	limiter      *rate.Limiter
}

// NewHTTPServer wires the handlers. rps limits the /api/v1/auth routes;
// zero disables the limit.
func NewHTTPServer(a string, l logging.Logger, as AuthAPI, us UserAPI, aps ApplicationAPI, v TokenVerifier, rps int) *HTTPServer {
	s := &HTTPServer{
		address:      a,
		logger:       l.With("module", "http_server"),
		auth:         as,
		users:        us,
		applications: aps,
		verifier:     v,
	}
	if rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return s
}

// Handler builds the routing tree.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverer, s.accessLog, s.authenticate)

	r.HandleFunc("/ping", s.ping).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.Use(s.rateLimit)
	authRoutes.HandleFunc("/register", s.register).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", s.login).Methods(http.MethodPost)
	authRoutes.HandleFunc("/confirm", s.confirm).Methods(http.MethodGet)
	authRoutes.HandleFunc("/refresh-token", s.refreshToken).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", s.logout).Methods(http.MethodPost)
	authRoutes.HandleFunc("/forgot-password", s.forgotPassword).Methods(http.MethodPost)
	authRoutes.HandleFunc("/reset-password", s.resetPassword).Methods(http.MethodPost)

	// legacy paths kept for older clients
	api.Handle("/forgot-password", s.rateLimit(http.HandlerFunc(s.forgotPassword))).Methods(http.MethodPost)
	api.Handle("/reset-password", s.rateLimit(http.HandlerFunc(s.resetPassword))).Methods(http.MethodPost)

	users := api.PathPrefix("/users").Subrouter()
	users.Use(requireAuthenticated)
	users.HandleFunc("/me", s.me).Methods(http.MethodGet)
	users.HandleFunc("/me", s.updateProfile).Methods(http.MethodPut)
	users.HandleFunc("/me/password", s.changePassword).Methods(http.MethodPut)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(requireAuthenticated, requireRole(models.RoleAdmin))
	admin.HandleFunc("/test", s.adminTest).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)

	apps := api.PathPrefix("/applications").Subrouter()
	apps.Use(requireAuthenticated)
	apps.HandleFunc("", s.createApplication).Methods(http.MethodPost)
	apps.HandleFunc("", s.listApplications).Methods(http.MethodGet)
	apps.HandleFunc("/{id:[0-9]+}", s.getApplication).Methods(http.MethodGet)
	apps.HandleFunc("/{id:[0-9]+}", s.updateApplication).Methods(http.MethodPut)
	apps.HandleFunc("/{id:[0-9]+}", s.patchApplicationStatus).Methods(http.MethodPatch)
	apps.HandleFunc("/{id:[0-9]+}", s.deleteApplication).Methods(http.MethodDelete)
	apps.HandleFunc("/{id:[0-9]+}/resume", s.resumeUploadURL).Methods(http.MethodPost)
	apps.HandleFunc("/{id:[0-9]+}/resume", s.resumeDownloadURL).Methods(http.MethodGet)

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *HTTPServer) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "pong"})
}
