package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/dbx"
	"github.com/dmitrijs2005/worktrack/internal/server/auth"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/repomanager"
)

// ApplicationService manages a user's job applications. Every operation is
// scoped to the calling principal: touching someone else's record yields
// common.ErrForbidden.
type ApplicationService struct {
	db          dbx.Conn
	repomanager repomanager.RepositoryManager
	storage     ResumeStorage
	now         func() time.Time
}

func NewApplicationService(db dbx.Conn, m repomanager.RepositoryManager, storage ResumeStorage) *ApplicationService {
	return &ApplicationService{db: db, repomanager: m, storage: storage, now: time.Now}
}

// owned loads application id on db and checks it belongs to p.
func (s *ApplicationService) owned(ctx context.Context, db dbx.DBTX, p auth.Principal, id int64) (*models.JobApplication, error) {
	app, err := s.repomanager.Applications(db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error getting application: %w", err)
	}
	if app.UserID != p.UserID {
		return nil, common.ErrForbidden
	}
	return app, nil
}

func notFoundAsApplication(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrApplicationNotFound
	}
	return err
}

func truncateToDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func (s *ApplicationService) Create(ctx context.Context, p auth.Principal, in ApplicationInput) (*models.JobApplication, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.StatusApplied
	}

	app := &models.JobApplication{
		UserID:      p.UserID,
		CompanyName: in.CompanyName,
		Position:    in.Position,
		Status:      status,
		AppliedDate: truncateToDay(in.AppliedDate),
		Notes:       in.Notes,
	}
	if err := s.repomanager.Applications(s.db).Create(ctx, app); err != nil {
		return nil, fmt.Errorf("error creating application: %w", err)
	}
	return app, nil
}

func (s *ApplicationService) List(ctx context.Context, p auth.Principal) ([]*models.JobApplication, error) {
	list, err := s.repomanager.Applications(s.db).ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("error listing applications: %w", err)
	}
	return list, nil
}

func (s *ApplicationService) Get(ctx context.Context, p auth.Principal, id int64) (*models.JobApplication, error) {
	return s.owned(ctx, s.db, p, id)
}

// Update replaces the editable fields. An empty status keeps the current one.
func (s *ApplicationService) Update(ctx context.Context, p auth.Principal, id int64, in ApplicationInput) (*models.JobApplication, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var app *models.JobApplication
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if app, err = s.owned(ctx, tx, p, id); err != nil {
			return err
		}
		app.CompanyName = in.CompanyName
		app.Position = in.Position
		if in.Status != "" {
			app.Status = in.Status
		}
		app.AppliedDate = truncateToDay(in.AppliedDate)
		app.Notes = in.Notes
		app.UpdatedAt = s.now()
		return notFoundAsApplication(s.repomanager.Applications(tx).Update(ctx, app))
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *ApplicationService) Delete(ctx context.Context, p auth.Principal, id int64) error {
	return s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.owned(ctx, tx, p, id); err != nil {
			return err
		}
		return notFoundAsApplication(s.repomanager.Applications(tx).Delete(ctx, id))
	})
}

// PatchStatus moves the application to status.
func (s *ApplicationService) PatchStatus(ctx context.Context, p auth.Principal, id int64, status models.ApplicationStatus) (*models.JobApplication, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	var app *models.JobApplication
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if app, err = s.owned(ctx, tx, p, id); err != nil {
			return err
		}
		now := s.now()
		if err := s.repomanager.Applications(tx).UpdateStatus(ctx, id, status, now); err != nil {
			return notFoundAsApplication(err)
		}
		app.Status = status
		app.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// ResumeUploadURL returns a presigned PUT URL for the application's resume.
// An application owns a single object: the first call reserves its key and
// later calls reuse it, so a new upload overwrites the previous file.
func (s *ApplicationService) ResumeUploadURL(ctx context.Context, p auth.Principal, id int64, fileName string) (string, error) {
	app, err := s.owned(ctx, s.db, p, id)
	if err != nil {
		return "", err
	}

	if app.ResumeKey != nil {
		url, err := s.storage.PresignPut(ctx, *app.ResumeKey)
		if err != nil {
			return "", fmt.Errorf("error presigning upload: %w", err)
		}
		return url, nil
	}

	key, err := NewResumeKey(p.UserID, app.ID, fileName)
	if err != nil {
		return "", fmt.Errorf("error generating resume key: %w", err)
	}
	url, err := s.storage.PresignPut(ctx, key)
	if err != nil {
		return "", fmt.Errorf("error presigning upload: %w", err)
	}
	if err := s.repomanager.Applications(s.db).SetResumeKey(ctx, app.ID, key, s.now()); err != nil {
		return "", notFoundAsApplication(err)
	}
	return url, nil
}

// ResumeDownloadURL returns a presigned GET URL for the attached resume.
func (s *ApplicationService) ResumeDownloadURL(ctx context.Context, p auth.Principal, id int64) (string, error) {
	app, err := s.owned(ctx, s.db, p, id)
	if err != nil {
		return "", err
	}
	if app.ResumeKey == nil {
		return "", common.ErrNoResume
	}
	url, err := s.storage.PresignGet(ctx, *app.ResumeKey)
	if err != nil {
		return "", fmt.Errorf("error presigning download: %w", err)
	}
	return url, nil
}
