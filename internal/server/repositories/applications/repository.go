package applications

import (
	"context"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, app *models.JobApplication) error
	GetByID(ctx context.Context, id int64) (*models.JobApplication, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.JobApplication, error)
	Update(ctx context.Context, app *models.JobApplication) error
	UpdateStatus(ctx context.Context, id int64, status models.ApplicationStatus, at time.Time) error
	SetResumeKey(ctx context.Context, id int64, key string, at time.Time) error
	Delete(ctx context.Context, id int64) error
}
