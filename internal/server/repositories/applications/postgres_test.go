package applications

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var appColumns = []string{"id", "user_id", "company_name", "position", "status", "applied_date", "notes", "resume_key", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)INSERT\s+INTO\s+job_applications\s*\(user_id,\s*company_name,\s*position,\s*status,\s*applied_date,\s*notes\).*RETURNING\s+id,\s*created_at,\s*updated_at`

	applied := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(int64(1), "Acme", "Engineer", "APPLIED", sql.NullTime{Time: applied, Valid: true}, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(10), now, now))

	app := &models.JobApplication{
		UserID: 1, CompanyName: "Acme", Position: "Engineer",
		Status: models.StatusApplied, AppliedDate: &applied,
	}
	if err := repo.Create(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.ID != 10 || !app.CreatedAt.Equal(now) {
		t.Fatalf("unexpected app: %+v", app)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+job_applications`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.JobApplication{UserID: 1, Status: models.StatusApplied})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_ScansNullables(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*user_id,.*FROM\s+job_applications\s+WHERE\s+id\s*=\s*\$1$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(appColumns).
			AddRow(int64(10), int64(1), "Acme", "Engineer", "OFFER", nil, "notes", "resumes/1/10/cv.pdf", now, now))

	got, err := repo.GetByID(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.StatusOffer || got.AppliedDate != nil {
		t.Fatalf("unexpected app: %+v", got)
	}
	if got.ResumeKey == nil || *got.ResumeKey != "resumes/1/10/cv.pdf" {
		t.Fatalf("unexpected resume key: %v", got.ResumeKey)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+job_applications\s+WHERE\s+id`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestListByUser_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)FROM\s+job_applications\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(appColumns).
			AddRow(int64(2), int64(1), "B", "P2", "INTERVIEW", now, "", nil, now, now).
			AddRow(int64(1), int64(1), "A", "P1", "APPLIED", nil, "", nil, now, now))

	got, err := repo.ListByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[0].AppliedDate == nil || got[1].ResumeKey != nil {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestListByUser_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+job_applications`).
		WillReturnError(errors.New("boom"))

	_, err := repo.ListByUser(context.Background(), 1)
	if err == nil || !regexp.MustCompile(`failed to select applications: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestListByUser_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+job_applications`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	if _, err := repo.ListByUser(context.Background(), 1); err == nil {
		t.Fatal("expected scan error")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+job_applications\s+SET\s+company_name\s*=\s*\$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.JobApplication{ID: 5, Status: models.StatusApplied})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestUpdateStatus_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(`(?s)UPDATE\s+job_applications\s+SET\s+status\s*=\s*\$2,\s*updated_at\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(5), "REJECTED", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), 5, models.StatusRejected, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetResumeKey_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+job_applications\s+SET\s+resume_key\s*=\s*\$2`).
		WithArgs(int64(5), "resumes/1/5/abc.pdf", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetResumeKey(context.Background(), 5, "resumes/1/5/abc.pdf", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_UnexpectedRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+job_applications\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Delete(context.Background(), 5)
	if err == nil || err.Error() != "unexpected rows affected: 2" {
		t.Fatalf("expected unexpected rows error, got %v", err)
	}
}

func TestDelete_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+job_applications`).
		WithArgs(int64(5)).
		WillReturnError(errors.New("db err"))

	err := repo.Delete(context.Background(), 5)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
