package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/worktrack/internal/dbx"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/applications"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Applications(db dbx.DBTX) applications.Repository
}
