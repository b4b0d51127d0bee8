package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/listings/internal/dbx"
	"github.com/dmitrijs2005/listings/internal/server/repositories/images"
	"github.com/dmitrijs2005/listings/internal/server/repositories/listings"
	"github.com/dmitrijs2005/listings/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Listings(db dbx.DBTX) listings.Repository
	Images(db dbx.DBTX) images.Repository
}
