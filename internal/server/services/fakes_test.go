package services

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/dbx"
	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/dmitrijs2005/listings/internal/server/repositories/images"
	"github.com/dmitrijs2005/listings/internal/server/repositories/listings"
	"github.com/dmitrijs2005/listings/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/listings/internal/server/repositories/users"
	"github.com/google/uuid"
)

// --- sqlmock helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func mustMeet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

// --- in-memory repositories ---

type fakeUsersRepo struct {
	rows map[string]models.User
	err  error
	// createErr fails Create only, as a concurrent insert of the same email would.
	createErr error
}

var _ users.Repository = (*fakeUsersRepo)(nil)

func newFakeUsers(seed ...models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{rows: map[string]models.User{}}
	for _, u := range seed {
		r.rows[u.ID] = u
	}
	return r
}

func (r *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.rows {
		if existing.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	r.rows[u.ID] = *u
	return u, nil
}

func (r *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.rows {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUsersRepo) List(ctx context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(r.rows))
	for _, u := range r.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, r.err
}

func (r *fakeUsersRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	if _, ok := r.rows[u.ID]; !ok {
		return nil, common.ErrNotFound
	}
	r.rows[u.ID] = *u
	return u, nil
}

func (r *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type fakeListingsRepo struct {
	rows map[string]models.Listing

	lastSearch *models.ListingQuery
	lastCount  *models.ListingFilter
	searchOut  []models.Listing
	total      int
}

var _ listings.Repository = (*fakeListingsRepo)(nil)

func newFakeListings(seed ...models.Listing) *fakeListingsRepo {
	r := &fakeListingsRepo{rows: map[string]models.Listing{}}
	for _, l := range seed {
		r.rows[l.ID] = l
	}
	return r
}

func (r *fakeListingsRepo) Create(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now()
	r.rows[l.ID] = *l
	return l, nil
}

func (r *fakeListingsRepo) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	l, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &l, nil
}

func (r *fakeListingsRepo) Update(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	if _, ok := r.rows[l.ID]; !ok {
		return nil, common.ErrNotFound
	}
	r.rows[l.ID] = *l
	return l, nil
}

func (r *fakeListingsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeListingsRepo) Search(ctx context.Context, q models.ListingQuery) ([]models.Listing, error) {
	r.lastSearch = &q
	out := make([]models.Listing, len(r.searchOut))
	copy(out, r.searchOut)
	return out, nil
}

func (r *fakeListingsRepo) Count(ctx context.Context, f models.ListingFilter) (int, error) {
	r.lastCount = &f
	return r.total, nil
}

type fakeImagesRepo struct {
	rows      map[string][]models.ListingImage
	createErr error
}

var _ images.Repository = (*fakeImagesRepo)(nil)

func newFakeImages() *fakeImagesRepo {
	return &fakeImagesRepo{rows: map[string][]models.ListingImage{}}
}

func (r *fakeImagesRepo) Create(ctx context.Context, img *models.ListingImage) (*models.ListingImage, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	img.ID = uuid.NewString()
	img.CreatedAt = time.Now()
	r.rows[img.ListingID] = append(r.rows[img.ListingID], *img)
	return img, nil
}

func (r *fakeImagesRepo) ListByListing(ctx context.Context, listingID string) ([]models.ListingImage, error) {
	out := append([]models.ListingImage{}, r.rows[listingID]...)
	return out, nil
}

func (r *fakeImagesRepo) ListByListings(ctx context.Context, ids []string) (map[string][]models.ListingImage, error) {
	out := map[string][]models.ListingImage{}
	for _, id := range ids {
		if imgs, ok := r.rows[id]; ok {
			out[id] = imgs
		}
	}
	return out, nil
}

type fakeRepoManager struct {
	users    *fakeUsersRepo
	listings *fakeListingsRepo
	images   *fakeImagesRepo
}

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository           { return m.users }
func (m *fakeRepoManager) Listings(dbx.DBTX) listings.Repository     { return m.listings }
func (m *fakeRepoManager) Images(dbx.DBTX) images.Repository         { return m.images }
