package httpapi

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/listings/internal/logging"
	"github.com/dmitrijs2005/listings/internal/server/auth"
	"github.com/dmitrijs2005/listings/internal/server/config"
	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/dmitrijs2005/listings/internal/server/services"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, email, password string) (*services.Token, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Token), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id string, patch services.UserPatch) (*models.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) Create(ctx context.Context, caller *auth.Identity, in services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Update(ctx context.Context, caller *auth.Identity, id string, patch services.ListingPatch) (*models.Listing, error) {
	args := m.Called(ctx, caller, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	return m.Called(ctx, caller, id).Error(0)
}

func (m *MockListingService) List(ctx context.Context, q models.ListingQuery) (*models.ListingPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingPage), args.Error(1)
}

func (m *MockListingService) ListForOwner(ctx context.Context, caller *auth.Identity, q models.ListingQuery) (*models.ListingPage, error) {
	args := m.Called(ctx, caller, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingPage), args.Error(1)
}

type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) Attach(ctx context.Context, caller *auth.Identity, listingID string, up services.ImageUpload) (*models.ListingImage, error) {
	args := m.Called(ctx, caller, listingID, up)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingImage), args.Error(1)
}

type MockGate struct {
	mock.Mock
}

func (m *MockGate) Authorize(ctx context.Context, header string, policy auth.Policy) (*auth.Identity, error) {
	args := m.Called(ctx, header, policy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Identity), args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) PingContext(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type testEnv struct {
	server   *Server
	users    *MockUserService
	listings *MockListingService
	images   *MockImageService
	gate     *MockGate
	db       *MockPinger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLog(t, logging.Discard())
}

func newTestEnvWithLog(t *testing.T, log logging.Logger) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	env := &testEnv{
		users:    new(MockUserService),
		listings: new(MockListingService),
		images:   new(MockImageService),
		gate:     new(MockGate),
		db:       new(MockPinger),
	}
	env.server = New(cfg, Deps{
		Users:    env.users,
		Listings: env.listings,
		Images:   env.images,
		Gate:     env.gate,
		DB:       env.db,
		Log:      log,
	})

	t.Cleanup(func() {
		env.users.AssertExpectations(t)
		env.listings.AssertExpectations(t)
		env.images.AssertExpectations(t)
		env.gate.AssertExpectations(t)
		env.db.AssertExpectations(t)
	})
	return env
}

func (e *testEnv) signIn(token string, policy auth.Policy, id *auth.Identity) {
	e.gate.On("Authorize", mock.Anything, "Bearer "+token, policy).Return(id, nil)
}

func userIdentity(id string, role models.Role) *auth.Identity {
	return &auth.Identity{
		UserID: id,
		Role:   role,
		User:   &models.User{ID: id, Email: id + "@example.com", Role: role},
	}
}
