// Package services contains server-side business logic. Each operation runs
// its database work in one dbx.WithTx unit of work.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/dbx"
	"github.com/dmitrijs2005/listings/internal/logging"
	"github.com/dmitrijs2005/listings/internal/server/auth"
	"github.com/dmitrijs2005/listings/internal/server/config"
	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/dmitrijs2005/listings/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	minPasswordLen = 8
	maxEmailLen    = 255
	maxFullNameLen = 255
)

// RegisterInput is a self-registration request. It has no role: new users
// are always created with models.RoleUser.
type RegisterInput struct {
	Email    string
	Password string
	FullName *string
}

// UserPatch is an admin update. Absent fields are left unchanged.
type UserPatch struct {
	Email    models.Optional[string]
	FullName models.Optional[string]
	Role     models.Optional[models.Role]
	Password models.Optional[string]
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserService manages accounts and credentials.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenManager
	tokenTTL    time.Duration
	log         logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	hasher *auth.PasswordHasher, tokens *auth.TokenManager, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		tokenTTL:    cfg.AccessTokenValidityDuration,
		log:         log,
	}
}

func validateEmail(ve *common.ValidationError, email string) {
	if email == "" {
		ve.Add("email", "is required")
		return
	}
	if len(email) > maxEmailLen {
		ve.Add("email", fmt.Sprintf("must be at most %d characters", maxEmailLen))
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		ve.Add("email", "is not a valid email address")
	}
}

func validatePassword(ve *common.ValidationError, password string) {
	if utf8.RuneCountInString(password) < minPasswordLen {
		ve.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
}

func validateFullName(ve *common.ValidationError, name *string) {
	if name != nil && utf8.RuneCountInString(*name) > maxFullNameLen {
		ve.Add("full_name", fmt.Sprintf("must be at most %d characters", maxFullNameLen))
	}
}

// Register creates a user with role "user". An already registered email
// yields common.ErrConflict.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)

	ve := &common.ValidationError{}
	validateEmail(ve, in.Email)
	validatePassword(ve, in.Password)
	validateFullName(ve, in.FullName)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, in.Email)
		if err == nil {
			return fmt.Errorf("email already registered: %w", common.ErrConflict)
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		created, err = repo.Create(ctx, &models.User{
			Email:        in.Email,
			PasswordHash: hash,
			FullName:     in.FullName,
			Role:         models.RoleUser,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", created.ID)
	return created, nil
}

// Login checks the credentials and issues an access token. Unknown emails
// and wrong passwords both return common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*Token, error) {
	var user *models.User
	err := dbx.WithTx(ctx, s.db, dbx.ReadOnly, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).GetByEmail(ctx, strings.TrimSpace(email))
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.DummyCheck(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Check(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	access, exp, err := s.tokens.Issue(user.ID, user.Role, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Token{AccessToken: access, TokenType: "bearer", ExpiresAt: exp}, nil
}

// ResolveUser loads the user behind a token subject. It satisfies
// auth.UserResolver.
func (s *UserService) ResolveUser(ctx context.Context, id string) (*models.User, error) {
	return s.Get(ctx, id)
}

// Me returns the caller's own record.
func (s *UserService) Me(id *auth.Identity) *models.User {
	return id.User
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrNotFound
	}

	var user *models.User
	err := dbx.WithTx(ctx, s.db, dbx.ReadOnly, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns all users ordered by creation time.
// TODO: paginate once the admin listing grows beyond a few hundred users.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var result []models.User
	err := dbx.WithTx(ctx, s.db, dbx.ReadOnly, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		result, err = s.repomanager.Users(tx).List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update applies patch to user id. A changed email must not belong to
// another user.
func (s *UserService) Update(ctx context.Context, id string, patch UserPatch) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrNotFound
	}

	ve := &common.ValidationError{}
	if patch.Email.Set {
		if patch.Email.Null {
			ve.Add("email", "may not be null")
		} else {
			patch.Email.Value = strings.TrimSpace(patch.Email.Value)
			validateEmail(ve, patch.Email.Value)
		}
	}
	if patch.FullName.HasValue() {
		validateFullName(ve, &patch.FullName.Value)
	}
	if patch.Role.Set && (patch.Role.Null || !patch.Role.Value.Valid()) {
		ve.Add("role", "must be one of user, moderator, admin")
	}
	if patch.Password.Set {
		if patch.Password.Null {
			ve.Add("password", "may not be null")
		} else {
			validatePassword(ve, patch.Password.Value)
		}
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	var newHash string
	if patch.Password.HasValue() {
		h, err := s.hasher.Hash(patch.Password.Value)
		if err != nil {
			return nil, err
		}
		newHash = h
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if patch.Email.HasValue() && patch.Email.Value != user.Email {
			other, err := repo.GetByEmail(ctx, patch.Email.Value)
			switch {
			case err == nil && other.ID != user.ID:
				return fmt.Errorf("email already registered: %w", common.ErrConflict)
			case err != nil && !errors.Is(err, common.ErrNotFound):
				return err
			}
			user.Email = patch.Email.Value
		}
		if patch.FullName.Set {
			if patch.FullName.Null {
				user.FullName = nil
			} else {
				name := patch.FullName.Value
				user.FullName = &name
			}
		}
		if patch.Role.HasValue() {
			user.Role = patch.Role.Value
		}
		if newHash != "" {
			user.PasswordHash = newHash
		}

		updated, err = repo.Update(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a user; the database cascades to listings and images.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrNotFound
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// CreateAdmin creates an administrator, or promotes the existing user with
// that email (keeping the stored password). It reports whether a new
// account was created.
func (s *UserService) CreateAdmin(ctx context.Context, email, password string, fullName *string) (*models.User, bool, error) {
	email = strings.TrimSpace(email)

	ve := &common.ValidationError{}
	validateEmail(ve, email)
	validatePassword(ve, password)
	validateFullName(ve, fullName)
	if err := ve.OrNil(); err != nil {
		return nil, false, err
	}

	var (
		result  *models.User
		created bool
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		existing, err := repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			existing.Role = models.RoleAdmin
			result, err = repo.Update(ctx, existing)
			return err
		case !errors.Is(err, common.ErrNotFound):
			return err
		}

		hash, err := s.hasher.Hash(password)
		if err != nil {
			return err
		}
		result, err = repo.Create(ctx, &models.User{
			Email:        email,
			PasswordHash: hash,
			FullName:     fullName,
			Role:         models.RoleAdmin,
		})
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}

	s.log.Info(ctx, "administrator ensured", "user_id", result.ID, "created", created)
	return result, created, nil
}
