package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/server/models"
)

// Identity is the resolved caller of a request.
type Identity struct {
	UserID string
	Role   models.Role
	User   *models.User
}

// UserResolver loads the current user row for a token subject.
type UserResolver interface {
	ResolveUser(ctx context.Context, id string) (*models.User, error)
}

// Gate turns an Authorization header into an Identity and enforces policies.
type Gate struct {
	tokens *TokenManager
	users  UserResolver
}

func NewGate(tokens *TokenManager, users UserResolver) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// ParseBearer extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively.
func ParseBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("missing bearer token")
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", errors.New("malformed bearer token")
	}
	return token, nil
}

// Authenticate verifies the bearer token and resolves its subject. The role
// comes from the stored user, not the token.
func (g *Gate) Authenticate(ctx context.Context, header string) (*Identity, error) {
	token, err := ParseBearer(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthenticated, err)
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthenticated, err)
	}

	user, err := g.users.ResolveUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", common.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	return &Identity{UserID: user.ID, Role: user.Role, User: user}, nil
}

// Authorize authenticates the caller and requires its role to be in policy.
func (g *Gate) Authorize(ctx context.Context, header string, policy Policy) (*Identity, error) {
	id, err := g.Authenticate(ctx, header)
	if err != nil {
		return nil, err
	}
	if !policy.Allows(id.Role) {
		return nil, fmt.Errorf("%w: role %s not allowed for %s", common.ErrForbidden, id.Role, policy)
	}
	return id, nil
}
