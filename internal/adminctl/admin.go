// Package adminctl implements the interactive bootstrap of an administrator
// account.
package adminctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/listings/internal/server/models"
)

// ErrPasswordMismatch is returned when the confirmation differs.
var ErrPasswordMismatch = errors.New("passwords do not match")

// AdminCreator creates an admin or promotes an existing account.
type AdminCreator interface {
	CreateAdmin(ctx context.Context, email, password string, fullName *string) (*models.User, bool, error)
}

// Prompter gathers admin details from a reader and reports to a writer.
type Prompter struct {
	In  *bufio.Reader
	Out io.Writer
	// Fd is the descriptor checked for a terminal when reading passwords.
	Fd int
}

// Run asks for email, optional full name and password (twice), then calls
// creator.
func (p Prompter) Run(ctx context.Context, creator AdminCreator) (*models.User, error) {
	email, err := getText(p.In, "Admin email", p.Out)
	if err != nil {
		return nil, fmt.Errorf("read email: %w", err)
	}

	name, err := getText(p.In, "Full name (optional)", p.Out)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read full name: %w", err)
	}
	var fullName *string
	if name != "" {
		fullName = &name
	}

	password, err := getPassword(p.In, p.Fd, "Password", p.Out)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	confirm, err := getPassword(p.In, p.Fd, "Repeat password", p.Out)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	u, created, err := creator.CreateAdmin(ctx, email, password, fullName)
	if err != nil {
		return nil, err
	}

	if created {
		fmt.Fprintf(p.Out, "Created admin %s (%s)\n", u.Email, u.ID)
	} else {
		fmt.Fprintf(p.Out, "Promoted %s (%s) to admin; password left unchanged\n", u.Email, u.ID)
	}
	return u, nil
}
