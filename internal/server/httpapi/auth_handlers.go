package httpapi

import (
	"github.com/dmitrijs2005/listings/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

// register handles POST /auth/register.
func (s *Server) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	u, err := s.deps.Users.Register(c.UserContext(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(u)
}

// login handles POST /auth/login.
func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	tok, err := s.deps.Users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(tok)
}

// me handles GET /auth/me.
func (s *Server) me(c *fiber.Ctx) error {
	return c.JSON(identity(c).User)
}
