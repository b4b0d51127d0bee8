package httpapi

import "github.com/gofiber/fiber/v2"

// listUsers handles GET /users (admin only).
func (s *Server) listUsers(c *fiber.Ctx) error {
	users, err := s.deps.Users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (s *Server) getUser(c *fiber.Ctx) error {
	u, err := s.deps.Users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (s *Server) updateUser(c *fiber.Ctx) error {
	var req userPatchRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	u, err := s.deps.Users.Update(c.UserContext(), c.Params("id"), req.toPatch())
	if err != nil {
		return err
	}
	s.log.Info(c.UserContext(), "user updated", "target_id", u.ID, "by", identity(c).UserID)
	return c.JSON(u)
}

func (s *Server) deleteUser(c *fiber.Ctx) error {
	if err := s.deps.Users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	s.log.Info(c.UserContext(), "user deleted", "target_id", c.Params("id"), "by", identity(c).UserID)
	return c.SendStatus(fiber.StatusNoContent)
}
