package httpapi

import (
	"errors"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

// listListings handles GET /listings.
func (s *Server) listListings(c *fiber.Ctx) error {
	q, err := parseListingQuery(c)
	if err != nil {
		return err
	}

	page, err := s.deps.Listings.List(c.UserContext(), q)
	if err != nil {
		return asQueryError(err)
	}
	return c.JSON(newListingPageResponse(page))
}

// listMyListings handles GET /listings/me.
func (s *Server) listMyListings(c *fiber.Ctx) error {
	q, err := parseListingQuery(c)
	if err != nil {
		return err
	}

	page, err := s.deps.Listings.ListForOwner(c.UserContext(), identity(c), q)
	if err != nil {
		return asQueryError(err)
	}
	return c.JSON(newListingPageResponse(page))
}

// asQueryError reclassifies service validation failures of search
// parameters as bad requests.
func asQueryError(err error) error {
	if errors.Is(err, common.ErrValidation) {
		return badQuery(err)
	}
	return err
}

// createListing handles POST /listings.
func (s *Server) createListing(c *fiber.Ctx) error {
	var req listingCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	in, err := req.toInput()
	if err != nil {
		return err
	}

	l, err := s.deps.Listings.Create(c.UserContext(), identity(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newListingResponse(l))
}

// getListing handles GET /listings/:id.
func (s *Server) getListing(c *fiber.Ctx) error {
	l, err := s.deps.Listings.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newListingResponse(l))
}

// updateListing handles PATCH /listings/:id.
func (s *Server) updateListing(c *fiber.Ctx) error {
	var req listingPatchRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	l, err := s.deps.Listings.Update(c.UserContext(), identity(c), c.Params("id"), req.toPatch())
	if err != nil {
		return err
	}
	return c.JSON(newListingResponse(l))
}

// deleteListing handles DELETE /listings/:id.
func (s *Server) deleteListing(c *fiber.Ctx) error {
	if err := s.deps.Listings.Delete(c.UserContext(), identity(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// uploadImage handles POST /listings/:id/images with a multipart "file" part.
func (s *Server) uploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return common.NewValidationError("file", "is required")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := s.deps.Images.Attach(c.UserContext(), identity(c), c.Params("id"), services.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newImageResponse(*img))
}
