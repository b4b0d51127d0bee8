package httpapi

import (
	"errors"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeBadRequest         = "BAD_REQUEST"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// queryError marks validation failures of query-string parameters, which
// are reported as 400 rather than 422.
type queryError struct {
	err error
}

func (e *queryError) Error() string { return e.err.Error() }
func (e *queryError) Unwrap() error { return e.err }

func badQuery(err error) error {
	if err == nil {
		return nil
	}
	return &queryError{err: err}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, body := s.classify(c, err)
	if status == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}
	return c.Status(status).JSON(body)
}

func (s *Server) classify(c *fiber.Ctx, err error) (int, ErrorResponse) {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		status := fiber.StatusUnprocessableEntity
		var qe *queryError
		if errors.As(err, &qe) {
			status = fiber.StatusBadRequest
		}
		return status, ErrorResponse{Error: "Validation failed.", Code: CodeValidation, Details: ve.Fields}
	}

	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, ErrorResponse{Error: "Invalid email or password.", Code: CodeUnauthenticated}
	case errors.Is(err, common.ErrUnauthenticated):
		return fiber.StatusUnauthorized, ErrorResponse{Error: "Could not validate credentials.", Code: CodeUnauthenticated}
	case errors.Is(err, common.ErrForbidden):
		return fiber.StatusForbidden, ErrorResponse{Error: "Not enough permissions.", Code: CodeForbidden}
	case errors.Is(err, common.ErrNotFound):
		return fiber.StatusNotFound, ErrorResponse{Error: "Resource not found.", Code: CodeNotFound}
	case errors.Is(err, common.ErrConflict):
		return fiber.StatusConflict, ErrorResponse{Error: "Email already registered.", Code: CodeConflict}
	case errors.Is(err, common.ErrStorageUnavailable):
		s.log.Error(c.UserContext(), "object storage failure", "error", err)
		return fiber.StatusServiceUnavailable, ErrorResponse{Error: "Image storage is unavailable.", Code: CodeStorageUnavailable}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeBadRequest
		switch fe.Code {
		case fiber.StatusNotFound:
			code = CodeNotFound
		case fiber.StatusRequestEntityTooLarge:
			code = CodePayloadTooLarge
		}
		if fe.Code >= fiber.StatusInternalServerError {
			code = CodeInternal
		}
		return fe.Code, ErrorResponse{Error: fe.Message, Code: code}
	}

	s.log.Error(c.UserContext(), "unhandled error", "error", err, "path", c.Path())
	return fiber.StatusInternalServerError, ErrorResponse{Error: "Internal server error.", Code: CodeInternal}
}
