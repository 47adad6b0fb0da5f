package handler // handler defines http handlers

import (
	"context"       // context bounds storage calls per request
	"errors"        // errors matches service sentinels
	"io"            // io reads uploaded files
	"net/http"      // http status codes
	"strconv"       // strconv parses path ids
	"time"          // time for request timeouts

	"github.com/labstack/echo/v4" // echo request context

	"github.com/andymattgee/swe-blog/internal/logging"    // structured logging of 5xx causes
	"github.com/andymattgee/swe-blog/internal/middleware" // access to the authenticated user
	"github.com/andymattgee/swe-blog/internal/model"      // domain types
	"github.com/andymattgee/swe-blog/internal/service"    // error taxonomy
)

const (
	dbTimeout     = 5 * time.Second  // bound for plain CRUD calls
	uploadTimeout = 30 * time.Second // bound for requests that store an image
)

// requestCtx derives a bounded context from the request.
func requestCtx(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}

// currentUser returns the user resolved by the auth middleware. Routes are
// always mounted behind it, so a miss is a wiring bug reported as 401.
func currentUser(c echo.Context) (*model.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return u, nil
}

// parseID reads the :id path parameter. Anything that is not a positive
// integer can never match a row, so it is reported as not found.
func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": service.ErrNotFound.Error()})
}

// writeError maps the service error taxonomy to a status and an
// {"error": msg} body. Causes of 5xx responses are logged, never sent.
func writeError(c echo.Context, log logging.Logger, err error) error {
	return writeErrorAs(c, log, "error", err)
}

func writeErrorAs(c echo.Context, log logging.Logger, key string, err error) error {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "status", status, "err", err)
	}
	body := echo.Map{key: msg}
	if code := errorCode(err); code != "" {
		body["code"] = code
	}
	return c.JSON(status, body)
}

// errorCode is the machine-readable companion of the 401 messages.
func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return model.ErrCodeInvalidCredentials
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrRevokedToken):
		return model.ErrCodeInvalidToken
	}
	return ""
}

func classify(err error) (int, string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, service.ErrInvalidToken.Error()
	case errors.Is(err, service.ErrRevokedToken):
		return http.StatusUnauthorized, service.ErrRevokedToken.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, service.ErrNotFound.Error()
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusBadRequest, service.ErrDuplicateEmail.Error()
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway, "upstream service unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// readImage returns the multipart file in field, or nil when none was sent.
// At most maxBytes+1 bytes are read so the size check downstream still sees
// an oversized upload.
func readImage(c echo.Context, field string, maxBytes int64) (*service.ImageUpload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, &service.ValidationError{Field: field, Msg: "invalid multipart upload"}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, err
	}
	return &service.ImageUpload{Filename: fh.Filename, Data: data}, nil
}
