package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"anthemengine/internal/anthem"
	"anthemengine/internal/records"
	"anthemengine/internal/service"
	"anthemengine/internal/storage"
)

// errorBody is the JSON body of every failed request.
type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps a service error to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	case errors.Is(err, service.ErrMissingID):
		return http.StatusBadRequest, "opportunityId is required"
	case errors.Is(err, records.ErrNoSource):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, records.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrAlreadyRunning):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrNoHistory):
		return http.StatusNotImplemented, err.Error()
	case errors.Is(err, records.ErrUpstream):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, anthem.ErrEmptySchema), errors.Is(err, anthem.ErrNonPositiveBudget):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "An unexpected error occurred: " + err.Error()
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := StatusFor(err)
	log := s.logger.WithField("path", c.Path()).WithField("status", code)
	if code >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	} else {
		log.Debugf("request rejected: %v", err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorBody{Error: true, Message: msg})
	}
	if err != nil {
		log.WithError(err).Warn("failed to write error response")
	}
}
