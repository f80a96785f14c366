// Package handler contains the echo HTTP handlers.  Handlers bind and
// validate the wire shapes, parse path ids, and translate classified
// errors into HTTP statuses; all business rules live in the services.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gatepass/gatepass/internal/apperr"
)

// statusOf maps an error kind to its HTTP status.  Business-rule and
// conflict failures both surface as 409: the request was well-formed but
// the current state of the resource refuses it.
func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindBusinessRule, apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondErr writes the error envelope.  Internal details never leave the
// process: unclassified errors are logged and masked.
func respondErr(c echo.Context, log *zap.Logger, err error) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": apperr.MessageOf(err)})
}
