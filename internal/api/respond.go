package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vilo/internal/booking"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// writeServiceError maps booking errors to HTTP statuses.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	if ve := booking.AsValidationError(err); ve != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: ve.Error(), Fields: ve.Fields()})
		return
	}

	switch {
	case errors.Is(err, booking.ErrRoomNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, booking.ErrOverrideNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrDatesUnavailable),
		errors.Is(err, booking.ErrAlreadyCancelled):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrRoomInactive),
		errors.Is(err, booking.ErrInvalidStay),
		errors.Is(err, booking.ErrStayTooShort),
		errors.Is(err, booking.ErrStayTooLong):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
