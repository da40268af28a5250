package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vilo/internal/booking"
)

type quoteBody struct {
	RoomID   int64                  `json:"room_id"`
	CheckIn  string                 `json:"check_in"`
	CheckOut string                 `json:"check_out"`
	Guests   int                    `json:"guests"`
	AddOns   []booking.AddOnRequest `json:"addons"`
}

// toRequest parses the dates. Missing dates are left to the service validation.
func (b quoteBody) toRequest() (booking.QuoteRequest, error) {
	checkIn, err := parseDate(b.CheckIn, "check_in", false)
	if err != nil {
		return booking.QuoteRequest{}, err
	}
	checkOut, err := parseDate(b.CheckOut, "check_out", false)
	if err != nil {
		return booking.QuoteRequest{}, err
	}
	return booking.QuoteRequest{
		RoomID:   b.RoomID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   b.Guests,
		AddOns:   b.AddOns,
	}, nil
}

type bookingBody struct {
	quoteBody
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	Comment    string `json:"comment"`
}

// POST /api/v1/quotes
func (s *Server) handleQuote(c *gin.Context) {
	var body quoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	q, err := s.svc.Quote(c.Request.Context(), tenantFrom(c), req)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

// POST /api/v1/bookings
func (s *Server) handleCreateBooking(c *gin.Context) {
	var body bookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.svc.CreateBooking(c.Request.Context(), tenantFrom(c), booking.BookingRequest{
		QuoteRequest: req,
		GuestName:    body.GuestName,
		GuestEmail:   body.GuestEmail,
		GuestPhone:   body.GuestPhone,
		Comment:      body.Comment,
	})
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}

// GET /api/v1/bookings/:ref
func (s *Server) handleGetBooking(c *gin.Context) {
	b, err := s.svc.GetBooking(c.Request.Context(), tenantFrom(c), c.Param("ref"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

// POST /api/v1/bookings/:ref/cancel
func (s *Server) handleCancelBooking(c *gin.Context) {
	b, err := s.svc.CancelBooking(c.Request.Context(), tenantFrom(c), c.Param("ref"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}
