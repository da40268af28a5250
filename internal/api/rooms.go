package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vilo/internal/calendar"
	"vilo/internal/models"
	"vilo/internal/pricing"
	"vilo/internal/stay"
)

// MaxAvailabilityDaysRange is the maximum number of days allowed in an availability request.
const MaxAvailabilityDaysRange = 90

func parseRoomID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "invalid room id")
		return 0, false
	}
	return id, true
}

// parseDate parses a YYYY-MM-DD value named name. Empty values are an error when required.
func parseDate(value, name string, required bool) (stay.Date, error) {
	if value == "" {
		if required {
			return stay.Date{}, fmt.Errorf("%s is required", name)
		}
		return stay.Date{}, nil
	}
	d, err := stay.Parse(value)
	if err != nil {
		return stay.Date{}, fmt.Errorf("invalid %s format; expected YYYY-MM-DD", name)
	}
	return d, nil
}

// parseRange reads two required date query parameters.
func parseRange(c *gin.Context, startName, endName string) (stay.StayRange, bool) {
	start, err := parseDate(c.Query(startName), startName, true)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return stay.StayRange{}, false
	}
	end, err := parseDate(c.Query(endName), endName, true)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return stay.StayRange{}, false
	}
	if !end.After(start) {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("%s must be after %s", endName, startName))
		return stay.StayRange{}, false
	}
	return stay.NewRange(start, end), true
}

// GET /api/v1/rooms
func (s *Server) handleListRooms(c *gin.Context) {
	rooms, err := s.svc.ListRooms(c.Request.Context(), tenantFrom(c))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	writeJSON(c, http.StatusOK, gin.H{"rooms": rooms})
}

// GET /api/v1/rooms/:id/calendar?month=YYYY-MM&start=&end=
func (s *Server) handleCalendar(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	tenant := tenantFrom(c)

	today := s.svc.Today(tenant)
	year, month := today.Year(), today.Month()
	if m := c.Query("month"); m != "" {
		var err error
		year, month, err = calendar.ParseMonth(m)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid month format; expected YYYY-MM")
			return
		}
	}

	start, err := parseDate(c.Query("start"), "start", false)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDate(c.Query("end"), "end", false)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.Calendar(c.Request.Context(), tenant, roomID, year, month, stay.NewRange(start, end))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

// GET /api/v1/rooms/:id/availability?from=&to=
func (s *Server) handleAvailability(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	window, ok := parseRange(c, "from", "to")
	if !ok {
		return
	}
	if window.Nights() > MaxAvailabilityDaysRange {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("date range exceeds maximum of %d days", MaxAvailabilityDaysRange))
		return
	}

	unavailable, err := s.svc.Availability(c.Request.Context(), tenantFrom(c), roomID, window)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"room_id":     roomID,
		"from":        window.Start,
		"to":          window.End,
		"unavailable": unavailable.Strings(),
	})
}

type ratesResponse struct {
	RoomID int64                 `json:"room_id"`
	Stay   stay.StayRange        `json:"stay"`
	Nights int                   `json:"nights"`
	Rates  []pricing.NightlyRate `json:"rates"`
	Total  float64               `json:"total"`
}

// GET /api/v1/rooms/:id/rates?check_in=&check_out=
func (s *Server) handleRates(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	r, ok := parseRange(c, "check_in", "check_out")
	if !ok {
		return
	}

	rates, err := s.svc.Rates(c.Request.Context(), tenantFrom(c), roomID, r)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, ratesResponse{
		RoomID: roomID,
		Stay:   r,
		Nights: len(rates),
		Rates:  rates,
		Total:  pricing.Total(rates),
	})
}

type overrideRequest struct {
	Price *float64 `json:"price"`
	Note  string   `json:"note"`
}

// PUT /api/v1/rooms/:id/overrides/:date
func (s *Server) handleSetOverride(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	date, err := parseDate(c.Param("date"), "date", true)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Price == nil {
		writeError(c, http.StatusBadRequest, "price is required")
		return
	}

	o, err := s.svc.SetOverride(c.Request.Context(), tenantFrom(c), models.RateOverride{
		RoomID: roomID,
		Date:   date,
		Price:  *req.Price,
		Note:   req.Note,
	})
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

// DELETE /api/v1/rooms/:id/overrides/:date
func (s *Server) handleDeleteOverride(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	date, err := parseDate(c.Param("date"), "date", true)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.DeleteOverride(c.Request.Context(), tenantFrom(c), roomID, date); err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type selectRequest struct {
	SessionID string `json:"session_id"`
	Date      string `json:"date"`
}

// POST /api/v1/rooms/:id/selection
func (s *Server) handleSelect(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := parseDate(req.Date, "date", true)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.Select(c.Request.Context(), tenantFrom(c), req.SessionID, roomID, date)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

// GET /api/v1/rooms/:id/selection?session_id=
func (s *Server) handleGetSelection(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	view := s.svc.Selection(c.Request.Context(), tenantFrom(c), c.Query("session_id"))
	if view == nil || view.RoomID != roomID {
		writeError(c, http.StatusNotFound, "selection not found")
		return
	}
	writeJSON(c, http.StatusOK, view)
}

// DELETE /api/v1/rooms/:id/selection?session_id=
func (s *Server) handleResetSelection(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		writeError(c, http.StatusBadRequest, "session_id is required")
		return
	}
	s.svc.ResetSelection(tenantFrom(c), sessionID)
	c.Status(http.StatusNoContent)
}
