package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"vilo/internal/report"
)

const (
	maxReportDays = 366

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

// GET /api/v1/reports/bookings?from=&to=&format=xlsx|csv&status=
func (s *Server) handleBookingsReport(c *gin.Context) {
	period, ok := parseRange(c, "from", "to")
	if !ok {
		return
	}
	if period.Nights() > maxReportDays {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("date range exceeds maximum of %d days", maxReportDays))
		return
	}

	format := c.DefaultQuery("format", "xlsx")
	if format != "xlsx" && format != "csv" {
		writeError(c, http.StatusBadRequest, "format must be xlsx or csv")
		return
	}

	tenant := tenantFrom(c)
	bookings, err := s.svc.ListBookings(c.Request.Context(), tenant, period, c.Query("status"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	var buf bytes.Buffer
	contentType := xlsxContentType
	if format == "csv" {
		contentType = csvContentType
		err = report.WriteBookingsCSV(&buf, bookings)
	} else {
		err = report.WriteBookingsExcel(&buf, period, bookings)
	}
	if err != nil {
		s.writeServiceError(c, fmt.Errorf("render report: %w", err))
		return
	}

	filename := fmt.Sprintf("bookings_%s_%s_%s.%s", tenant.ID, period.Start, period.End, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
