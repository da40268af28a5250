package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"vilo/internal/models"
)

// WriteBookingsCSV writes one row per booking under the Columns header.
func WriteBookingsCSV(wr io.Writer, bookings []models.Booking) error {
	w := csv.NewWriter(wr)
	if err := w.Write(Columns); err != nil {
		return err
	}

	for i := range bookings {
		values := bookingRowValues(&bookings[i])
		record := make([]string, len(values))
		for j, v := range values {
			record[j] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write booking %s: %w", bookings[i].Reference, err)
		}
	}

	w.Flush()
	return w.Error()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	default:
		return fmt.Sprint(x)
	}
}
