package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"vilo/internal/models"
)

// SheetsExporter mirrors the booking list into one tab of a Google spreadsheet.
type SheetsExporter struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *zerolog.Logger
}

// NewSheetsExporter authenticates with a service-account credentials file.
func NewSheetsExporter(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger *zerolog.Logger) (*SheetsExporter, error) {
	return NewSheetsExporterWithOptions(ctx, spreadsheetID, sheetName, logger,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

// NewSheetsExporterWithOptions builds an exporter from raw client options.
func NewSheetsExporterWithOptions(ctx context.Context, spreadsheetID, sheetName string, logger *zerolog.Logger, opts ...option.ClientOption) (*SheetsExporter, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if sheetName == "" {
		sheetName = "Bookings"
	}
	return &SheetsExporter{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

// Export replaces the sheet contents with the header and one row per booking.
func (e *SheetsExporter) Export(ctx context.Context, bookings []models.Booking) error {
	values := make([][]interface{}, 0, len(bookings)+1)
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	values = append(values, header)
	for i := range bookings {
		values = append(values, bookingRowValues(&bookings[i]))
	}

	fullRange := e.sheetName
	if _, err := e.service.Spreadsheets.Values.Clear(e.spreadsheetID, fullRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", e.sheetName, err)
	}

	_, err := e.service.Spreadsheets.Values.Update(e.spreadsheetID, e.sheetName+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update sheet %s: %w", e.sheetName, err)
	}

	if e.logger != nil {
		e.logger.Info().Int("rows", len(bookings)).Str("sheet", e.sheetName).Msg("Bookings exported to Google Sheets")
	}
	return nil
}
