package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/rubberworks/queuegate/internal/config"
)

// Repository defines the persistence operations supported by the Google Sheets adapter.
type Repository interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
	EnsureHeader(ctx context.Context, sheetRange string, header []interface{}) error
	AppendIfAbsent(ctx context.Context, sheetRange string, values []interface{}) (bool, error)
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRow appends the provided values to the supplied sheet range.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// ReadRange fetches a rectangular data range from the spreadsheet.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}

// EnsureHeader writes header as the first row when the range is still empty.
func (r *GoogleSheetRepository) EnsureHeader(ctx context.Context, sheetRange string, header []interface{}) error {
	rows, err := r.ReadRange(ctx, sheetRange)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	return r.WriteRow(ctx, sheetRange, header)
}

// AppendIfAbsent appends values unless a row with the same first cell already exists.
// Returns true when a row was written.
func (r *GoogleSheetRepository) AppendIfAbsent(ctx context.Context, sheetRange string, values []interface{}) (bool, error) {
	if len(values) == 0 {
		return false, fmt.Errorf("values must not be empty")
	}

	rows, err := r.ReadRange(ctx, sheetRange)
	if err != nil {
		return false, err
	}
	if HasKey(rows, values[0]) {
		r.logger.Debug("row already present, skipping append", zap.String("range", sheetRange), zap.Any("key", values[0]))
		return false, nil
	}

	if err := r.WriteRow(ctx, sheetRange, values); err != nil {
		return false, err
	}
	return true, nil
}

// HasKey reports whether any row's first cell equals key once both are printed as text.
func HasKey(rows [][]interface{}, key interface{}) bool {
	want := strings.TrimSpace(fmt.Sprint(key))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return true
		}
	}
	return false
}
