// Package sheets appends generated scripts to a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/anatolykoptev/go_reels/internal/engine"
)

// ErrUpload wraps every failure of the upload chain.
var ErrUpload = errors.New("sheet upload error")

// Worksheet layout.
const (
	WorksheetName = "Scripts"
	StatusReady   = "Ready for Use"
	TimeLayout    = "2006-01-02 15:04:05"

	worksheetRows = 1000
	worksheetCols = 10
)

// Header is the first row of the worksheet.
var Header = []string{
	"Timestamp", "Script Number", "Title", "Theme", "Script Content",
	"Word Count", "Videos Processed", "Credibility", "Status",
}

// Batch is the set of rows produced by one run.
type Batch struct {
	Scripts         []engine.Script
	Timestamp       string
	VideosProcessed int
	Credibility     string
}

// GoogleSheets uploads batches with a service account.
type GoogleSheets struct {
	sheets    *gsheets.Service
	drive     *drive.Service
	sheetName string
	retry     engine.RetryPolicy
}

// NewGoogleSheets authenticates with the service-account JSON, scoped for
// spreadsheets and drive. Extra options are appended (endpoints, clients).
func NewGoogleSheets(ctx context.Context, credsJSON, sheetName string, opts ...option.ClientOption) (*GoogleSheets, error) {
	base := []option.ClientOption{
		option.WithCredentialsJSON([]byte(credsJSON)),
		option.WithScopes(gsheets.SpreadsheetsScope, drive.DriveScope),
	}
	base = append(base, opts...)

	ss, err := gsheets.NewService(ctx, base...)
	if err != nil {
		return nil, fmt.Errorf("%w: sheets client: %w", ErrUpload, err)
	}
	ds, err := drive.NewService(ctx, base...)
	if err != nil {
		return nil, fmt.Errorf("%w: drive client: %w", ErrUpload, err)
	}
	return newGoogleSheets(ss, ds, sheetName), nil
}

func newGoogleSheets(ss *gsheets.Service, ds *drive.Service, sheetName string) *GoogleSheets {
	retry := engine.DefaultRetryPolicy
	retry.Retryable = retryable
	return &GoogleSheets{sheets: ss, drive: ds, sheetName: sheetName, retry: retry}
}

// Upload appends one row per script and returns the spreadsheet URL.
// All rows go out in a single values.update call.
func (g *GoogleSheets) Upload(ctx context.Context, b Batch) (string, error) {
	url, err := g.upload(ctx, b)
	if err != nil {
		engine.IncrSheetErrors()
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}
	engine.IncrSheetUploads()
	return url, nil
}

func (g *GoogleSheets) upload(ctx context.Context, b Batch) (string, error) {
	ss, err := g.openOrCreate(ctx)
	if err != nil {
		return "", err
	}
	sheetID, created, err := g.ensureWorksheet(ctx, ss)
	if err != nil {
		return "", err
	}

	existing, err := engine.RetryDo(ctx, g.retry, func() (*gsheets.ValueRange, error) {
		return g.sheets.Spreadsheets.Values.Get(ss.SpreadsheetId, WorksheetName+"!A:I").Context(ctx).Do()
	})
	if err != nil {
		return "", fmt.Errorf("read rows: %w", err)
	}
	used := len(existing.Values)
	if created || used == 0 {
		if err := g.writeHeader(ctx, ss.SpreadsheetId, sheetID); err != nil {
			return "", err
		}
		used = 1
	}

	if len(b.Scripts) > 0 {
		start := used + 1
		rng := fmt.Sprintf("%s!A%d:I%d", WorksheetName, start, start+len(b.Scripts)-1)
		_, err = engine.RetryDo(ctx, g.retry, func() (*gsheets.UpdateValuesResponse, error) {
			return g.sheets.Spreadsheets.Values.Update(ss.SpreadsheetId, rng, &gsheets.ValueRange{Values: BuildRows(b)}).
				ValueInputOption("RAW").Context(ctx).Do()
		})
		if err != nil {
			return "", fmt.Errorf("write rows: %w", err)
		}
	}

	// Cosmetic only.
	if err := g.batchUpdate(ctx, ss.SpreadsheetId, &gsheets.Request{
		AutoResizeDimensions: &gsheets.AutoResizeDimensionsRequest{
			Dimensions: &gsheets.DimensionRange{
				SheetId: sheetID, Dimension: "COLUMNS", StartIndex: 0, EndIndex: int64(len(Header)),
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
		},
	}); err != nil {
		slog.Debug("sheets: auto-resize failed", slog.Any("error", err))
	}

	slog.Info("sheets: rows appended", slog.String("spreadsheet", ss.SpreadsheetId), slog.Int("rows", len(b.Scripts)))
	return spreadsheetURL(ss), nil
}

// openOrCreate finds the spreadsheet by exact name in Drive, creating it if absent.
func (g *GoogleSheets) openOrCreate(ctx context.Context) (*gsheets.Spreadsheet, error) {
	list, err := engine.RetryDo(ctx, g.retry, func() (*drive.FileList, error) {
		return g.drive.Files.List().Q(nameQuery(g.sheetName)).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("find spreadsheet %q: %w", g.sheetName, err)
	}

	if len(list.Files) > 0 {
		id := list.Files[0].Id
		ss, err := engine.RetryDo(ctx, g.retry, func() (*gsheets.Spreadsheet, error) {
			return g.sheets.Spreadsheets.Get(id).Fields("spreadsheetId,spreadsheetUrl,sheets.properties").Context(ctx).Do()
		})
		if err != nil {
			return nil, fmt.Errorf("open spreadsheet %s: %w", id, err)
		}
		return ss, nil
	}

	slog.Info("sheets: creating spreadsheet", slog.String("name", g.sheetName))
	ss, err := g.sheets.Spreadsheets.Create(&gsheets.Spreadsheet{
		Properties: &gsheets.SpreadsheetProperties{Title: g.sheetName},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create spreadsheet %q: %w", g.sheetName, err)
	}
	return ss, nil
}

// ensureWorksheet returns the id of the Scripts worksheet and whether it was just added.
func (g *GoogleSheets) ensureWorksheet(ctx context.Context, ss *gsheets.Spreadsheet) (int64, bool, error) {
	if id, ok := findWorksheet(ss, WorksheetName); ok {
		return id, false, nil
	}
	resp, err := engine.RetryDo(ctx, g.retry, func() (*gsheets.BatchUpdateSpreadsheetResponse, error) {
		return g.sheets.Spreadsheets.BatchUpdate(ss.SpreadsheetId, &gsheets.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheets.Request{{
				AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{
					Title:          WorksheetName,
					GridProperties: &gsheets.GridProperties{RowCount: worksheetRows, ColumnCount: worksheetCols},
				}},
			}},
		}).Context(ctx).Do()
	})
	if err != nil {
		return 0, false, fmt.Errorf("add worksheet: %w", err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, false, errors.New("add worksheet: empty reply")
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, true, nil
}

func (g *GoogleSheets) writeHeader(ctx context.Context, spreadsheetID string, sheetID int64) error {
	row := make([]any, len(Header))
	for i, h := range Header {
		row[i] = h
	}
	_, err := engine.RetryDo(ctx, g.retry, func() (*gsheets.UpdateValuesResponse, error) {
		return g.sheets.Spreadsheets.Values.Update(spreadsheetID, WorksheetName+"!A1:I1",
			&gsheets.ValueRange{Values: [][]any{row}}).ValueInputOption("RAW").Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return g.batchUpdate(ctx, spreadsheetID, headerStyle(sheetID))
}

func (g *GoogleSheets) batchUpdate(ctx context.Context, spreadsheetID string, reqs ...*gsheets.Request) error {
	_, err := engine.RetryDo(ctx, g.retry, func() (*gsheets.BatchUpdateSpreadsheetResponse, error) {
		return g.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).
			Context(ctx).Do()
	})
	return err
}

// BuildRows renders a batch as worksheet rows in Header order.
func BuildRows(b Batch) [][]any {
	rows := make([][]any, 0, len(b.Scripts))
	for _, s := range b.Scripts {
		rows = append(rows, []any{
			b.Timestamp, s.Number, s.Title, s.Theme, s.Content,
			s.WordCount, b.VideosProcessed, b.Credibility, StatusReady,
		})
	}
	return rows
}

func headerStyle(sheetID int64) *gsheets.Request {
	return &gsheets.Request{
		RepeatCell: &gsheets.RepeatCellRequest{
			Range: &gsheets.GridRange{
				SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1,
				StartColumnIndex: 0, EndColumnIndex: int64(len(Header)),
				ForceSendFields: []string{"SheetId"},
			},
			Cell: &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{
				BackgroundColor: &gsheets.Color{Red: 0.2, Green: 0.6, Blue: 0.9},
				TextFormat: &gsheets.TextFormat{
					Bold:            true,
					ForegroundColor: &gsheets.Color{Red: 1, Green: 1, Blue: 1},
				},
				HorizontalAlignment: "CENTER",
			}},
			Fields: "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)",
		},
	}
}

func findWorksheet(ss *gsheets.Spreadsheet, title string) (int64, bool) {
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, true
		}
	}
	return 0, false
}

// nameQuery builds a Drive search for a non-trashed spreadsheet with this exact name.
func nameQuery(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	return fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false", escaped)
}

func spreadsheetURL(ss *gsheets.Spreadsheet) string {
	if ss.SpreadsheetUrl != "" {
		return ss.SpreadsheetUrl
	}
	return "https://docs.google.com/spreadsheets/d/" + ss.SpreadsheetId
}

func retryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
	}
	return engine.IsRetryable(err)
}
