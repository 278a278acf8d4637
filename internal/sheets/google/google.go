package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetBase = "Entries"

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetBase       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Entries"); the entry year is prefixed.
	sheetBase string
}

var _ ports.EntryMirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(cfg.SheetBase)
	if base == "" {
		base = defaultSheetBase
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, spreadsheetID: id, sheetBase: base}, nil
}

// newSheetsService resolves credentials from the config, falling back to
// GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// UpsertEntry overwrites the row whose column A holds the entry id, or
// writes the next empty row of the entry's yearly sheet.
func (c *Client) UpsertEntry(ctx context.Context, e core.Entry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if e.ID == "" {
		return "", errors.New("entry without id")
	}
	sheet := c.sheetFor(e.Date.Year())

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return "", err
	}
	row := rowFor(ids, e.ID)

	values := make([]any, 0, len(ports.Header))
	for _, v := range ports.Row(e) {
		values = append(values, v)
	}
	ref := fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn(), row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update row %s: %w", ref, err)
	}
	return ref, nil
}

func (c *Client) RemoveEntry(ctx context.Context, id string, year int) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := c.sheetFor(year)
	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return err
	}
	idx := indexOf(ids, id)
	if idx < 0 {
		slog.DebugContext(ctx, "No mirrored row to clear", "id", id, "sheet", sheet)
		return nil
	}
	ref := fmt.Sprintf("%s!A%d:%s%d", sheet, idx+1, lastColumn(), idx+1)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, ref, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row %s: %w", ref, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", sheet, err)
	}
	ids := make([]string, len(resp.Values))
	for i, r := range resp.Values {
		if len(r) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(r[0]))
		}
	}
	return ids, nil
}

func (c *Client) sheetFor(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// rowFor returns the 1-based row holding id, or the first row after the
// existing ones.
func rowFor(ids []string, id string) int {
	if i := indexOf(ids, id); i >= 0 {
		return i + 1
	}
	return len(ids) + 1
}

func lastColumn() string {
	return string(rune('A' + len(ports.Header) - 1))
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
