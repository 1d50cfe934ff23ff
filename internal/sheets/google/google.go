// Package google mirrors rows into a Google Sheets spreadsheet using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"gestion/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const valueInput = "USER_ENTERED"

// Config selects the spreadsheet and the service account credentials.
// CredentialsJSON takes precedence over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// Client writes one tab per mirrored resource, keyed by the id in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ sheets.Mirror = (*Client)(nil)

// New creates a Sheets client. Extra options are appended after the
// credentials, which lets tests point the client at a local endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	var base []goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		base = append(base, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		base = append(base, goption.WithCredentialsFile(cfg.CredentialsFile))
	}
	base = append(base, goption.WithScopes(gsheet.SpreadsheetsScope))

	svc, err := gsheet.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets mirror ready", "spreadsheet_id", cfg.SpreadsheetID)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// EnsureTabs creates the missing resource tabs and writes their header row.
func (c *Client) EnsureTabs(ctx context.Context) error {
	if err := c.loadSheetIDs(ctx); err != nil {
		return err
	}

	var missing []string
	c.mu.Lock()
	for recurso := range sheets.Headers {
		if _, ok := c.sheetIDs[recurso]; !ok {
			missing = append(missing, recurso)
		}
	}
	c.mu.Unlock()
	if len(missing) == 0 {
		return nil
	}

	reqs := make([]*gsheet.Request, 0, len(missing))
	for _, tab := range missing {
		reqs = append(reqs, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		})
	}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add tabs %v: %w", missing, err)
	}
	c.mu.Lock()
	for _, reply := range resp.Replies {
		if reply == nil || reply.AddSheet == nil || reply.AddSheet.Properties == nil {
			continue
		}
		p := reply.AddSheet.Properties
		c.sheetIDs[p.Title] = p.SheetId
	}
	c.mu.Unlock()

	for _, tab := range missing {
		header := make([]any, 0, len(sheets.Headers[tab]))
		for _, h := range sheets.Headers[tab] {
			header = append(header, h)
		}
		vr := &gsheet.ValueRange{Values: [][]any{header}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A1", vr).
			ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header of %s: %w", tab, err)
		}
		slog.InfoContext(ctx, "Created mirror tab", "tab", tab)
	}
	return nil
}

// AppendRow appends row to the tab, or overwrites the row with the same id.
func (c *Client) AppendRow(ctx context.Context, recurso string, row sheets.Row) error {
	if !sheets.Mirrored(recurso) {
		return fmt.Errorf("recurso %q is not mirrored", recurso)
	}
	if len(row) == 0 {
		return fmt.Errorf("empty row for %s", recurso)
	}

	n, err := c.findRow(ctx, recurso, sheets.RowID(row))
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	if n > 0 {
		rng := fmt.Sprintf("%s!A%d", recurso, n)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		slog.DebugContext(ctx, "Updated mirrored row", "tab", recurso, "row", n)
		return nil
	}

	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, recurso+"!A1", vr).
		ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append to %s: %w", recurso, err)
	}
	slog.DebugContext(ctx, "Appended mirrored row", "tab", recurso, "id", sheets.RowID(row))
	return nil
}

// DeleteRow removes the row holding id. Missing rows are ignored.
func (c *Client) DeleteRow(ctx context.Context, recurso string, id int64) error {
	n, err := c.findRow(ctx, recurso, strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}
	if n == 0 {
		slog.DebugContext(ctx, "Row to delete not present in mirror", "tab", recurso, "id", id)
		return nil
	}
	sheetID, err := c.sheetID(ctx, recurso)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:         sheetID,
			Dimension:       "ROWS",
			StartIndex:      int64(n - 1),
			EndIndex:        int64(n),
			ForceSendFields: []string{"SheetId", "StartIndex"},
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", n, recurso, err)
	}
	slog.DebugContext(ctx, "Deleted mirrored row", "tab", recurso, "id", id, "row", n)
	return nil
}

// findRow returns the 1-based row number whose column A equals id, or 0.
func (c *Client) findRow(ctx context.Context, tab, id string) (int, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read ids of %s: %w", tab, err)
	}
	for i, cells := range resp.Values {
		if i == 0 {
			continue // header
		}
		if sheets.RowID(cells) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (c *Client) sheetID(ctx context.Context, tab string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[tab]
	c.mu.Unlock()
	if ok {
		return id, nil
	}
	if err := c.loadSheetIDs(ctx); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.sheetIDs[tab]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("tab %q not found in spreadsheet", tab)
}

func (c *Client) loadSheetIDs(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range ss.Sheets {
		if s == nil || s.Properties == nil {
			continue
		}
		c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
	}
	return nil
}
