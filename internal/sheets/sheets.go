package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"congresoreg/internal/model"
)

var ErrSchemaMismatch = errors.New("destination tab header does not match the declared schema")

type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	log           *zerolog.Logger
}

func New(ctx context.Context, credentialsFile, spreadsheetID string, log *zerolog.Logger) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID cannot be empty")
	}
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, log: log}, nil
}

// QuoteTab wraps a tab name in single quotes for A1 notation, doubling any
// embedded quote.
func QuoteTab(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// AppendRows appends all rows in a single batched write below the last row of
// the tab. Rows are never updated or deleted.
func (c *Client) AppendRows(ctx context.Context, tab string, rows [][]interface{}) error {
	vr := &sheetsapi.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, QuoteTab(tab)+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append %d row(s) to %q: %w", len(rows), tab, err)
	}
	c.log.Info().Int("rows", len(rows)).Str("tab", tab).Msg("rows appended to spreadsheet")
	return nil
}

func (c *Client) ReadRange(ctx context.Context, tab, a1 string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, QuoteTab(tab)+"!"+a1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %q: %w", a1, tab, err)
	}
	return resp.Values, nil
}

// EnsureHeader checks the first row of the tab against the declared schema.
// An empty tab gets the header appended; a mismatch is ErrSchemaMismatch.
func (c *Client) EnsureHeader(ctx context.Context, tab string) error {
	rows, err := c.ReadRange(ctx, tab, "A1:"+colLetter(columnCount-1)+"1")
	if err != nil {
		return err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		c.log.Info().Str("tab", tab).Msg("tab is empty, writing header row")
		return c.AppendRows(ctx, tab, [][]interface{}{Header()})
	}
	if !headerMatches(rows[0]) {
		return fmt.Errorf("%w: tab %q", ErrSchemaMismatch, tab)
	}
	return nil
}

func headerMatches(row []interface{}) bool {
	if len(row) != int(columnCount) {
		return false
	}
	for i, cell := range row {
		s, ok := cell.(string)
		if !ok || !strings.EqualFold(strings.TrimSpace(s), headers[i]) {
			return false
		}
	}
	return true
}

// DestinationTab derives the tab name from the event name, falling back to the
// default when the submission carries none.
func DestinationTab(sub *model.Submission, defaultTab string) string {
	name := strings.TrimSpace(sub.EventName)
	if name == "" {
		return defaultTab
	}
	// Sheets forbids these characters in tab names.
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return -1
		}
		return r
	}, name)
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		return defaultTab
	}
	return name
}
