// Package sheets provides a Google Sheets persistence backend: the mention
// log lives on one worksheet (column A holds the IDs), the watermark in a
// single cell on a state worksheet.
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

// Config identifies the spreadsheet and its worksheets.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	// MentionsSheet is the worksheet holding mention rows; row 1 is a header.
	MentionsSheet string
	// StateSheet is the worksheet whose A2 cell holds the watermark.
	StateSheet string
}

// Store implements monitor.MentionStore and monitor.WatermarkStore over the
// Sheets API. Rows are append-only in the persisted shape
// (id, fetched_at, published_at, source, title, url).
type Store struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	mentionsSheet string
	stateSheet    string
}

// New builds a Store with a service-account credential.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("storage.sheets.spreadsheet_id is required")
	}
	if cfg.CredentialsJSON == "" {
		return nil, fmt.Errorf("storage.sheets.credentials_json is required")
	}
	if cfg.MentionsSheet == "" {
		cfg.MentionsSheet = "mentions"
	}
	if cfg.StateSheet == "" {
		cfg.StateSheet = "state"
	}
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		mentionsSheet: cfg.MentionsSheet,
		stateSheet:    cfg.StateSheet,
	}, nil
}

// LoadSeenIDs reads the ID column and keeps the most recent cap entries.
// Rows are appended chronologically, so the tail of the column is the most
// recently fetched slice of history.
func (s *Store) LoadSeenIDs(ctx context.Context, cap int) (map[string]struct{}, error) {
	readRange := fmt.Sprintf("%s!A2:A", s.mentionsSheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read id column: %w", err)
	}

	rows := resp.Values
	if len(rows) > cap {
		rows = rows[len(rows)-cap:]
	}
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if id, ok := row[0].(string); ok && id != "" {
			seen[id] = struct{}{}
		}
	}
	return seen, nil
}

// AppendMentions appends one row per mention. The Sheets append call has no
// conflict handling; dedup correctness rests on the seen-ID set, matching
// the append-only contract.
func (s *Store) AppendMentions(ctx context.Context, mentions []monitor.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	values := make([][]any, 0, len(mentions))
	for _, m := range mentions {
		values = append(values, []any{
			m.ID,
			m.FetchedAt.UTC().Format(time.RFC3339),
			m.PublishedAt.UTC().Format(time.RFC3339),
			m.Source,
			m.Title,
			m.URL,
		})
	}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, fmt.Sprintf("%s!A1", s.mentionsSheet), &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append mention rows: %w", err)
	}
	return nil
}

// LoadWatermark reads the watermark cell; an empty cell means absent.
func (s *Store) LoadWatermark(ctx context.Context) (time.Time, bool, error) {
	cell := fmt.Sprintf("%s!A2", s.stateSheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, cell).Context(ctx).Do()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read watermark cell: %w", err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return time.Time{}, false, nil
	}
	raw, ok := resp.Values[0][0].(string)
	if !ok || raw == "" {
		return time.Time{}, false, nil
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse watermark %q: %w", raw, err)
	}
	return since.UTC(), true, nil
}

// StoreWatermark overwrites the watermark cell.
func (s *Store) StoreWatermark(ctx context.Context, since time.Time) error {
	cell := fmt.Sprintf("%s!A2", s.stateSheet)
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, cell, &sheetsapi.ValueRange{
			Values: [][]any{{since.UTC().Format(time.RFC3339)}},
		}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write watermark cell: %w", err)
	}
	return nil
}
