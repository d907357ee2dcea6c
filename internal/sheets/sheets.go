// Package sheets appends mirrored ledger rows to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"duitbot/internal/core"
	"duitbot/internal/dates"
)

// RowAppender is the port the mirror worker writes through.
type RowAppender interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New creates a Sheets client from service account credentials. Either a
// credentials file path or inline JSON must be provided; the file takes
// precedence when both are set.
func New(ctx context.Context, spreadsheetID, sheetName, credentialsFile, credentialsJSON string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	var creds []byte
	switch {
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		creds = b
	case credentialsJSON != "":
		creds = []byte(credentialsJSON)
	default:
		return nil, errors.New("missing Google credentials (set GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendTransaction appends one ledger row: local date, type, amount,
// category, account, description. Returns the updated range as the row
// reference.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	amount, _ := tx.Amount.Float64()
	vr := &gsheet.ValueRange{Values: [][]any{{
		dates.FormatLocalDate(tx.OccurredAt),
		string(tx.Type),
		amount,
		tx.Category,
		tx.Account,
		tx.Description,
	}}}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}
