package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/core"
	ports "expensetracker/internal/sheets"
)

// Config selects the spreadsheet and the credentials used to reach it.
// Service account credentials win over an OAuth client when both are set.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.Mirror = (*Client)(nil)

// New creates a Sheets client for cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Expenses"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: sheet}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	if creds, err := readSecret(cfg.ServiceAccountJSON, cfg.ServiceAccountFile); err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	} else if creds != nil {
		slog.InfoContext(ctx, "Using service account credentials", "component", "sheets")
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}

	ts, err := oauthTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Using OAuth user credentials", "component", "sheets")

	// The pooled client carries the transport; oauth2 adds the token on top.
	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return gsheet.NewService(ctx, goption.WithHTTPClient(oauth2.NewClient(base, ts)))
}

func oauthTokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	clientJSON, err := readSecret(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if clientJSON == nil {
		return nil, errors.New("missing credentials: set a service account or an OAuth client")
	}
	oc, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := readSecret(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if tokenJSON == nil {
		return nil, errors.New("missing OAuth token: run oauth-init first")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return oc.TokenSource(ctx, &tok), nil
}

// readSecret returns inline when set, else the contents of file, else nil.
func readSecret(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if f := strings.TrimSpace(file); f != "" {
		return os.ReadFile(f)
	}
	return nil, nil
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// Upsert writes e to the row holding id, appending a new row when there is
// none. The header row is created on first write.
func (c *Client) Upsert(ctx context.Context, id string, e core.Expense) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{rowValues(id, e)}}
	if row := findRowByID(ids, id); row > 0 {
		rng := rowRange(c.sheetName, row)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("update %s: %w", rng, err)
		}
		return rng, nil
	}

	if !hasHeader(ids) {
		vr.Values = append([][]any{header}, vr.Values...)
	}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, tableRange(c.sheetName), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	ref := tableRange(c.sheetName)
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// Remove clears the row holding id.
func (c *Client) Remove(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRowByID(ids, id)
	if row == 0 {
		slog.DebugContext(ctx, "Expense not present in sheet", "component", "sheets", "expense_id", id)
		return nil
	}
	rng := rowRange(c.sheetName, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := columnRange(c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
