// Package sheetapi is the HTTP client for the remote record store: a Google
// Apps Script web app fronting the spreadsheet that owns all persistent
// state. The protocol is the script's: one bulk read action and one POST
// action per save/delete, with loosely typed rows.
package sheetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"katara/pkg/reconcile"
)

// Sheet names on the remote store, one per entity kind.
const (
	SheetUsers       = "Users"
	SheetDepartments = "Departments"
	SheetBusinesses  = "Bisnis"
	SheetLimits      = "Limits"
	SheetSubmissions = "Submissions"
	SheetSettings    = "Settings"
)

// SyncError wraps a failed remote operation. Fetch failures are recoverable:
// the caller keeps its cache. Write failures are logged and accepted.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string { return fmt.Sprintf("remote sync %s: %v", e.Op, e.Err) }
func (e *SyncError) Unwrap() error { return e.Err }

// Payload is the bulk read result: raw rows per kind, shapes unspecified
// beyond "mapping with arbitrary keys".
type Payload struct {
	Users       []reconcile.Row `json:"users"`
	Departments []reconcile.Row `json:"departments"`
	Businesses  []reconcile.Row `json:"bisnis"`
	Limits      []reconcile.Row `json:"limits"`
	Submissions []reconcile.Row `json:"submissions"`
	Settings    reconcile.Row   `json:"settings"`
}

// Client talks to one Apps Script deployment.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for the given script URL. Calls are bounded so an
// unresponsive script surfaces as a sync failure instead of a hang.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// FetchAll performs the bulk read of every sheet.
func (c *Client) FetchAll(ctx context.Context) (Payload, error) {
	var payload Payload
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?action=getAll", http.NoBody)
	if err != nil {
		return payload, &SyncError{Op: "fetch", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return payload, &SyncError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return payload, &SyncError{Op: "fetch", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return payload, &SyncError{Op: "fetch", Err: err}
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, &SyncError{Op: "fetch", Err: fmt.Errorf("malformed response: %w", err)}
	}
	return payload, nil
}

// Save upserts a record or a whole collection into the named sheet. The
// store acknowledges with success/failure only; response content is ignored.
func (c *Client) Save(ctx context.Context, sheet string, data any) error {
	return c.post(ctx, "save", map[string]any{
		"action": "save",
		"sheet":  sheet,
		"data":   data,
	})
}

// Delete removes one record by id from the named sheet.
func (c *Client) Delete(ctx context.Context, sheet, id string) error {
	return c.post(ctx, "delete", map[string]any{
		"action": "delete",
		"sheet":  sheet,
		"id":     id,
	})
}

func (c *Client) post(ctx context.Context, op string, body map[string]any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return &SyncError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(raw))
	if err != nil {
		return &SyncError{Op: op, Err: err}
	}
	// Apps Script web apps reject preflighted content types; the script
	// parses the JSON out of a text/plain body.
	req.Header.Set("Content-Type", "text/plain")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SyncError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		return &SyncError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}
