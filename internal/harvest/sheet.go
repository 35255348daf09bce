package harvest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/resilience"
)

const defaultSheetsBaseURL = "https://docs.google.com/spreadsheets/d"

// SheetClient downloads Google Sheets tabs through the public gviz CSV
// export. The sheet must be shared for link viewing.
type SheetClient struct {
	http    *http.Client
	baseURL string
	retry   resilience.RetryConfig
}

// SheetOption customizes a SheetClient.
type SheetOption func(*SheetClient)

// WithSheetsBaseURL overrides the export host, for tests.
func WithSheetsBaseURL(u string) SheetOption {
	return func(c *SheetClient) { c.baseURL = u }
}

// WithRetry overrides the download retry policy.
func WithRetry(cfg resilience.RetryConfig) SheetOption {
	return func(c *SheetClient) { c.retry = cfg }
}

// NewSheetClient returns a client with a 30s request timeout and the default
// retry policy.
func NewSheetClient(opts ...SheetOption) *SheetClient {
	c := &SheetClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultSheetsBaseURL,
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("google_sheets", "export_csv")
	}
	return c
}

// ExportURL returns the gviz CSV export URL for one tab.
func (c *SheetClient) ExportURL(sheetID, sheetName string) string {
	return fmt.Sprintf("%s/%s/gviz/tq?tqx=out:csv&sheet=%s", c.baseURL, url.PathEscape(sheetID), url.QueryEscape(sheetName))
}

// Column downloads one tab and returns its first column.
func (c *SheetClient) Column(ctx context.Context, sheetID, sheetName string) ([]string, error) {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.download(ctx, c.ExportURL(sheetID, sheetName))
	})
	if err != nil {
		return nil, eris.Wrapf(err, "harvest: download sheet %q", sheetName)
	}
	return ReadCSV(bytes.NewReader(body))
}

func (c *SheetClient) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "harvest: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "harvest: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("harvest: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "harvest: read body"), 0)
	}
	return data, nil
}
