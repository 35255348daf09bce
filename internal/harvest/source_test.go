package harvest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/freakspace/leadtool/internal/resilience"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "links.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Roofers": {
			{"Website", "Notes"},
			{"acme.dk", "call back"},
			{"www.roof.dk"},
		},
	})

	values, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Website", "acme.dk", "www.roof.dk"}, values)

	values, err = ReadXLSX(path, "Roofers")
	require.NoError(t, err)
	assert.Len(t, values, 3)
}

func TestReadXLSX_Errors(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a.dk"}}})

	_, err := ReadXLSX(path, "Missing")
	assert.Error(t, err)

	_, err = ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	values, err := ReadCSV(strings.NewReader("\"Website\",\"City\"\n\"acme.dk\",\"Aarhus\"\nroof.dk\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Website", "acme.dk", "roof.dk"}, values)
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestSheetClient_Column(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sheet-123/gviz/tq", r.URL.Path)
		assert.Equal(t, "out:csv", r.URL.Query().Get("tqx"))
		assert.Equal(t, "Tømrere 2", r.URL.Query().Get("sheet"))
		_, _ = w.Write([]byte("\"https://acme.dk\"\n\"roof.dk\"\n"))
	}))
	defer ts.Close()

	c := NewSheetClient(WithSheetsBaseURL(ts.URL), WithRetry(fastRetry()))
	values, err := c.Column(context.Background(), "sheet-123", "Tømrere 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.dk", "roof.dk"}, values)
}

func TestSheetClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("acme.dk\n"))
	}))
	defer ts.Close()

	c := NewSheetClient(WithSheetsBaseURL(ts.URL), WithRetry(fastRetry()))
	values, err := c.Column(context.Background(), "id", "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, []string{"acme.dk"}, values)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSheetClient_PermanentStatus(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewSheetClient(WithSheetsBaseURL(ts.URL), WithRetry(fastRetry()))
	_, err := c.Column(context.Background(), "id", "Sheet1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSheetClient_ExportURL(t *testing.T) {
	c := NewSheetClient()
	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc/gviz/tq?tqx=out:csv&sheet=Leads+DK",
		c.ExportURL("abc", "Leads DK"))
}
