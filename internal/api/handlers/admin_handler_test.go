package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImporter struct {
	imported int
	err      error

	gotURL      string
	gotCategory string
}

func (f *fakeImporter) ImportHTML(_ context.Context, pageURL, category string) (int, error) {
	f.gotURL = pageURL
	f.gotCategory = category
	return f.imported, f.err
}

func newAdminApp(importer *fakeImporter) *fiber.App {
	app := fiber.New()
	app.Post("/api/v1/admin/import/html", NewAdminHandler(importer).ImportHTML)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestImportHTMLEndpoint(t *testing.T) {
	importer := &fakeImporter{imported: 4}
	app := newAdminApp(importer)

	resp := postJSON(t, app, "/api/v1/admin/import/html",
		`{"url": "https://help.fleetassist.io/faq", "category": "vehicle"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://help.fleetassist.io/faq", importer.gotURL)
	assert.Equal(t, "vehicle", importer.gotCategory)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"imported": 4}`, string(body))
}

func TestImportHTMLEndpointRejectsBadURL(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty url", `{"url": "", "category": "vehicle"}`},
		{"relative url", `{"url": "/faq", "category": "vehicle"}`},
		{"wrong scheme", `{"url": "ftp://help.fleetassist.io/faq"}`},
		{"not json", `url=help`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			importer := &fakeImporter{}
			app := newAdminApp(importer)

			resp := postJSON(t, app, "/api/v1/admin/import/html", tt.body)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Empty(t, importer.gotURL)
		})
	}
}

func TestImportHTMLEndpointReportsImportFailure(t *testing.T) {
	importer := &fakeImporter{err: errors.New("fetch failed")}
	app := newAdminApp(importer)

	resp := postJSON(t, app, "/api/v1/admin/import/html",
		`{"url": "https://help.fleetassist.io/faq"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
