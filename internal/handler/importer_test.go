package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/service"
)

type mockImporter struct {
	importFunc func(ctx context.Context, actorID string, opts service.ImportOptions, body io.Reader) (*model.ImportReport, error)
}

func (m *mockImporter) Import(ctx context.Context, actorID string, opts service.ImportOptions, body io.Reader) (*model.ImportReport, error) {
	return m.importFunc(ctx, actorID, opts, body)
}

func newImportRequest(entity, contentType, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/imports/"+entity, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("entity", entity)
	return withUserContext(req, "user:admin")
}

func TestImport_ForwardsOptions(t *testing.T) {
	t.Parallel()

	var gotOpts service.ImportOptions
	var gotBody string
	h := NewImportHandler(ImportHandlerConfig{Importer: &mockImporter{
		importFunc: func(ctx context.Context, actorID string, opts service.ImportOptions, body io.Reader) (*model.ImportReport, error) {
			gotOpts = opts
			b, _ := io.ReadAll(body)
			gotBody = string(b)
			return &model.ImportReport{Entity: opts.Entity, Policy: model.PolicyFlag, DryRun: true, Total: 1}, nil
		},
	}})

	req := newImportRequest("candidates", "text/csv; charset=utf-8", "email\nada@example.com\n")
	req.URL.RawQuery = "policy=flag&dry_run=true"
	rr := httptest.NewRecorder()
	h.Import(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotOpts.Entity != model.ImportCandidates || gotOpts.Format != service.FormatCSV {
		t.Errorf("unexpected options %+v", gotOpts)
	}
	if gotOpts.Policy != model.PolicyFlag || !gotOpts.DryRun {
		t.Errorf("policy/dry run not forwarded: %+v", gotOpts)
	}
	if !strings.HasPrefix(gotBody, "email") {
		t.Errorf("body not forwarded: %q", gotBody)
	}

	var report model.ImportReport
	parseData(t, rr.Body.Bytes(), &report)
	if report.Total != 1 || !report.DryRun {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestImport_JSONContentType(t *testing.T) {
	t.Parallel()

	var format string
	h := NewImportHandler(ImportHandlerConfig{Importer: &mockImporter{
		importFunc: func(ctx context.Context, actorID string, opts service.ImportOptions, body io.Reader) (*model.ImportReport, error) {
			format = opts.Format
			return &model.ImportReport{}, nil
		},
	}})

	rr := httptest.NewRecorder()
	h.Import(rr, newImportRequest("jobs", "application/json", `[{"title":"SRE"}]`))

	if format != service.FormatJSON {
		t.Errorf("expected json format, got %q", format)
	}
}

func TestImport_RejectedBeforeReadingBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		entity      string
		contentType string
		query       string
		status      int
	}{
		{"unknown entity", "invoices", "text/csv", "", http.StatusNotFound},
		{"plain text", "candidates", "text/plain", "", http.StatusUnsupportedMediaType},
		{"missing content type", "candidates", "", "", http.StatusUnsupportedMediaType},
		{"bad dry run", "accounts", "text/csv", "dry_run=perhaps", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			called := false
			h := NewImportHandler(ImportHandlerConfig{Importer: &mockImporter{
				importFunc: func(ctx context.Context, actorID string, opts service.ImportOptions, body io.Reader) (*model.ImportReport, error) {
					called = true
					return &model.ImportReport{}, nil
				},
			}})

			req := newImportRequest(tt.entity, tt.contentType, "name\nAcme\n")
			req.URL.RawQuery = tt.query
			rr := httptest.NewRecorder()
			h.Import(rr, req)

			if rr.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rr.Code)
			}
			if called {
				t.Error("importer should not run")
			}
		})
	}
}

func TestImport_OversizedBody(t *testing.T) {
	t.Parallel()

	h := NewImportHandler(ImportHandlerConfig{
		MaxBodyBytes: 16,
		Importer: &mockImporter{
			importFunc: func(ctx context.Context, actorID string, opts service.ImportOptions, body io.Reader) (*model.ImportReport, error) {
				if _, err := io.ReadAll(body); err != nil {
					return nil, errors.Join(service.ErrMalformedInput, err)
				}
				return &model.ImportReport{}, nil
			},
		},
	})

	rr := httptest.NewRecorder()
	h.Import(rr, newImportRequest("candidates", "text/csv", "email\n"+strings.Repeat("someone@example.com\n", 10)))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	if p := parseErrorResponse(t, rr.Body.Bytes()); p.Code != model.ErrCodeTooLarge {
		t.Errorf("expected too-large code, got %d", p.Code)
	}
}

func TestImport_PartialFailureIncludesReport(t *testing.T) {
	t.Parallel()

	h := NewImportHandler(ImportHandlerConfig{Importer: &mockImporter{
		importFunc: func(ctx context.Context, actorID string, opts service.ImportOptions, body io.Reader) (*model.ImportReport, error) {
			return &model.ImportReport{Total: 3, Imported: 2}, database.ErrConnection
		},
	}})

	rr := httptest.NewRecorder()
	h.Import(rr, newImportRequest("candidates", "text/csv", "email\na@x.io\n"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var body struct {
		Detail string             `json:"detail"`
		Report model.ImportReport `json:"report"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Report.Imported != 2 {
		t.Errorf("expected partial report, got %+v", body.Report)
	}
	if !strings.HasPrefix(body.Detail, "import:") {
		t.Errorf("unexpected detail %q", body.Detail)
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"text/csv":                        service.FormatCSV,
		"application/csv":                 service.FormatCSV,
		"application/json; charset=utf-8": service.FormatJSON,
		"application/xml":                 "",
		"not a media type;;":              "",
	}
	for ct, want := range tests {
		got, ok := formatFor(ct)
		if got != want || ok != (want != "") {
			t.Errorf("formatFor(%q) = %q, %v", ct, got, ok)
		}
	}
}
