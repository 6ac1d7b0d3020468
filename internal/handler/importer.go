package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/service"
)

// DefaultImportBodyBytes caps an import upload when no limit is configured
const DefaultImportBodyBytes = 10 << 20

// Importer is the subset of the import service used by ImportHandler
type Importer interface {
	Import(ctx context.Context, actorID string, opts service.ImportOptions, body io.Reader) (*model.ImportReport, error)
}

// ImportHandler handles bulk CSV/JSON uploads
type ImportHandler struct {
	importer     Importer
	maxBodyBytes int64
}

// ImportHandlerConfig holds configuration for the import handler
type ImportHandlerConfig struct {
	Importer     Importer
	MaxBodyBytes int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(cfg ImportHandlerConfig) *ImportHandler {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultImportBodyBytes
	}
	return &ImportHandler{importer: cfg.Importer, maxBodyBytes: maxBytes}
}

// formatFor maps a request content type onto an import format
func formatFor(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch mediaType {
	case "text/csv", "application/csv":
		return service.FormatCSV, true
	case "application/json":
		return service.FormatJSON, true
	}
	return "", false
}

// limitedBody remembers whether the upload hit the byte cap
type limitedBody struct {
	io.Reader
	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.Reader.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}
	return n, err
}

// Import handles POST /v1/imports/{entity}?policy=skip|stop|flag&dry_run=true.
// The body is CSV or a JSON array depending on Content-Type.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	entity := model.ImportEntity(r.PathValue("entity"))
	if !entity.IsValid() {
		WriteError(w, model.NewNotFoundError("import entity"))
		return
	}

	contentType := r.Header.Get("Content-Type")
	format, ok := formatFor(contentType)
	if !ok {
		WriteError(w, model.NewUnsupportedMediaTypeError(contentType))
		return
	}

	q := r.URL.Query()
	dryRun := false
	if v := q.Get("dry_run"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			WriteError(w, model.NewBadRequestError("dry_run must be true or false"))
			return
		}
		dryRun = parsed
	}

	body := &limitedBody{Reader: http.MaxBytesReader(w, r.Body, h.maxBodyBytes)}
	report, err := h.importer.Import(r.Context(), actorID, service.ImportOptions{
		Entity: entity,
		Format: format,
		Policy: model.ImportPolicy(q.Get("policy")),
		DryRun: dryRun,
	}, body)
	if body.exceeded {
		WriteError(w, &model.ProblemDetails{
			Type:   "https://api.staffhub.dev/errors/too-large",
			Title:  "Payload Too Large",
			Status: http.StatusRequestEntityTooLarge,
			Detail: "upload exceeds " + strconv.FormatInt(h.maxBodyBytes, 10) + " bytes",
			Code:   model.ErrCodeTooLarge,
		})
		return
	}
	if err != nil {
		// A storage failure part way still returns what was written
		if report != nil {
			pd := MapServiceErrorWithContext(err, "import")
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(pd.Status)
			_ = json.NewEncoder(w).Encode(struct {
				*model.ProblemDetails
				Report *model.ImportReport `json:"report"`
			}{pd, report})
			return
		}
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, report, nil)
}
