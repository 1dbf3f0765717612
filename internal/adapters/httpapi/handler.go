package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/schema"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
	"github.com/atvirokodosprendimai/editorjs/internal/core/usecase"
)

const (
	timeFormat      = "2006-01-02T15:04:05.999999999Z07:00"
	maxJSONBodySize = 1 << 20
)

type Handler struct {
	templates *usecase.TemplateService
	validator *usecase.BlockValidator
	renderer  *usecase.BlockRenderer
	auth      *usecase.AuthService
	log       *slog.Logger
	query     *schema.Decoder
}

func NewHandler(
	templates *usecase.TemplateService,
	validator *usecase.BlockValidator,
	renderer *usecase.BlockRenderer,
	auth *usecase.AuthService,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	query := schema.NewDecoder()
	query.IgnoreUnknownKeys(true)
	query.ZeroEmpty(true)

	return &Handler{
		templates: templates,
		validator: validator,
		renderer:  renderer,
		auth:      auth,
		log:       log,
		query:     query,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.healthz)
	r.Get("/openapi.json", h.openapi)

	r.Get("/v1/templates", h.listTemplates)
	r.Get("/v1/templates/{name}", h.getTemplate)
	r.Post("/v1/templates/{name}/validate", h.validateBlock)
	r.Post("/v1/templates/{name}/render", h.renderBlock)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAPIKey)
		pr.Put("/v1/templates/{name}", h.upsertTemplate)
		pr.Delete("/v1/templates/{name}", h.deleteTemplate)
	})

	return r
}

type templateResponse struct {
	Name        string                   `json:"name"`
	Type        string                   `json:"type,omitempty"`
	PrintFormat string                   `json:"print_format"`
	Fields      []domain.FieldDescriptor `json:"fields"`
	Revision    string                   `json:"revision"`
	CreatedAt   string                   `json:"created_at"`
	UpdatedAt   string                   `json:"updated_at"`
}

type blockRequest struct {
	Data json.RawMessage `json:"data"`
}

func (h *Handler) upsertTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	tmpl, err := usecase.DecodeDefinition(raw)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	if tmpl.Name != "" && tmpl.Name != name {
		writeError(w, http.StatusBadRequest, "name in body does not match path")
		return
	}
	tmpl.Name = name

	saved, err := h.templates.Upsert(r.Context(), tmpl)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	h.log.Info("template saved", "name", saved.Name, "revision", saved.Revision, "fields", len(saved.Fields))
	w.Header().Set("ETag", etag(saved.Revision))
	writeJSON(w, http.StatusOK, toTemplateResponse(saved))
}

func (h *Handler) getTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	tmpl, err := h.templates.Get(r.Context(), name)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	tag := etag(tmpl.Revision)
	w.Header().Set("ETag", tag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}

func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	deleted, err := h.templates.Delete(r.Context(), name)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	if deleted {
		h.log.Info("template deleted", "name", name)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	var filter domain.TemplateFilter
	if err := h.query.Decode(&filter, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	items, err := h.templates.List(r.Context(), filter)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	result := make([]templateResponse, 0, len(items))
	for _, tmpl := range items {
		result = append(result, toTemplateResponse(tmpl))
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": result})
}

// validateBlock accepts data either as an object or as a JSON-encoded
// string, the two shapes editors submit.
func (h *Handler) validateBlock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	req, ok := decodeBlockRequest(w, r)
	if !ok {
		return
	}

	if err := h.validator.Validate(r.Context(), name, string(req.Data)); err != nil {
		h.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handler) renderBlock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	req, ok := decodeBlockRequest(w, r)
	if !ok {
		return
	}
	if err := domain.ValidateName(name); err != nil {
		h.handleDomainError(w, err)
		return
	}

	data, err := usecase.DecodeBlockData(string(req.Data))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	out, err := h.renderer.RenderNamed(r.Context(), name, data)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"output": out})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) openapi(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, openapiSpec())
}

func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if token == "" {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				token = strings.TrimSpace(auth[7:])
			}
		}

		key, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, usecase.ErrUnauthorized) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			h.log.Error("authenticate api key", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		h.log.Debug("api key accepted", "key", key.Name, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	var violation *domain.ErrDefinitionViolation
	switch {
	case errors.As(err, &violation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "invalid template definition",
			"violations": violation.Errors,
		})
	case errors.Is(err, domain.ErrInvalidBlock):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidName), errors.Is(err, domain.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRenderDepthExceeded):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, usecase.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		h.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBlockRequest(w http.ResponseWriter, r *http.Request) (blockRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	var req blockRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return blockRequest{}, false
	}
	if err := ensureEOF(decoder); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return blockRequest{}, false
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "data is required")
		return blockRequest{}, false
	}
	return req, true
}

func toTemplateResponse(tmpl domain.Template) templateResponse {
	fields := tmpl.Fields
	if fields == nil {
		fields = []domain.FieldDescriptor{}
	}
	return templateResponse{
		Name:        tmpl.Name,
		Type:        tmpl.Type,
		PrintFormat: tmpl.PrintFormat,
		Fields:      fields,
		Revision:    tmpl.Revision,
		CreatedAt:   tmpl.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:   tmpl.UpdatedAt.UTC().Format(timeFormat),
	}
}

func etag(revision string) string {
	return `"` + revision + `"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		slog.Error("encode json response", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		slog.Error("write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}
