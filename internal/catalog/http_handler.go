package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"readtrac/internal/book"
	"readtrac/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type ImportReq struct {
	ExternalID string `json:"external_id" validate:"required,max=128"`
}

// Search handles GET /catalog/search
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := DefaultLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 40", nil)
			return
		}
		limit = n
	}

	books, err := h.service.Search(r.Context(), query.Get("q"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, books, map[string]any{"total": len(books)})
}

// Import handles POST /catalog/import
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b, err := h.service.Import(r.Context(), req.ExternalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, b)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrDisabled):
		httpx.JSONError(w, r, http.StatusNotFound, "CATALOG_DISABLED", "Catalog is not configured", nil)
	case errors.Is(err, ErrEmptyQuery):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "q is required", nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Volume not found in catalog", nil)
	case errors.Is(err, ErrUnavailable):
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "Catalog is temporarily unavailable", nil)
	case errors.Is(err, book.ErrInvalidBook):
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "INVALID_VOLUME", "Volume cannot be stored", nil)
	default:
		httpx.InternalError(w, r, err)
	}
}
