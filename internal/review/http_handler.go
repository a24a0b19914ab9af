package review

import (
	"errors"
	"net/http"
	"strconv"

	"readtrac/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type ReviewReq struct {
	Text     string `json:"text" validate:"required,max=10000"`
	IsPublic bool   `json:"is_public"`
}

// List handles GET /reviews
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		reviews []Review
		err     error
	)
	if r.URL.Query().Get("public") == "true" {
		reviews, err = h.service.ListPublic(r.Context())
	} else {
		reviews, err = h.service.ListAll(r.Context())
	}
	if err != nil {
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, reviews, map[string]any{"total": len(reviews)})
}

// ListForBook handles GET /books/{id}/reviews
func (h *HTTPHandler) ListForBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r)
	if !ok {
		return
	}
	reviews, err := h.service.ListForBook(r.Context(), bookID)
	if err != nil {
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, reviews, map[string]any{"total": len(reviews)})
}

// Create handles POST /books/{id}/reviews
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReviewReq
	if !decode(w, r, &req) {
		return
	}
	rv, err := h.service.Create(r.Context(), bookID, req.Text, req.IsPublic)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, rv)
}

// DeleteForBook handles DELETE /books/{id}/reviews
func (h *HTTPHandler) DeleteForBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r)
	if !ok {
		return
	}
	n, err := h.service.DeleteForBook(r.Context(), bookID)
	if err != nil {
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]int{"deleted": n}, nil)
}

// Get handles GET /reviews/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rv, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, rv, nil)
}

// Update handles PUT /reviews/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReviewReq
	if !decode(w, r, &req) {
		return
	}
	rv, err := h.service.Update(r.Context(), id, req.Text, req.IsPublic)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, rv, nil)
}

// Delete handles DELETE /reviews/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid id", nil)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return false
	}
	if details := httpx.ValidateStruct(dst); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Review not found", nil)
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrEmptyText):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		httpx.InternalError(w, r, err)
	}
}
