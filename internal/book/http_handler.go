package book

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"readtrac/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// BookReq is the writable part of a book.
type BookReq struct {
	Title         string   `json:"title" validate:"required,max=500"`
	Author        string   `json:"author" validate:"required,max=500"`
	Progress      float64  `json:"progress" validate:"gte=0,lte=1"`
	Rating        *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Genre         string   `json:"genre" validate:"max=200"`
	Notes         string   `json:"notes"`
	CoverURL      string   `json:"cover_url" validate:"omitempty,url"`
	Description   string   `json:"description"`
	PageCount     *int     `json:"page_count" validate:"omitempty,gte=0"`
	PublishedDate string   `json:"published_date"`
}

func (req BookReq) toBook() Book {
	return Book{
		Title:         strings.TrimSpace(req.Title),
		Author:        strings.TrimSpace(req.Author),
		Progress:      req.Progress,
		Rating:        req.Rating,
		Genre:         strings.TrimSpace(req.Genre),
		Notes:         req.Notes,
		CoverURL:      req.CoverURL,
		Description:   req.Description,
		PageCount:     req.PageCount,
		PublishedDate: req.PublishedDate,
	}
}

// BookView adds the derived status to the stored book.
type BookView struct {
	Book
	Status string `json:"status"`
}

func view(b Book) BookView {
	return BookView{Book: b, Status: b.Status()}
}

func views(books []Book) []BookView {
	out := make([]BookView, len(books))
	for i, b := range books {
		out[i] = view(b)
	}
	return out
}

// PathID parses the {id} path segment.
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// List handles GET /books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := Query{
		Q:      strings.TrimSpace(query.Get("q")),
		Genre:  query.Get("genre"),
		Status: strings.ToUpper(query.Get("status")),
	}

	books, err := h.service.List(r.Context(), q)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, views(books), map[string]any{"total": len(books)})
}

// Create handles POST /books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BookReq
	if !decode(w, r, &req) {
		return
	}
	b := req.toBook()
	if err := h.service.Create(r.Context(), &b); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, view(b))
}

// Get handles GET /books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, view(b), nil)
}

// Update handles PUT /books/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	var req BookReq
	if !decode(w, r, &req) {
		return
	}
	b := req.toBook()
	b.ID = id
	if err := h.service.Update(r.Context(), &b); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, view(b), nil)
}

// Delete handles DELETE /books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

type ProgressReq struct {
	Progress *float64 `json:"progress" validate:"required"`
}

// UpdateProgress handles PATCH /books/{id}/progress
func (h *HTTPHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	var req ProgressReq
	if !decode(w, r, &req) {
		return
	}
	b, err := h.service.UpdateProgress(r.Context(), id, *req.Progress)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, view(b), nil)
}

// RatingReq sets a rating; a null rating clears it.
type RatingReq struct {
	Rating *float64 `json:"rating"`
}

// UpdateRating handles PATCH /books/{id}/rating
func (h *HTTPHandler) UpdateRating(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	var req RatingReq
	if !decode(w, r, &req) {
		return
	}
	b, err := h.service.UpdateRating(r.Context(), id, req.Rating)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, view(b), nil)
}

type NotesReq struct {
	Notes string `json:"notes"`
}

// UpdateNotes handles PATCH /books/{id}/notes
func (h *HTTPHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	var req NotesReq
	if !decode(w, r, &req) {
		return
	}
	b, err := h.service.UpdateNotes(r.Context(), id, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, view(b), nil)
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

func badID(w http.ResponseWriter, r *http.Request) {
	httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid book id", nil)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrInvalidRating):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrInvalidBook):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		httpx.InternalError(w, r, err)
	}
}
