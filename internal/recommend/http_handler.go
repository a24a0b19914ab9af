package recommend

import (
	"net/http"
	"strconv"

	"readtrac/internal/httpx"
)

const maxLimit = 50

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Recommend handles GET /recommendations
func (h *HTTPHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := DefaultLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 50", nil)
			return
		}
		limit = n
	}

	res, err := h.service.Recommend(r.Context(), limit, query.Get("category"))
	if err != nil {
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res.Books, map[string]any{
		"source": res.Source,
		"limit":  limit,
	})
}
