package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/httpx"
)

type HTTPHandler struct {
	svc *Service
	log *zap.Logger
}

func NewHTTPHandler(svc *Service, log *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, log: log}
}

// ListBooks handles GET /v1/books
// @Summary List books
// @Description Search, sort and paginate the catalog
// @Tags books
// @Produce json
// @Param s query string false "Search term"
// @Param sort_by query string false "Sort column" default(title)
// @Param sort_order query string false "asc or desc" default(asc)
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /v1/books [get]
func (h *HTTPHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("per_page"))

	result, err := h.svc.ListBooks(r.Context(), Query{
		Search:    query.Get("s"),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, result.Items, map[string]interface{}{
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total":       result.Total,
		"total_pages": result.TotalPages(),
	})
}

// GetBook handles GET /v1/books/{id}
// @Summary Get book
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/books/{id} [get]
func (h *HTTPHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	book, err := h.svc.GetBook(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, book, nil)
}

// AddBook handles POST /v1/books
// @Summary Add book
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body BookInput true "Book"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /v1/books [post]
func (h *HTTPHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if !httpx.DecodeAndValidate(w, r, &in) {
		return
	}
	book, err := h.svc.AddBook(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, book)
}

// EditBook handles PUT /v1/books/{id}
// @Summary Edit book
// @Description Replace every editable field; the change list is logged
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Book ID"
// @Param request body BookInput true "Book"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /v1/books/{id} [put]
func (h *HTTPHandler) EditBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in BookInput
	if !httpx.DecodeAndValidate(w, r, &in) {
		return
	}
	book, err := h.svc.EditBook(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, book, nil)
}

type RefreshReq struct {
	ISBN string `json:"isbn" validate:"required"`
}

// RefreshBook handles POST /v1/books/{id}/refresh
// @Summary Merge provider metadata into a book
// @Description Returns the merged book for review; nothing is saved
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Book ID"
// @Param request body RefreshReq true "ISBN to look up"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/books/{id}/refresh [post]
func (h *HTTPHandler) RefreshBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RefreshReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	book, err := h.svc.RefreshFromISBN(r.Context(), id, req.ISBN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, book, nil)
}

// DeleteBook handles DELETE /v1/books/{id}
// @Summary Delete book
// @Tags books
// @Security Bearer
// @Param id path int true "Book ID"
// @Success 204 "No Content"
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/books/{id} [delete]
func (h *HTTPHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteBook(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// Lookup handles GET /v1/lookup/{isbn}
// @Summary Look up ISBN metadata
// @Tags books
// @Produce json
// @Param isbn path string true "ISBN-10 or ISBN-13"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/lookup/{isbn} [get]
func (h *HTTPHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Lookup(r.Context(), r.PathValue("isbn"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, rec, nil)
}

// ListLogs handles GET /v1/logs
// @Summary Transaction log
// @Tags logs
// @Produce json
// @Param limit query int false "Maximum entries, newest first"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/logs [get]
func (h *HTTPHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.ListLogs(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, entries, map[string]interface{}{"count": len(entries)})
}

// RestoreBook handles POST /v1/logs/{id}/restore
// @Summary Restore a deleted book
// @Tags logs
// @Produce json
// @Security Bearer
// @Param id path int true "DELETE log entry ID"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 422 {object} httpx.ErrorResponse
// @Router /v1/logs/{id}/restore [post]
func (h *HTTPHandler) RestoreBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	book, err := h.svc.RestoreBook(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, book)
}

// ListLocations handles GET /v1/locations
// @Summary List locations
// @Tags locations
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/locations [get]
func (h *HTTPHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.svc.ListLocations(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, locs, nil)
}

// GetLocation handles GET /v1/locations/{id}
func (h *HTTPHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	loc, err := h.svc.GetLocation(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, loc, nil)
}

// CreateLocation handles POST /v1/locations
// @Summary Create location
// @Tags locations
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body LocationInput true "Location"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /v1/locations [post]
func (h *HTTPHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var in LocationInput
	if !httpx.DecodeAndValidate(w, r, &in) {
		return
	}
	loc, err := h.svc.CreateLocation(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, loc)
}

// UpdateLocation handles PUT /v1/locations/{id}
func (h *HTTPHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in LocationInput
	if !httpx.DecodeAndValidate(w, r, &in) {
		return
	}
	loc, err := h.svc.UpdateLocation(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, loc, nil)
}

// DeleteLocation handles DELETE /v1/locations/{id}
func (h *HTTPHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteLocation(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 0)
	if err != nil || id == 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid id", nil)
		return 0, false
	}
	return uint(id), true
}

// writeError maps service errors to status codes and error codes.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var dup *DuplicateISBNError
	switch {
	case errors.As(err, &dup):
		httpx.JSONErrorWithMeta(w, r, http.StatusConflict, "DUPLICATE_ISBN", dup.Error(),
			map[string]interface{}{"existing_id": dup.ExistingID})
	case errors.Is(err, ErrInvalidISBN):
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_ISBN", "Invalid ISBN", nil)
	case errors.Is(err, ErrMetadataNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "METADATA_NOT_FOUND",
			"No book data found for this ISBN. Please enter details manually.", nil)
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrLocationNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Location not found", nil)
	case errors.Is(err, ErrNotRestorable):
		httpx.JSONError(w, r, http.StatusBadRequest, "NOT_RESTORABLE", "Only DELETE log entries can be restored", nil)
	case errors.Is(err, ErrSnapshotDecode):
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "SNAPSHOT_DECODE_ERROR", "Stored book data could not be decoded", nil)
	case errors.Is(err, ErrDuplicateLocationLabel):
		httpx.JSONError(w, r, http.StatusConflict, "DUPLICATE_LABEL", "Location label already exists", nil)
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidLocation), errors.Is(err, ErrInvalidQuery):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		h.log.Error("Catalog request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", httpx.RequestIDFrom(r)),
			zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
