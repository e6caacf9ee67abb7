// AngelaMos | 2026
// handler.go

package book

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
	"github.com/carterperez-dev/templates/bookshelf/internal/middleware"
)

const (
	imageFormField = "files"
	// multipartOverhead covers part headers and boundaries around the files.
	multipartOverhead = 64 << 10
	maxUploadBytes    = MaxImagesPerUpload*MaxImageBytes + multipartOverhead
)

// RouteGuards holds one guard chain per access level of the book routes.
// Create also guards image uploads.
type RouteGuards struct {
	Read   func(http.Handler) http.Handler
	Create func(http.Handler) http.Handler
	Update func(http.Handler) http.Handler
	Delete func(http.Handler) http.Handler
}

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, guards RouteGuards) {
	r.Route("/books", func(r chi.Router) {
		r.With(guards.Read).Get("/", h.List)
		r.With(guards.Read).Get("/{bookID}", h.Get)
		r.With(guards.Create).Post("/", h.Create)
		r.With(guards.Update).Put("/{bookID}", h.Update)
		r.With(guards.Delete).Delete("/{bookID}", h.Delete)

		r.With(guards.Read).Get("/{bookID}/images", h.ListImages)
		r.With(guards.Read).Get("/{bookID}/images/{imageID}", h.GetImage)
		r.With(guards.Create).Put("/{bookID}/images", h.UploadImages)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListBooksParams{
		Pagination: core.PaginationFromQuery(r),
		Keyword:    r.URL.Query().Get("keyword"),
	}

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToBookResponseList(books),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.Get(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToBookResponse(book))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	book, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToBookResponse(book))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateBookRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.JSONError(w, err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	book, err := h.service.Update(r.Context(), chi.URLParam(r, "bookID"), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToBookResponse(book))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "bookID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

// UploadImages accepts multipart field "files": up to MaxImagesPerUpload JPEG
// or PNG images of at most MaxImageBytes each. Rejected files yield 422.
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadBytes {
		core.JSONError(w, core.UnprocessableError(uploadTooLargeMessage()))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			core.JSONError(w, core.UnprocessableError(uploadTooLargeMessage()))
			return
		}
		core.BadRequest(w, "invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup
	}()

	files := r.MultipartForm.File[imageFormField]
	uploads := make([]ImageUpload, 0, len(files))
	for _, fh := range files {
		if fh.Size > MaxImageBytes {
			writeError(w, &ImageRejectedError{
				Filename: fh.Filename,
				Reason:   "file size must be less than 1 MB",
			})
			return
		}

		data, err := readUpload(fh)
		if err != nil {
			core.BadRequest(w, "invalid multipart body")
			return
		}
		uploads = append(uploads, ImageUpload{Filename: fh.Filename, Data: data})
	}

	images, err := h.service.UploadImages(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "bookID"),
		uploads,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToImageResponseList(images))
}

func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.service.ListImages(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToImageResponseList(images))
}

// GetImage serves the stored bytes with the content type detected at upload.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.GetImage(
		r.Context(),
		chi.URLParam(r, "bookID"),
		chi.URLParam(r, "imageID"),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "image")
			return
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data) //nolint:errcheck // best-effort response write
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
}

func uploadTooLargeMessage() string {
	return fmt.Sprintf(
		"upload must contain at most %d files of less than 1 MB each",
		MaxImagesPerUpload,
	)
}

func writeError(w http.ResponseWriter, err error) {
	var rejected *ImageRejectedError
	if errors.As(err, &rejected) {
		core.JSONError(w, core.UnprocessableError(rejected.Error()))
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "book")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid book request")
	default:
		core.InternalServerError(w, err)
	}
}
