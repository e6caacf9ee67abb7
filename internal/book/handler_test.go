// AngelaMos | 2026
// handler_test.go

package book

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
	"github.com/carterperez-dev/templates/bookshelf/internal/middleware"
)

type tokenTable map[string]*middleware.Principal

func (tt tokenTable) Authenticate(_ context.Context, token string) (*middleware.Principal, error) {
	p, ok := tt[token]
	if !ok {
		return nil, core.ErrTokenInvalid
	}
	return p, nil
}

func newBookRouter(t *testing.T) (*chi.Mux, sqlmock.Sqlmock) {
	t.Helper()
	repo, images, mock := newMockStores(t)

	tokens := tokenTable{
		"user":  {UserID: creatorID, Role: core.RoleUser},
		"mod":   {UserID: creatorID, Role: core.RoleModerator},
		"admin": {UserID: creatorID, Role: core.RoleAdmin},
	}
	authn := middleware.AuthenticationGuard(tokens)
	withRoles := func(roles ...core.Role) func(http.Handler) http.Handler {
		return middleware.Chain(authn, middleware.RoleGuard(roles...))
	}

	r := chi.NewRouter()
	NewHandler(NewService(repo, images)).RegisterRoutes(r, RouteGuards{
		Read:   middleware.Chain(),
		Create: withRoles(core.RoleUser, core.RoleModerator, core.RoleAdmin),
		Update: withRoles(core.RoleModerator, core.RoleAdmin),
		Delete: withRoles(core.RoleAdmin),
	})
	return r, mock
}

func send(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const createBody = `{"title":"Dune","description":"Spice","author":"Frank Herbert","price":9.99,"category":"Adventure"}`

func TestBookRoutes_CreateRequiresAuthentication(t *testing.T) {
	router, _ := newBookRouter(t)

	rec := send(router, http.MethodPost, "/books", "", createBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookRoutes_CreateAsUser(t *testing.T) {
	router, mock := newBookRouter(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO books").
		WithArgs(sqlmock.AnyArg(), "Dune", "Spice", "Frank Herbert", 9.99, CategoryAdventure, creatorID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	rec := send(router, http.MethodPost, "/books", "user", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"created_by":"`+creatorID+`"`)
}

func TestBookRoutes_CreateValidation(t *testing.T) {
	router, _ := newBookRouter(t)

	rec := send(router, http.MethodPost, "/books", "user",
		`{"title":"Dune","description":"x","author":"F","price":-1,"category":"Romance"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookRoutes_UpdateForbiddenForUser(t *testing.T) {
	router, _ := newBookRouter(t)

	rec := send(router, http.MethodPut, "/books/"+bookID, "user", `{"price":1}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBookRoutes_UpdateAsModerator(t *testing.T) {
	router, mock := newBookRouter(t)

	mock.ExpectQuery("UPDATE books SET").WillReturnRows(duneRow(time.Now().UTC()))

	rec := send(router, http.MethodPut, "/books/"+bookID, "mod", `{"price":12.5}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestBookRoutes_UpdateEmptyBody(t *testing.T) {
	router, _ := newBookRouter(t)

	rec := send(router, http.MethodPut, "/books/"+bookID, "admin", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookRoutes_DeleteAdminOnly(t *testing.T) {
	router, mock := newBookRouter(t)

	rec := send(router, http.MethodDelete, "/books/"+bookID, "mod", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mock.ExpectExec("DELETE FROM books").WithArgs(bookID).WillReturnResult(sqlmock.NewResult(0, 1))
	rec = send(router, http.MethodDelete, "/books/"+bookID, "admin", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBookRoutes_PublicReads(t *testing.T) {
	router, mock := newBookRouter(t)

	mock.ExpectQuery("FROM books WHERE id").WithArgs(bookID).WillReturnRows(duneRow(time.Now().UTC()))
	rec := send(router, http.MethodGet, "/books/"+bookID, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(router, http.MethodGet, "/books/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mock.ExpectQuery("FROM books WHERE id").WithArgs(bookID).WillReturnRows(sqlmock.NewRows(bookRowColumns))
	rec = send(router, http.MethodGet, "/books/"+bookID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookRoutes_ListClampsHugePage(t *testing.T) {
	router, mock := newBookRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM books WHERE TRUE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`LIMIT \$1 OFFSET \$2`).
		WithArgs(core.DefaultPageSize, (core.MaxPage-1)*core.DefaultPageSize).
		WillReturnRows(sqlmock.NewRows(bookRowColumns))

	rec := send(router, http.MethodGet, "/books?page=9223372036854775807", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	gifHeader = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00")
)

func pngOfSize(n int) []byte {
	data := make([]byte, n)
	copy(data, pngHeader)
	return data
}

func sendImages(
	t *testing.T,
	router http.Handler,
	token string,
	files map[string][]byte,
) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := mw.CreateFormFile(imageFormField, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/books/"+bookID+"/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBookRoutes_UploadImagesRequiresAuthentication(t *testing.T) {
	router, _ := newBookRouter(t)

	rec := sendImages(t, router, "", map[string][]byte{"cover.png": pngOfSize(64)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookRoutes_UploadImagesRejectsWrongType(t *testing.T) {
	router, _ := newBookRouter(t)

	rec := sendImages(t, router, "user", map[string][]byte{"cover.png": gifHeader})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNPROCESSABLE_ENTITY")
	assert.Contains(t, rec.Body.String(), "cover.png")
}

func TestBookRoutes_UploadImagesRejectsOversizedFile(t *testing.T) {
	router, _ := newBookRouter(t)

	rec := sendImages(t, router, "user", map[string][]byte{
		"cover.png": pngOfSize(MaxImageBytes + 1),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 MB")
}

func TestBookRoutes_UploadImagesRejectsOversizedRequest(t *testing.T) {
	router, _ := newBookRouter(t)

	files := make(map[string][]byte, MaxImagesPerUpload+1)
	for i := range MaxImagesPerUpload + 1 {
		files["cover"+strconv.Itoa(i)+".png"] = pngOfSize(MaxImageBytes)
	}

	rec := sendImages(t, router, "user", files)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBookRoutes_UploadImagesRequiresFiles(t *testing.T) {
	router, _ := newBookRouter(t)

	rec := sendImages(t, router, "user", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBookRoutes_UploadImagesUnknownBook(t *testing.T) {
	router, mock := newBookRouter(t)

	mock.ExpectQuery("FROM books WHERE id").WithArgs(bookID).WillReturnRows(sqlmock.NewRows(bookRowColumns))

	rec := sendImages(t, router, "user", map[string][]byte{"cover.png": pngOfSize(64)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookRoutes_UploadImages(t *testing.T) {
	router, mock := newBookRouter(t)

	mock.ExpectQuery("FROM books WHERE id").WithArgs(bookID).WillReturnRows(duneRow(time.Now().UTC()))
	mock.ExpectExec("INSERT INTO book_images").
		WithArgs(
			sqlmock.AnyArg(), bookID, "image/png", int64(MaxImageBytes), sqlmock.AnyArg(), creatorID, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := sendImages(t, router, "user", map[string][]byte{"cover.png": pngOfSize(MaxImageBytes)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"content_type":"image/png"`)
	assert.Contains(t, rec.Body.String(), `"book_id":"`+bookID+`"`)
}

func TestBookRoutes_GetImageServesBytes(t *testing.T) {
	router, mock := newBookRouter(t)
	data := pngOfSize(32)

	mock.ExpectQuery("FROM book_images").
		WithArgs(bookID, imageID).
		WillReturnRows(imageRow(data))

	rec := send(router, http.MethodGet, "/books/"+bookID+"/images/"+imageID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, data, rec.Body.Bytes())

	mock.ExpectQuery("FROM book_images").
		WithArgs(bookID, imageID).
		WillReturnRows(sqlmock.NewRows(imageRowColumns))
	rec = send(router, http.MethodGet, "/books/"+bookID+"/images/"+imageID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
