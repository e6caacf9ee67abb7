// AngelaMos | 2026
// image_store_test.go

package book

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
)

const imageID = "55555555-5555-4555-8555-555555555555"

var imageRowColumns = []string{
	"id", "book_id", "content_type", "size_bytes", "data", "uploaded_by", "created_at",
}

func imageRow(data []byte) *sqlmock.Rows {
	return sqlmock.NewRows(imageRowColumns).AddRow(
		imageID, bookID, "image/png", int64(len(data)), data, creatorID, time.Now().UTC(),
	)
}

func newMockImageStore(t *testing.T) (ImageStore, sqlmock.Sqlmock) {
	t.Helper()
	_, images, mock := newMockStores(t)
	return images, mock
}

func TestImageStore_AddImagesSingleStatement(t *testing.T) {
	images, mock := newMockImageStore(t)
	now := time.Now().UTC()

	batch := []Image{
		{ID: imageID, BookID: bookID, ContentType: "image/png", Size: 3, Data: []byte{1, 2, 3}, UploadedBy: creatorID, CreatedAt: now},
		{ID: bookID, BookID: bookID, ContentType: "image/jpeg", Size: 1, Data: []byte{4}, UploadedBy: creatorID, CreatedAt: now},
	}

	mock.ExpectExec(`INSERT INTO book_images .* VALUES \(\$1, .*\$7\), \(\$8, .*\$14\)`).
		WithArgs(
			imageID, bookID, "image/png", int64(3), []byte{1, 2, 3}, creatorID, now,
			bookID, bookID, "image/jpeg", int64(1), []byte{4}, creatorID, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, images.AddImages(context.Background(), batch))
}

func TestImageStore_AddImagesEmpty(t *testing.T) {
	images, _ := newMockImageStore(t)

	assert.NoError(t, images.AddImages(context.Background(), nil))
}

func TestImageStore_AddImagesMissingBook(t *testing.T) {
	images, mock := newMockImageStore(t)

	mock.ExpectExec("INSERT INTO book_images").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

	err := images.AddImages(context.Background(), []Image{{ID: imageID, BookID: bookID}})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestImageStore_ListImagesSkipsData(t *testing.T) {
	images, mock := newMockImageStore(t)

	mock.ExpectQuery(`SELECT id, book_id, content_type, size_bytes, uploaded_by, created_at\s+FROM book_images`).
		WithArgs(bookID).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "book_id", "content_type", "size_bytes", "uploaded_by", "created_at"},
		).AddRow(imageID, bookID, "image/jpeg", int64(2048), creatorID, time.Now().UTC()))

	got, err := images.ListImages(context.Background(), bookID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2048), got[0].Size)
	assert.Nil(t, got[0].Data)
}

func TestImageStore_GetImageNotFound(t *testing.T) {
	images, mock := newMockImageStore(t)

	mock.ExpectQuery("FROM book_images").
		WithArgs(bookID, imageID).
		WillReturnRows(sqlmock.NewRows(imageRowColumns))

	_, err := images.GetImage(context.Background(), bookID, imageID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCheckImage(t *testing.T) {
	jpeg := append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), make([]byte, 32)...)

	tests := []struct {
		name     string
		data     []byte
		wantType string
		wantErr  bool
	}{
		{"png", pngOfSize(64), "image/png", false},
		{"jpeg", jpeg, "image/jpeg", false},
		{"gif", gifHeader, "", true},
		{"plain text", []byte("not an image"), "", true},
		{"empty", nil, "", true},
		{"at limit", pngOfSize(MaxImageBytes), "image/png", false},
		{"over limit", pngOfSize(MaxImageBytes + 1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checkImage(ImageUpload{Filename: "f", Data: tt.data})
			if tt.wantErr {
				var rejected *ImageRejectedError
				assert.ErrorAs(t, err, &rejected)
				assert.ErrorIs(t, err, core.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, got)
		})
	}
}
