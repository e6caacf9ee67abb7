// AngelaMos | 2026
// image_store.go

package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
)

// ImageStore persists book images in the book_images table. AddImages writes
// every image in one statement, so an upload is stored whole or not at all.
type ImageStore interface {
	AddImages(ctx context.Context, images []Image) error
	ListImages(ctx context.Context, bookID string) ([]Image, error)
	GetImage(ctx context.Context, bookID, imageID string) (*Image, error)
}

type imageStore struct {
	db core.DBTX
}

func NewImageStore(db core.DBTX) ImageStore {
	return &imageStore{db: db}
}

const imageColumnCount = 7

func (s *imageStore) AddImages(ctx context.Context, images []Image) error {
	if len(images) == 0 {
		return nil
	}

	rows := make([]string, 0, len(images))
	args := make([]any, 0, len(images)*imageColumnCount)
	for i, img := range images {
		base := i * imageColumnCount
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args,
			img.ID,
			img.BookID,
			img.ContentType,
			img.Size,
			img.Data,
			img.UploadedBy,
			img.CreatedAt,
		)
	}

	query := `
		INSERT INTO book_images
			(id, book_id, content_type, size_bytes, data, uploaded_by, created_at)
		VALUES ` + strings.Join(rows, ", ")

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("add images: %w", core.ErrNotFound)
		}
		return fmt.Errorf("add images: %w", err)
	}

	return nil
}

func (s *imageStore) ListImages(ctx context.Context, bookID string) ([]Image, error) {
	query := `
		SELECT id, book_id, content_type, size_bytes, uploaded_by, created_at
		FROM book_images
		WHERE book_id = $1
		ORDER BY created_at, id`

	var images []Image
	if err := s.db.SelectContext(ctx, &images, query, bookID); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	return images, nil
}

func (s *imageStore) GetImage(
	ctx context.Context,
	bookID, imageID string,
) (*Image, error) {
	query := `
		SELECT id, book_id, content_type, size_bytes, data, uploaded_by, created_at
		FROM book_images
		WHERE book_id = $1 AND id = $2`

	var img Image
	err := s.db.GetContext(ctx, &img, query, bookID, imageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get image: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}

	return &img, nil
}
