// AngelaMos | 2026
// repository.go

package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
)

type Repository interface {
	Create(ctx context.Context, book *Book) error
	GetByID(ctx context.Context, id string) (*Book, error)
	Update(ctx context.Context, id string, req UpdateBookRequest) (*Book, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListBooksParams) ([]Book, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const bookColumns = `id, title, description, author, price, category,
	created_by, created_at, updated_at`

func (r *repository) Create(ctx context.Context, book *Book) error {
	query := `
		INSERT INTO books (id, title, description, author, price, category, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, book, query,
		book.ID,
		book.Title,
		book.Description,
		book.Author,
		book.Price,
		book.Category,
		book.CreatedBy,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("create book: unknown creator: %w", core.ErrInvalidInput)
		}
		return fmt.Errorf("create book: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	var book Book
	err := r.db.GetContext(ctx, &book, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get book: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	return &book, nil
}

func (r *repository) Update(
	ctx context.Context,
	id string,
	req UpdateBookRequest,
) (*Book, error) {
	query := `
		UPDATE books SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			author = COALESCE($4, author),
			price = COALESCE($5, price),
			category = COALESCE($6, category),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookColumns

	var book Book
	err := r.db.GetContext(ctx, &book, query,
		id,
		req.Title,
		req.Description,
		req.Author,
		req.Price,
		req.Category,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update book: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	return &book, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete book: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListBooksParams,
) ([]Book, int, error) {
	params.Normalize()

	where := "TRUE"
	var args []any
	if params.Keyword != "" {
		where = "title ILIKE $1"
		args = append(args, "%"+core.EscapeLike(params.Keyword)+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM books WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM books
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		bookColumns, where, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, params.Offset())

	var books []Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}

	return books, total, nil
}

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.ForeignKeyViolation
	}
	return false
}
