// AngelaMos | 2026
// dto.go

package book

import (
	"time"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
)

type CreateBookRequest struct {
	Title       string  `json:"title"       validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"required,max=2000"`
	Author      string  `json:"author"      validate:"required,min=1,max=100"`
	Price       float64 `json:"price"       validate:"gte=0"`
	Category    string  `json:"category"    validate:"required,oneof=Adventure Classics Crime Fantasy"`
}

// UpdateBookRequest is a partial update; nil fields are left unchanged.
type UpdateBookRequest struct {
	Title       *string  `json:"title"       validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Author      *string  `json:"author"      validate:"omitempty,min=1,max=100"`
	Price       *float64 `json:"price"       validate:"omitempty,gte=0"`
	Category    *string  `json:"category"    validate:"omitempty,oneof=Adventure Classics Crime Fantasy"`
}

func (r UpdateBookRequest) Empty() bool {
	return r.Title == nil &&
		r.Description == nil &&
		r.Author == nil &&
		r.Price == nil &&
		r.Category == nil
}

type BookResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListBooksParams pages through books, optionally filtered by a title
// keyword.
type ListBooksParams struct {
	core.Pagination
	Keyword string
}

func ToBookResponse(b *Book) BookResponse {
	return BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Author:      b.Author,
		Price:       b.Price,
		Category:    string(b.Category),
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func ToBookResponseList(books []Book) []BookResponse {
	responses := make([]BookResponse, 0, len(books))
	for _, b := range books {
		responses = append(responses, ToBookResponse(&b))
	}
	return responses
}

type ImageResponse struct {
	ID          string    `json:"id"`
	BookID      string    `json:"book_id"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToImageResponse(img *Image) ImageResponse {
	return ImageResponse{
		ID:          img.ID,
		BookID:      img.BookID,
		ContentType: img.ContentType,
		Size:        img.Size,
		URL:         "/books/" + img.BookID + "/images/" + img.ID,
		CreatedAt:   img.CreatedAt,
	}
}

func ToImageResponseList(images []Image) []ImageResponse {
	responses := make([]ImageResponse, len(images))
	for i := range images {
		responses[i] = ToImageResponse(&images[i])
	}
	return responses
}
