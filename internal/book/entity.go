// AngelaMos | 2026
// entity.go

package book

import (
	"time"
)

type Category string

const (
	CategoryAdventure Category = "Adventure"
	CategoryClassics  Category = "Classics"
	CategoryCrime     Category = "Crime"
	CategoryFantasy   Category = "Fantasy"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryAdventure, CategoryClassics, CategoryCrime, CategoryFantasy:
		return true
	}
	return false
}

type Book struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Author      string    `db:"author"`
	Price       float64   `db:"price"`
	Category    Category  `db:"category"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Image is an uploaded book cover or illustration. Data is only loaded when a
// single image is fetched.
type Image struct {
	ID          string    `db:"id"`
	BookID      string    `db:"book_id"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size_bytes"`
	Data        []byte    `db:"data"`
	UploadedBy  string    `db:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at"`
}
