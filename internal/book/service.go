// AngelaMos | 2026
// service.go

package book

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
)

const (
	MaxImageBytes      = 1000 * 1000
	MaxImagesPerUpload = 5
)

var allowedImageTypes = []string{"image/jpeg", "image/png"}

// ImageRejectedError reports an upload that is empty, too large or not a
// JPEG or PNG. It matches core.ErrInvalidInput.
type ImageRejectedError struct {
	Filename string
	Reason   string
}

func (e *ImageRejectedError) Error() string {
	if e.Filename == "" {
		return "image rejected: " + e.Reason
	}
	return fmt.Sprintf("image %q rejected: %s", e.Filename, e.Reason)
}

func (e *ImageRejectedError) Unwrap() error {
	return core.ErrInvalidInput
}

type ImageUpload struct {
	Filename string
	Data     []byte
}

type Service struct {
	repo   Repository
	images ImageStore
	now    func() time.Time
}

func NewService(repo Repository, images ImageStore) *Service {
	return &Service{
		repo:   repo,
		images: images,
		now:    time.Now,
	}
}

func (s *Service) Create(
	ctx context.Context,
	createdBy string,
	req CreateBookRequest,
) (*Book, error) {
	category := Category(req.Category)
	if !category.Valid() || req.Price < 0 {
		return nil, fmt.Errorf("create book: %w", core.ErrInvalidInput)
	}

	book := &Book{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Author:      req.Author,
		Price:       req.Price,
		Category:    category,
		CreatedBy:   createdBy,
	}

	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	slog.Info("book created", "book_id", book.ID, "created_by", createdBy)
	return book, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Book, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(
	ctx context.Context,
	params ListBooksParams,
) ([]Book, int, error) {
	params.Normalize()
	return s.repo.List(ctx, params)
}

func (s *Service) Update(
	ctx context.Context,
	id string,
	req UpdateBookRequest,
) (*Book, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, fmt.Errorf("update book: no fields: %w", core.ErrInvalidInput)
	}
	return s.repo.Update(ctx, id, req)
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("book deleted", "book_id", id, "actor_id", actorID)
	return nil
}

// UploadImages validates every upload by content, not by filename or the
// client's Content-Type, then stores them together.
func (s *Service) UploadImages(
	ctx context.Context,
	actorID, bookID string,
	uploads []ImageUpload,
) ([]Image, error) {
	if err := validateID(bookID); err != nil {
		return nil, err
	}

	switch {
	case len(uploads) == 0:
		return nil, &ImageRejectedError{Reason: "no files uploaded"}
	case len(uploads) > MaxImagesPerUpload:
		return nil, &ImageRejectedError{
			Reason: fmt.Sprintf("at most %d files per upload", MaxImagesPerUpload),
		}
	}

	now := s.now().UTC()
	images := make([]Image, 0, len(uploads))
	for _, up := range uploads {
		contentType, err := checkImage(up)
		if err != nil {
			return nil, err
		}

		images = append(images, Image{
			ID:          uuid.New().String(),
			BookID:      bookID,
			ContentType: contentType,
			Size:        int64(len(up.Data)),
			Data:        up.Data,
			UploadedBy:  actorID,
			CreatedAt:   now,
		})
	}

	if _, err := s.repo.GetByID(ctx, bookID); err != nil {
		return nil, err
	}

	if err := s.images.AddImages(ctx, images); err != nil {
		return nil, err
	}

	slog.Info("book images uploaded",
		"book_id", bookID,
		"actor_id", actorID,
		"count", len(images),
	)
	return images, nil
}

func (s *Service) ListImages(ctx context.Context, bookID string) ([]Image, error) {
	if err := validateID(bookID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, bookID); err != nil {
		return nil, err
	}
	return s.images.ListImages(ctx, bookID)
}

func (s *Service) GetImage(ctx context.Context, bookID, imageID string) (*Image, error) {
	if err := validateID(bookID); err != nil {
		return nil, err
	}
	if err := validateID(imageID); err != nil {
		return nil, err
	}
	return s.images.GetImage(ctx, bookID, imageID)
}

func checkImage(up ImageUpload) (string, error) {
	if len(up.Data) == 0 {
		return "", &ImageRejectedError{Filename: up.Filename, Reason: "file is empty"}
	}
	if len(up.Data) > MaxImageBytes {
		return "", &ImageRejectedError{
			Filename: up.Filename,
			Reason:   "file size must be less than 1 MB",
		}
	}

	detected := mimetype.Detect(up.Data)
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			return allowed, nil
		}
	}

	return "", &ImageRejectedError{
		Filename: up.Filename,
		Reason:   detected.String() + " is not a jpeg or png image",
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("book id %q: %w", id, core.ErrInvalidInput)
	}
	return nil
}
