package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/yeremiapane/menu-catalog/hub"
	"github.com/yeremiapane/menu-catalog/metrics"
	"github.com/yeremiapane/menu-catalog/models"
	"github.com/yeremiapane/menu-catalog/repositories"
	"github.com/yeremiapane/menu-catalog/storage"
	"github.com/yeremiapane/menu-catalog/utils"
)

// ValidationError is returned for malformed menu item input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// MenuItemInput carries the raw form values of a create or update.
type MenuItemInput struct {
	Name     string
	Price    string
	Category string
}

// Upload is an image file attached to a request.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// DeletedEvent is the payload broadcast after a delete.
type DeletedEvent struct {
	ID uint `json:"id"`
}

type MenuItemService struct {
	Repo    repositories.MenuItemRepository
	Images  storage.ImageStore
	Hub     *hub.Hub
	Metrics *metrics.Metrics
}

func NewMenuItemService(repo repositories.MenuItemRepository, images storage.ImageStore, h *hub.Hub, m *metrics.Metrics) *MenuItemService {
	return &MenuItemService{Repo: repo, Images: images, Hub: h, Metrics: m}
}

// ParsePrice accepts any finite float. Blank, non-numeric, NaN and Inf are
// rejected.
func ParsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ValidationError{Field: "price", Message: "is required"}
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, &ValidationError{Field: "price", Message: "must be a number"}
	}
	return price, nil
}

func (in MenuItemInput) validate() (repositories.MenuItemFields, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return repositories.MenuItemFields{}, &ValidationError{Field: "name", Message: "is required"}
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return repositories.MenuItemFields{}, &ValidationError{Field: "category", Message: "is required"}
	}
	price, err := ParsePrice(in.Price)
	if err != nil {
		return repositories.MenuItemFields{}, err
	}
	return repositories.MenuItemFields{Name: name, Price: price, Category: category}, nil
}

func (s *MenuItemService) List(ctx context.Context, filter repositories.MenuItemFilter) ([]models.MenuItem, error) {
	items, err := s.Repo.List(ctx, filter)
	s.record("list", err)
	return items, err
}

func (s *MenuItemService) Get(ctx context.Context, id uint) (*models.MenuItem, error) {
	item, err := s.Repo.FindByID(ctx, id)
	s.record("get", err)
	return item, err
}

func (s *MenuItemService) Create(ctx context.Context, in MenuItemInput, upload *Upload) (*models.MenuItem, error) {
	fields, err := in.validate()
	if err != nil {
		s.record("create", err)
		return nil, err
	}

	image, err := s.saveUpload(ctx, upload)
	if err != nil {
		s.Metrics.RecordMenuItemOp("create", metrics.OutcomeImageError)
		return nil, err
	}

	item := &models.MenuItem{
		Name:     fields.Name,
		Price:    fields.Price,
		Category: fields.Category,
		Image:    image,
	}
	if err := s.Repo.Create(ctx, item); err != nil {
		// Row tidak tersimpan, hapus gambar yang sudah diupload
		s.removeImage(ctx, image)
		s.record("create", err)
		return nil, fmt.Errorf("create menu item: %w", err)
	}

	s.record("create", nil)
	s.Hub.Broadcast(hub.EventMenuItemCreated, item)
	return item, nil
}

// Update replaces the text fields and, when upload is set, the image. An
// unknown id is reported before the input is validated. The replaced image is
// removed only after the row is saved.
func (s *MenuItemService) Update(ctx context.Context, id uint, in MenuItemInput, upload *Upload) (*models.MenuItem, error) {
	existing, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		s.record("update", err)
		return nil, err
	}

	fields, err := in.validate()
	if err != nil {
		s.record("update", err)
		return nil, err
	}

	newImage, err := s.saveUpload(ctx, upload)
	if err != nil {
		s.Metrics.RecordMenuItemOp("update", metrics.OutcomeImageError)
		return nil, err
	}

	updated, err := s.Repo.Update(ctx, id, fields, newImage)
	if err != nil {
		s.removeImage(ctx, newImage)
		s.record("update", err)
		if errors.Is(err, repositories.ErrMenuItemNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update menu item %d: %w", id, err)
	}

	if newImage != nil && existing.Image != nil && *existing.Image != *newImage {
		s.removeImage(ctx, existing.Image)
	}

	s.record("update", nil)
	s.Hub.Broadcast(hub.EventMenuItemUpdated, updated)
	return updated, nil
}

func (s *MenuItemService) Delete(ctx context.Context, id uint) error {
	existing, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		s.record("delete", err)
		return err
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		s.record("delete", err)
		if errors.Is(err, repositories.ErrMenuItemNotFound) {
			return err
		}
		return fmt.Errorf("delete menu item %d: %w", id, err)
	}

	s.removeImage(ctx, existing.Image)

	s.record("delete", nil)
	s.Hub.Broadcast(hub.EventMenuItemDeleted, DeletedEvent{ID: id})
	return nil
}

func (s *MenuItemService) saveUpload(ctx context.Context, upload *Upload) (*string, error) {
	if upload == nil {
		return nil, nil
	}
	p, err := s.Images.Save(ctx, upload.Content, upload.Size, upload.Filename)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}
	s.Metrics.AddImageBytes(upload.Size)
	return &p, nil
}

// removeImage is best-effort: failures are logged and never returned.
func (s *MenuItemService) removeImage(ctx context.Context, image *string) {
	if image == nil || *image == "" {
		return
	}
	if err := s.Images.Delete(ctx, *image); err != nil {
		s.Metrics.RecordImageDeleteFailure()
		utils.ErrorLogger.Errorf("Error deleting image %s: %v", *image, err)
	}
}

func (s *MenuItemService) record(op string, err error) {
	var verr *ValidationError
	switch {
	case err == nil:
		s.Metrics.RecordMenuItemOp(op, metrics.OutcomeSuccess)
	case errors.Is(err, repositories.ErrMenuItemNotFound):
		s.Metrics.RecordMenuItemOp(op, metrics.OutcomeNotFound)
	case errors.As(err, &verr):
		s.Metrics.RecordMenuItemOp(op, metrics.OutcomeInvalid)
	default:
		s.Metrics.RecordMenuItemOp(op, metrics.OutcomeError)
	}
}
