package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/yeremiapane/menu-catalog/models"
	"gorm.io/gorm"
)

var ErrMenuItemNotFound = errors.New("menu item not found")

// MenuItemFilter narrows List. Empty fields impose no constraint.
type MenuItemFilter struct {
	Category string
	Search   string
}

// MenuItemFields are the columns replaced by Update.
type MenuItemFields struct {
	Name     string
	Price    float64
	Category string
}

type MenuItemRepository interface {
	List(ctx context.Context, filter MenuItemFilter) ([]models.MenuItem, error)
	Create(ctx context.Context, item *models.MenuItem) error
	FindByID(ctx context.Context, id uint) (*models.MenuItem, error)
	Update(ctx context.Context, id uint, fields MenuItemFields, newImage *string) (*models.MenuItem, error)
	Delete(ctx context.Context, id uint) error
}

type GormMenuItemRepository struct {
	DB *gorm.DB
}

func NewMenuItemRepository(db *gorm.DB) *GormMenuItemRepository {
	return &GormMenuItemRepository{DB: db}
}

// likeEscaper escapes LIKE wildcards with '!', which every supported driver
// accepts as an ESCAPE character without string-literal quirks.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (r *GormMenuItemRepository) List(ctx context.Context, filter MenuItemFilter) ([]models.MenuItem, error) {
	query := r.DB.WithContext(ctx).Model(&models.MenuItem{})

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	// LOWER() di sqlite hanya untuk ASCII, jadi pencarian nama difilter di Go
	filterInGo := false
	if filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(filter.Search) + "%"
		switch r.DB.Dialector.Name() {
		case "postgres":
			query = query.Where("name ILIKE ? ESCAPE '!'", pattern)
		case "mysql":
			query = query.Where("LOWER(name) LIKE LOWER(?) ESCAPE '!'", pattern)
		default:
			filterInGo = true
		}
	}

	items := make([]models.MenuItem, 0)
	if err := query.Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	if filterInGo {
		items = matchName(items, filter.Search)
	}
	return items, nil
}

// matchName keeps items whose name contains search, compared with Unicode
// case folding.
func matchName(items []models.MenuItem, search string) []models.MenuItem {
	needle := strings.ToLower(search)
	out := make([]models.MenuItem, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			out = append(out, item)
		}
	}
	return out
}

func (r *GormMenuItemRepository) Create(ctx context.Context, item *models.MenuItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormMenuItemRepository) FindByID(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Update replaces name, price and category. The image column changes only
// when newImage is non-nil.
func (r *GormMenuItemRepository) Update(ctx context.Context, id uint, fields MenuItemFields, newImage *string) (*models.MenuItem, error) {
	var item models.MenuItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMenuItemNotFound
			}
			return err
		}

		item.Name = fields.Name
		item.Price = fields.Price
		item.Category = fields.Category
		if newImage != nil {
			item.Image = newImage
		}

		return tx.Save(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormMenuItemRepository) Delete(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Delete(&models.MenuItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}
