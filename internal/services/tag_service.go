package services

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultTags are created on first boot
var DefaultTags = []models.Tag{
	{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
	{Name: "Lunch", Color: "#49B64F", Slug: "lunch"},
	{Name: "Dinner", Color: "#8775D2", Slug: "dinner"},
	{Name: "Dessert", Color: "#FF69B4", Slug: "dessert"},
	{Name: "Drink", Color: "#32CD32", Slug: "drink"},
}

// TagService exposes the tag reference data
type TagService interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	// SeedDefaultTags inserts DefaultTags, skipping slugs that already exist
	SeedDefaultTags(ctx context.Context) (int64, error)
}

type tagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) TagService {
	return &tagService{db: db}
}

func (s *tagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, translateStoreError(err, "list tags", "tag")
	}
	return tags, nil
}

func (s *tagService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "tag", IDs: []uint{id}}
		}
		return nil, translateStoreError(err, "get tag", "tag")
	}
	return &tag, nil
}

func (s *tagService) SeedDefaultTags(ctx context.Context) (int64, error) {
	tags := make([]models.Tag, len(DefaultTags))
	copy(tags, DefaultTags)
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tags)
	if result.Error != nil {
		return 0, translateStoreError(result.Error, "seed tags", "tag")
	}
	log.WithField("created", result.RowsAffected).Info("Default tags seeded")
	return result.RowsAffected, nil
}

// resolveTags loads every tag id or fails with a NotFoundError listing the missing ones
func resolveTags(tx *gorm.DB, ids []uint) ([]models.Tag, error) {
	var found []models.Tag
	if err := tx.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Tag, len(found))
	for _, tag := range found {
		byID[tag.ID] = tag
	}

	tags := make([]models.Tag, 0, len(ids))
	var missing []uint
	for _, id := range ids {
		tag, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		tags = append(tags, tag)
	}
	if len(missing) > 0 {
		return nil, &NotFoundError{Entity: "tag", IDs: sortedIDs(missing)}
	}
	return tags, nil
}
