package services

import (
	"context"
	"errors"
	"strings"

	"github.com/franciscosanchezn/gin-recipes-api/internal/cache"
	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"gorm.io/gorm"
)

// IngredientService is the read side of the ingredient catalog
type IngredientService interface {
	// Search returns ingredients whose name starts with prefix, ignoring case, ordered by name
	Search(ctx context.Context, prefix string) ([]models.Ingredient, error)
	// Resolve loads every id or fails with a NotFoundError listing the missing ones
	Resolve(ctx context.Context, ids []uint) (map[uint]models.Ingredient, error)
	// GetIngredient returns a single ingredient
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
}

type ingredientService struct {
	db    *gorm.DB
	cache cache.IngredientCache
}

// NewIngredientService creates the catalog; a nil cache disables caching
func NewIngredientService(db *gorm.DB, searchCache cache.IngredientCache) IngredientService {
	if searchCache == nil {
		searchCache = cache.Noop{}
	}
	return &ingredientService{db: db, cache: searchCache}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *ingredientService) Search(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	prefix = strings.TrimSpace(prefix)
	if cached, ok := s.cache.Get(ctx, prefix); ok {
		return cached, nil
	}

	query := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
	if prefix != "" {
		pattern := likeEscaper.Replace(strings.ToLower(prefix)) + "%"
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
	}

	ingredients := []models.Ingredient{}
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, translateStoreError(err, "search ingredients", "ingredient")
	}
	s.cache.Set(ctx, prefix, ingredients)
	return ingredients, nil
}

func (s *ingredientService) Resolve(ctx context.Context, ids []uint) (map[uint]models.Ingredient, error) {
	resolved, err := resolveIngredients(s.db.WithContext(ctx), ids)
	return resolved, translateStoreError(err, "resolve ingredients", "ingredient")
}

func (s *ingredientService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "ingredient", IDs: []uint{id}}
		}
		return nil, translateStoreError(err, "get ingredient", "ingredient")
	}
	return &ingredient, nil
}

// resolveIngredients runs on the caller's session so recipe writes can resolve
// inside their own transaction
func resolveIngredients(tx *gorm.DB, ids []uint) (map[uint]models.Ingredient, error) {
	resolved := make(map[uint]models.Ingredient, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}

	var found []models.Ingredient
	if err := tx.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	for _, ingredient := range found {
		resolved[ingredient.ID] = ingredient
	}

	var missing []uint
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &NotFoundError{Entity: "ingredient", IDs: sortedIDs(missing)}
	}
	return resolved, nil
}
