package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-recipes-api/internal/metrics"
	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"gorm.io/gorm"
)

// ShoppingListHeader is the first line of a rendered shopping list
const ShoppingListHeader = "Shopping list:"

// ShoppingListService reduces a user's cart into a summed ingredient list
type ShoppingListService interface {
	// BuildShoppingList sums the amounts of every line of every recipe in the
	// user's cart by ingredient name and unit, ordered by name then unit
	BuildShoppingList(ctx context.Context, userID uint) ([]models.ShoppingListItem, error)
}

type shoppingListService struct {
	db *gorm.DB
}

// NewShoppingListService creates a new instance of ShoppingListService
func NewShoppingListService(db *gorm.DB) ShoppingListService {
	return &shoppingListService{db: db}
}

func (s *shoppingListService) BuildShoppingList(ctx context.Context, userID uint) ([]models.ShoppingListItem, error) {
	items := []models.ShoppingListItem{}
	err := s.db.WithContext(ctx).
		Table("shopping_carts").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_carts.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name").
		Order("ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, translateStoreError(err, "build shopping list", "shopping list")
	}

	metrics.ShoppingListItems.Observe(float64(len(items)))
	log.WithField("user_id", userID).Debugf("Shopping list built with %d items", len(items))
	return items, nil
}

// RenderShoppingList formats items as the downloadable text report
func RenderShoppingList(items []models.ShoppingListItem) string {
	var b strings.Builder
	b.WriteString(ShoppingListHeader)
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%s (%s) — %d\n", item.Name, item.MeasurementUnit, item.TotalAmount)
	}
	return b.String()
}
