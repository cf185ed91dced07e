package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/franciscosanchezn/gin-recipes-api/internal/metrics"
	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/franciscosanchezn/gin-recipes-api/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxRecipeNameLength is the longest recipe name accepted, in characters
const MaxRecipeNameLength = 200

// IngredientLine is one requested ingredient of a recipe
type IngredientLine struct {
	IngredientID uint `json:"id"`
	Amount       int  `json:"amount"`
}

// RecipeInput carries every field of a new recipe.
// Image is a base64 payload, either a data URI or bare base64.
type RecipeInput struct {
	Name        string
	Image       string
	Text        string
	CookingTime int
	TagIDs      []uint
	Ingredients []IngredientLine
}

// RecipeUpdate carries a partial update. Nil fields are left untouched;
// a non-nil TagIDs or Ingredients replaces the whole set.
type RecipeUpdate struct {
	Name        *string
	Image       *string
	Text        *string
	CookingTime *int
	TagIDs      []uint
	Ingredients []IngredientLine
}

// RecipeFilter narrows ListRecipes. All set filters must hold.
type RecipeFilter struct {
	// TagSlugs matches recipes carrying any of the slugs
	TagSlugs    []string
	AuthorID    *uint
	FavoritedBy *uint
	InCartOf    *uint
	Limit       int
	Offset      int
}

// RecipeService owns the recipe aggregate: the recipe row, its tag links and
// its ingredient lines always change together.
type RecipeService interface {
	// CreateRecipe validates and stores a recipe with its tags and lines
	CreateRecipe(ctx context.Context, authorID uint, input RecipeInput) (*models.Recipe, error)
	// UpdateRecipe applies a partial update; only the author may update
	UpdateRecipe(ctx context.Context, recipeID, callerID uint, update RecipeUpdate) (*models.Recipe, error)
	// DeleteRecipe removes the recipe and everything that references it; only the author may delete
	DeleteRecipe(ctx context.Context, recipeID, callerID uint) error
	// GetRecipe returns a hydrated recipe
	GetRecipe(ctx context.Context, id uint) (*models.Recipe, error)
	// ListRecipes returns a page of hydrated recipes, newest first, and the total count
	ListRecipes(ctx context.Context, filter RecipeFilter) ([]models.Recipe, int64, error)
}

type recipeService struct {
	db     *gorm.DB
	images storage.ImageStore
}

// NewRecipeService creates a new instance of RecipeService
func NewRecipeService(db *gorm.DB, images storage.ImageStore) RecipeService {
	return &recipeService{db: db, images: images}
}

func (s *recipeService) CreateRecipe(ctx context.Context, authorID uint, input RecipeInput) (*models.Recipe, error) {
	created, err := s.createRecipe(ctx, authorID, input)
	metrics.RecordRecipeWrite("create", err)
	return created, err
}

func (s *recipeService) createRecipe(ctx context.Context, authorID uint, input RecipeInput) (*models.Recipe, error) {
	if err := validateRecipeInput(input); err != nil {
		return nil, err
	}

	imageRef, err := s.saveImage(ctx, input.Image)
	if err != nil {
		return nil, err
	}

	var created *models.Recipe
	err = inTransaction(ctx, s.db, "create recipe", "recipe", func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, authorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "user", IDs: []uint{authorID}}
			}
			return err
		}

		tags, err := resolveTags(tx, input.TagIDs)
		if err != nil {
			return err
		}
		if _, err := resolveIngredients(tx, lineIngredientIDs(input.Ingredients)); err != nil {
			return err
		}

		recipe := models.Recipe{
			AuthorID:    authorID,
			Name:        strings.TrimSpace(input.Name),
			Image:       imageRef,
			Text:        input.Text,
			CookingTime: input.CookingTime,
		}
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		if err := insertRecipeTags(tx, recipe.ID, tags); err != nil {
			return err
		}
		if err := insertRecipeLines(tx, recipe.ID, input.Ingredients); err != nil {
			return err
		}

		created, err = loadRecipe(tx, recipe.ID)
		return err
	})
	if err != nil {
		s.discardImage(ctx, imageRef)
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"recipe_id":   created.ID,
		"author_id":   authorID,
		"tags":        len(input.TagIDs),
		"ingredients": len(input.Ingredients),
	}).Info("Recipe created")
	return created, nil
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID, callerID uint, update RecipeUpdate) (*models.Recipe, error) {
	updated, err := s.updateRecipe(ctx, recipeID, callerID, update)
	metrics.RecordRecipeWrite("update", err)
	return updated, err
}

func (s *recipeService) updateRecipe(ctx context.Context, recipeID, callerID uint, update RecipeUpdate) (*models.Recipe, error) {
	// Ownership is reported before validation; it is checked again under the row lock.
	if _, err := ownedRecipe(s.db.WithContext(ctx), recipeID, callerID, "update"); err != nil {
		return nil, translateStoreError(err, "update recipe", "recipe")
	}
	if err := validateRecipeUpdate(update); err != nil {
		return nil, err
	}

	var newImage string
	if update.Image != nil {
		ref, err := s.saveImage(ctx, *update.Image)
		if err != nil {
			return nil, err
		}
		newImage = ref
	}

	var (
		oldImage string
		updated  *models.Recipe
	)
	err := inTransaction(ctx, s.db, "update recipe", "recipe", func(tx *gorm.DB) error {
		recipe, err := ownedRecipe(forUpdate(tx), recipeID, callerID, "update")
		if err != nil {
			return err
		}

		changes := map[string]interface{}{"updated_at": time.Now()}
		if update.Name != nil {
			changes["name"] = strings.TrimSpace(*update.Name)
		}
		if update.Text != nil {
			changes["text"] = *update.Text
		}
		if update.CookingTime != nil {
			changes["cooking_time"] = *update.CookingTime
		}
		if newImage != "" {
			changes["image"] = newImage
			oldImage = recipe.Image
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(changes).Error; err != nil {
			return err
		}

		if update.TagIDs != nil {
			tags, err := resolveTags(tx, update.TagIDs)
			if err != nil {
				return err
			}
			if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
				return err
			}
			if err := insertRecipeTags(tx, recipeID, tags); err != nil {
				return err
			}
		}

		if update.Ingredients != nil {
			if _, err := resolveIngredients(tx, lineIngredientIDs(update.Ingredients)); err != nil {
				return err
			}
			if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return err
			}
			if err := insertRecipeLines(tx, recipeID, update.Ingredients); err != nil {
				return err
			}
		}

		updated, err = loadRecipe(tx, recipeID)
		return err
	})
	if err != nil {
		s.discardImage(ctx, newImage)
		return nil, err
	}
	s.discardImage(ctx, oldImage)

	log.WithFields(logrus.Fields{
		"recipe_id":      recipeID,
		"tags_replaced":  update.TagIDs != nil,
		"lines_replaced": update.Ingredients != nil,
		"image_replaced": newImage != "",
	}).Info("Recipe updated")
	return updated, nil
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID, callerID uint) error {
	var imageRef string
	err := inTransaction(ctx, s.db, "delete recipe", "recipe", func(tx *gorm.DB) error {
		recipe, err := ownedRecipe(forUpdate(tx), recipeID, callerID, "delete")
		if err != nil {
			return err
		}
		imageRef = recipe.Image

		dependents := []interface{}{
			&models.RecipeIngredient{},
			&models.RecipeTag{},
			&models.Favorite{},
			&models.ShoppingCart{},
		}
		for _, model := range dependents {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, recipeID).Error
	})
	metrics.RecordRecipeWrite("delete", err)
	if err != nil {
		return err
	}
	s.discardImage(ctx, imageRef)

	log.WithField("recipe_id", recipeID).Info("Recipe deleted")
	return nil
}

func (s *recipeService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	recipe, err := loadRecipe(s.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "recipe", IDs: []uint{id}}
		}
		return nil, translateStoreError(err, "get recipe", "recipe")
	}
	return recipe, nil
}

func (s *recipeService) ListRecipes(ctx context.Context, filter RecipeFilter) ([]models.Recipe, int64, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.Recipe{})

	if len(filter.TagSlugs) > 0 {
		if err := checkTagSlugs(db, filter.TagSlugs); err != nil {
			return nil, 0, err
		}
		tagged := db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if filter.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	if filter.FavoritedBy != nil {
		favorited := db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", *filter.FavoritedBy)
		query = query.Where("recipes.id IN (?)", favorited)
	}
	if filter.InCartOf != nil {
		inCart := db.Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", *filter.InCartOf)
		query = query.Where("recipes.id IN (?)", inCart)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateStoreError(err, "count recipes", "recipe")
	}

	page := hydrate(query).Order("recipes.created_at DESC").Order("recipes.id DESC")
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		page = page.Offset(filter.Offset)
	}

	recipes := []models.Recipe{}
	if err := page.Find(&recipes).Error; err != nil {
		return nil, 0, translateStoreError(err, "list recipes", "recipe")
	}
	return recipes, total, nil
}

// saveImage stores the payload and maps undecodable input to a ValidationError
func (s *recipeService) saveImage(ctx context.Context, payload string) (string, error) {
	ref, err := s.images.Save(ctx, payload)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			return "", &ValidationError{Field: "image", Message: err.Error()}
		}
		return "", fmt.Errorf("store image: %w", err)
	}
	return ref, nil
}

// discardImage removes a blob that is no longer referenced; failures only leave an orphan
func (s *recipeService) discardImage(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil && !errors.Is(err, storage.ErrImageNotFound) {
		log.WithError(err).WithField("image", ref).Warn("Failed to remove image")
	}
}

// ownedRecipe loads the recipe row and checks that callerID is its author
func ownedRecipe(tx *gorm.DB, recipeID, callerID uint, action string) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := tx.First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "recipe", IDs: []uint{recipeID}}
		}
		return nil, err
	}
	if recipe.AuthorID != callerID {
		return nil, &AuthorizationError{Action: action + " recipe", ResourceID: recipeID}
	}
	return &recipe, nil
}

func hydrate(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.id")
		}).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("recipe_ingredients.position")
		}).
		Preload("Ingredients.Ingredient")
}

func loadRecipe(tx *gorm.DB, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := hydrate(tx).First(&recipe, id).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func insertRecipeTags(tx *gorm.DB, recipeID uint, tags []models.Tag) error {
	links := make([]models.RecipeTag, len(tags))
	for i, tag := range tags {
		links[i] = models.RecipeTag{RecipeID: recipeID, TagID: tag.ID}
	}
	return tx.Create(&links).Error
}

func insertRecipeLines(tx *gorm.DB, recipeID uint, lines []IngredientLine) error {
	rows := make([]models.RecipeIngredient, len(lines))
	for i, line := range lines {
		rows[i] = models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: line.IngredientID,
			Amount:       line.Amount,
			Position:     i,
		}
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}

func lineIngredientIDs(lines []IngredientLine) []uint {
	ids := make([]uint, len(lines))
	for i, line := range lines {
		ids[i] = line.IngredientID
	}
	return ids
}

func validateRecipeInput(input RecipeInput) error {
	if err := validateName(input.Name); err != nil {
		return err
	}
	if err := validateText(input.Text); err != nil {
		return err
	}
	if strings.TrimSpace(input.Image) == "" {
		return &ValidationError{Field: "image", Message: "is required"}
	}
	if err := validateCookingTime(input.CookingTime); err != nil {
		return err
	}
	if err := validateTagIDs(input.TagIDs); err != nil {
		return err
	}
	return validateLines(input.Ingredients)
}

func validateRecipeUpdate(update RecipeUpdate) error {
	if update.Name != nil {
		if err := validateName(*update.Name); err != nil {
			return err
		}
	}
	if update.Text != nil {
		if err := validateText(*update.Text); err != nil {
			return err
		}
	}
	if update.Image != nil && strings.TrimSpace(*update.Image) == "" {
		return &ValidationError{Field: "image", Message: "must not be empty"}
	}
	if update.CookingTime != nil {
		if err := validateCookingTime(*update.CookingTime); err != nil {
			return err
		}
	}
	if update.TagIDs != nil {
		if err := validateTagIDs(update.TagIDs); err != nil {
			return err
		}
	}
	if update.Ingredients != nil {
		return validateLines(update.Ingredients)
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if utf8.RuneCountInString(name) > MaxRecipeNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", MaxRecipeNameLength)}
	}
	return nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Message: "is required"}
	}
	return nil
}

func validateCookingTime(minutes int) error {
	if minutes < 1 {
		return &ValidationError{Field: "cooking_time", Message: "must be at least 1"}
	}
	return nil
}

func validateTagIDs(ids []uint) error {
	if len(ids) == 0 {
		return &ValidationError{Field: "tags", Message: "at least one tag is required"}
	}
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return &ValidationError{Field: "tags", Message: fmt.Sprintf("tag %d is listed more than once", id)}
		}
		seen[id] = struct{}{}
	}
	return nil
}

func validateLines(lines []IngredientLine) error {
	if len(lines) == 0 {
		return &ValidationError{Field: "ingredients", Message: "at least one ingredient is required"}
	}
	seen := make(map[uint]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line.IngredientID]; dup {
			return &ValidationError{Field: "ingredients", Message: fmt.Sprintf("ingredient %d is listed more than once", line.IngredientID)}
		}
		seen[line.IngredientID] = struct{}{}
		if line.Amount < 1 {
			return &ValidationError{Field: "ingredients", Message: fmt.Sprintf("amount of ingredient %d must be at least 1", line.IngredientID)}
		}
	}
	return nil
}

// checkTagSlugs rejects filters naming tags that do not exist
func checkTagSlugs(db *gorm.DB, slugs []string) error {
	var known []string
	if err := db.Model(&models.Tag{}).Where("slug IN ?", slugs).Pluck("slug", &known).Error; err != nil {
		return translateStoreError(err, "resolve tag slugs", "tag")
	}
	exists := make(map[string]bool, len(known))
	for _, slug := range known {
		exists[slug] = true
	}
	var unknown []string
	for _, slug := range slugs {
		if !exists[slug] {
			unknown = append(unknown, slug)
		}
	}
	if len(unknown) > 0 {
		return &ValidationError{Field: "tags", Message: "unknown tags: " + strings.Join(unknown, ", ")}
	}
	return nil
}
