package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-recipes-api/internal/metrics"
	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipService manages a per-user set of recipes, such as favorites or the shopping cart
type MembershipService interface {
	// Add puts the recipe into the user's set and returns its short form
	Add(ctx context.Context, userID, recipeID uint) (*models.RecipeShort, error)
	// Remove takes the recipe out of the user's set
	Remove(ctx context.Context, userID, recipeID uint) error
	// Contains reports which of recipeIDs are in the user's set
	Contains(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, error)
}

// membershipService stores one relation table; uniqueness of (user, recipe)
// is enforced by the table's unique index.
type membershipService[T models.RecipeRelation] struct {
	db       *gorm.DB
	relation string
}

// NewFavoriteService creates the favorites set
func NewFavoriteService(db *gorm.DB) MembershipService {
	return &membershipService[models.Favorite]{db: db, relation: "favorite"}
}

// NewShoppingCartService creates the shopping cart set
func NewShoppingCartService(db *gorm.DB) MembershipService {
	return &membershipService[models.ShoppingCart]{db: db, relation: "shopping cart"}
}

func (s *membershipService[T]) Add(ctx context.Context, userID, recipeID uint) (*models.RecipeShort, error) {
	var short models.RecipeShort
	err := inTransaction(ctx, s.db, "add to "+s.relation, s.relation, func(tx *gorm.DB) error {
		err := tx.Model(&models.Recipe{}).
			Select("id", "name", "image", "cooking_time").
			Where("id = ?", recipeID).
			Take(&short).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "recipe", IDs: []uint{recipeID}}
			}
			return err
		}

		member := T{RecipeMember: models.RecipeMember{UserID: userID, RecipeID: recipeID}}
		err = tx.Omit(clause.Associations).Create(&member).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &ConflictError{Entity: s.relation, Detail: fmt.Sprintf("recipe %d is already in the %s", recipeID, s.relation)}
		}
		return err
	})
	metrics.RecordMembershipChange(s.relation, "add", err)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"user_id": userID, "recipe_id": recipeID}).Infof("Recipe added to %s", s.relation)
	return &short, nil
}

func (s *membershipService[T]) Remove(ctx context.Context, userID, recipeID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(new(T))
	err := translateStoreError(result.Error, "remove from "+s.relation, s.relation)
	if err == nil && result.RowsAffected == 0 {
		err = &NotFoundError{Entity: s.relation, IDs: []uint{recipeID}}
	}
	metrics.RecordMembershipChange(s.relation, "remove", err)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"user_id": userID, "recipe_id": recipeID}).Infof("Recipe removed from %s", s.relation)
	return nil
}

func (s *membershipService[T]) Contains(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return set, nil
	}

	var found []uint
	err := s.db.WithContext(ctx).
		Model(new(T)).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &found).Error
	if err != nil {
		return nil, translateStoreError(err, "read "+s.relation, s.relation)
	}
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}
