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

// SubscriptionService manages who follows which author
type SubscriptionService interface {
	// Follow subscribes followerID to authorID and returns the author with all their recipes
	Follow(ctx context.Context, followerID, authorID uint) (*models.FollowedAuthor, error)
	// Unfollow removes an existing subscription
	Unfollow(ctx context.Context, followerID, authorID uint) error
	// ListFollowed returns a page of followed authors and the total number of subscriptions.
	// recipesLimit caps the recipes listed per author; nil lists all of them.
	ListFollowed(ctx context.Context, followerID uint, recipesLimit *int, limit, offset int) ([]models.FollowedAuthor, int64, error)
	// SubscribedTo reports which of authorIDs followerID follows
	SubscribedTo(ctx context.Context, followerID uint, authorIDs []uint) (map[uint]bool, error)
}

type subscriptionService struct {
	db *gorm.DB
}

// NewSubscriptionService creates a new instance of SubscriptionService
func NewSubscriptionService(db *gorm.DB) SubscriptionService {
	return &subscriptionService{db: db}
}

func (s *subscriptionService) Follow(ctx context.Context, followerID, authorID uint) (*models.FollowedAuthor, error) {
	if followerID == authorID {
		metrics.RecordMembershipChange("subscription", "add", errSelfFollow)
		return nil, errSelfFollow
	}

	var followed *models.FollowedAuthor
	err := inTransaction(ctx, s.db, "follow author", "subscription", func(tx *gorm.DB) error {
		var author models.User
		if err := tx.First(&author, authorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "user", IDs: []uint{authorID}}
			}
			return err
		}

		subscription := models.Subscription{UserID: followerID, AuthorID: authorID}
		err := tx.Omit(clause.Associations).Create(&subscription).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &ConflictError{Entity: "subscription", Detail: fmt.Sprintf("already subscribed to user %d", authorID)}
		}
		if err != nil {
			return err
		}

		authors, err := withRecipes(tx, []models.User{author}, nil)
		if err != nil {
			return err
		}
		followed = &authors[0]
		return nil
	})
	metrics.RecordMembershipChange("subscription", "add", err)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"user_id": followerID, "author_id": authorID}).Info("Subscribed to author")
	return followed, nil
}

var errSelfFollow = &ValidationError{Field: "author", Message: "cannot subscribe to yourself"}

func (s *subscriptionService) Unfollow(ctx context.Context, followerID, authorID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", followerID, authorID).
		Delete(&models.Subscription{})
	err := translateStoreError(result.Error, "unfollow author", "subscription")
	if err == nil && result.RowsAffected == 0 {
		err = &NotFoundError{Entity: "subscription", IDs: []uint{authorID}}
	}
	metrics.RecordMembershipChange("subscription", "remove", err)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"user_id": followerID, "author_id": authorID}).Info("Unsubscribed from author")
	return nil
}

func (s *subscriptionService) ListFollowed(ctx context.Context, followerID uint, recipesLimit *int, limit, offset int) ([]models.FollowedAuthor, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Subscription{}).Where("user_id = ?", followerID).Count(&total).Error; err != nil {
		return nil, 0, translateStoreError(err, "count subscriptions", "subscription")
	}

	query := db.Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", followerID).
		Order("users.id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var authors []models.User
	if err := query.Find(&authors).Error; err != nil {
		return nil, 0, translateStoreError(err, "list subscriptions", "subscription")
	}

	followed, err := withRecipes(db, authors, recipesLimit)
	if err != nil {
		return nil, 0, translateStoreError(err, "list subscriptions", "subscription")
	}
	return followed, total, nil
}

func (s *subscriptionService) SubscribedTo(ctx context.Context, followerID uint, authorIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool, len(authorIDs))
	if len(authorIDs) == 0 {
		return set, nil
	}

	var found []uint
	err := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", followerID, authorIDs).
		Pluck("author_id", &found).Error
	if err != nil {
		return nil, translateStoreError(err, "read subscriptions", "subscription")
	}
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}

type authorRecipe struct {
	models.RecipeShort
	AuthorID uint
}

type authorRecipeCount struct {
	AuthorID uint
	Total    int64
}

// withRecipes attaches each author's newest recipes, capped at recipesLimit
// when set, and the author's true recipe count.
func withRecipes(tx *gorm.DB, authors []models.User, recipesLimit *int) ([]models.FollowedAuthor, error) {
	followed := make([]models.FollowedAuthor, len(authors))
	if len(authors) == 0 {
		return followed, nil
	}

	ids := make([]uint, len(authors))
	for i, author := range authors {
		ids[i] = author.ID
	}

	var counts []authorRecipeCount
	err := tx.Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	countByAuthor := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countByAuthor[c.AuthorID] = c.Total
	}

	recipesByAuthor := make(map[uint][]models.RecipeShort, len(authors))
	if recipesLimit == nil || *recipesLimit > 0 {
		ranked := tx.Model(&models.Recipe{}).
			Select("id, name, image, cooking_time, author_id, " +
				"ROW_NUMBER() OVER (PARTITION BY author_id ORDER BY created_at DESC, id DESC) AS author_rank").
			Where("author_id IN ?", ids)
		query := tx.Table("(?) AS ranked", ranked).
			Select("id, name, image, cooking_time, author_id").
			Order("author_id").
			Order("author_rank")
		if recipesLimit != nil {
			query = query.Where("author_rank <= ?", *recipesLimit)
		}

		var rows []authorRecipe
		if err := query.Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			recipesByAuthor[row.AuthorID] = append(recipesByAuthor[row.AuthorID], row.RecipeShort)
		}
	}

	for i, author := range authors {
		recipes := recipesByAuthor[author.ID]
		if recipes == nil {
			recipes = []models.RecipeShort{}
		}
		followed[i] = models.FollowedAuthor{
			Author:       author,
			Recipes:      recipes,
			RecipesCount: countByAuthor[author.ID],
		}
	}
	return followed, nil
}
