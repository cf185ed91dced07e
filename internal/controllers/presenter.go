package controllers

import (
	"context"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/franciscosanchezn/gin-recipes-api/internal/storage"
)

// UserResponse is a user as seen by the caller
type UserResponse struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// IngredientAmountResponse is one ingredient line of a recipe
type IngredientAmountResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeResponse is a fully hydrated recipe
type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []models.Tag               `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []IngredientAmountResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// RecipeShortResponse is the compact recipe form used in relations and subscriptions
type RecipeShortResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// SubscriptionResponse is a followed author with a preview of their recipes
type SubscriptionResponse struct {
	UserResponse
	Recipes      []RecipeShortResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

// Presenter turns domain objects into responses carrying the caller-relative flags
type Presenter struct {
	favorites     services.MembershipService
	cart          services.MembershipService
	subscriptions services.SubscriptionService
	images        storage.ImageStore
}

func NewPresenter(favorites, cart services.MembershipService, subscriptions services.SubscriptionService, images storage.ImageStore) *Presenter {
	return &Presenter{favorites: favorites, cart: cart, subscriptions: subscriptions, images: images}
}

func (p *Presenter) recipes(ctx context.Context, callerID uint, recipes []models.Recipe) ([]RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i, recipe := range recipes {
		recipeIDs[i] = recipe.ID
		authorIDs[i] = recipe.AuthorID
	}

	favorited, inCart, followed := map[uint]bool{}, map[uint]bool{}, map[uint]bool{}
	if callerID != 0 && len(recipes) > 0 {
		var err error
		if favorited, err = p.favorites.Contains(ctx, callerID, recipeIDs); err != nil {
			return nil, err
		}
		if inCart, err = p.cart.Contains(ctx, callerID, recipeIDs); err != nil {
			return nil, err
		}
		if followed, err = p.subscriptions.SubscribedTo(ctx, callerID, authorIDs); err != nil {
			return nil, err
		}
	}

	out := make([]RecipeResponse, len(recipes))
	for i, recipe := range recipes {
		lines := make([]IngredientAmountResponse, len(recipe.Ingredients))
		for j, line := range recipe.Ingredients {
			lines[j] = IngredientAmountResponse{
				ID:              line.IngredientID,
				Name:            line.Ingredient.Name,
				MeasurementUnit: line.Ingredient.MeasurementUnit,
				Amount:          line.Amount,
			}
		}
		tags := recipe.Tags
		if tags == nil {
			tags = []models.Tag{}
		}
		out[i] = RecipeResponse{
			ID:               recipe.ID,
			Tags:             tags,
			Author:           userResponse(recipe.Author, followed[recipe.AuthorID]),
			Ingredients:      lines,
			IsFavorited:      favorited[recipe.ID],
			IsInShoppingCart: inCart[recipe.ID],
			Name:             recipe.Name,
			Image:            p.images.URL(recipe.Image),
			Text:             recipe.Text,
			CookingTime:      recipe.CookingTime,
		}
	}
	return out, nil
}

func (p *Presenter) recipe(ctx context.Context, callerID uint, recipe *models.Recipe) (*RecipeResponse, error) {
	out, err := p.recipes(ctx, callerID, []models.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (p *Presenter) recipeShort(short models.RecipeShort) RecipeShortResponse {
	return RecipeShortResponse{
		ID:          short.ID,
		Name:        short.Name,
		Image:       p.images.URL(short.Image),
		CookingTime: short.CookingTime,
	}
}

func (p *Presenter) users(ctx context.Context, callerID uint, users []models.User) ([]UserResponse, error) {
	followed := map[uint]bool{}
	if callerID != 0 && len(users) > 0 {
		ids := make([]uint, len(users))
		for i, user := range users {
			ids[i] = user.ID
		}
		var err error
		if followed, err = p.subscriptions.SubscribedTo(ctx, callerID, ids); err != nil {
			return nil, err
		}
	}

	out := make([]UserResponse, len(users))
	for i, user := range users {
		out[i] = userResponse(user, followed[user.ID])
	}
	return out, nil
}

// subscription renders an author the caller follows, keeping at most recipesLimit recipes
func (p *Presenter) subscription(followed models.FollowedAuthor, recipesLimit *int) SubscriptionResponse {
	recipes := followed.Recipes
	if recipesLimit != nil && len(recipes) > *recipesLimit {
		recipes = recipes[:*recipesLimit]
	}
	shorts := make([]RecipeShortResponse, len(recipes))
	for i, recipe := range recipes {
		shorts[i] = p.recipeShort(recipe)
	}
	return SubscriptionResponse{
		UserResponse: userResponse(followed.Author, true),
		Recipes:      shorts,
		RecipesCount: followed.RecipesCount,
	}
}

func userResponse(user models.User, subscribed bool) UserResponse {
	return UserResponse{
		Email:        user.Email,
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: subscribed,
	}
}
