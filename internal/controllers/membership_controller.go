package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/gin-gonic/gin"
)

// MembershipController handles favorites and the shopping cart
type MembershipController interface {
	AddFavorite(ctx *gin.Context)
	RemoveFavorite(ctx *gin.Context)
	AddToShoppingCart(ctx *gin.Context)
	RemoveFromShoppingCart(ctx *gin.Context)
}

type membershipController struct {
	favorites services.MembershipService
	cart      services.MembershipService
	presenter *Presenter
}

// NewMembershipController creates a new instance of MembershipController
func NewMembershipController(favorites, cart services.MembershipService, presenter *Presenter) *membershipController {
	return &membershipController{favorites: favorites, cart: cart, presenter: presenter}
}

// AddFavorite godoc
// @Summary Add a recipe to favorites
// @Tags favorites
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} RecipeShortResponse
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/recipes/{id}/favorite [post]
func (c *membershipController) AddFavorite(ctx *gin.Context) {
	c.add(ctx, c.favorites)
}

// RemoveFavorite godoc
// @Summary Remove a recipe from favorites
// @Tags favorites
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/recipes/{id}/favorite [delete]
func (c *membershipController) RemoveFavorite(ctx *gin.Context) {
	c.remove(ctx, c.favorites)
}

// AddToShoppingCart godoc
// @Summary Add a recipe to the shopping cart
// @Tags shopping cart
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} RecipeShortResponse
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/recipes/{id}/shopping_cart [post]
func (c *membershipController) AddToShoppingCart(ctx *gin.Context) {
	c.add(ctx, c.cart)
}

// RemoveFromShoppingCart godoc
// @Summary Remove a recipe from the shopping cart
// @Tags shopping cart
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/recipes/{id}/shopping_cart [delete]
func (c *membershipController) RemoveFromShoppingCart(ctx *gin.Context) {
	c.remove(ctx, c.cart)
}

func (c *membershipController) add(ctx *gin.Context, set services.MembershipService) {
	recipeID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	short, err := set.Add(ctx.Request.Context(), callerID(ctx), recipeID)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, c.presenter.recipeShort(*short))
}

func (c *membershipController) remove(ctx *gin.Context, set services.MembershipService) {
	recipeID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := set.Remove(ctx.Request.Context(), callerID(ctx), recipeID); err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
