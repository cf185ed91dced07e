package controllers

import (
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/gin-gonic/gin"
)

// RecipeController handles HTTP requests related to recipes
type RecipeController interface {
	// ListRecipes returns a filtered page of recipes
	ListRecipes(ctx *gin.Context)
	// GetRecipe retrieves a recipe by its ID
	GetRecipe(ctx *gin.Context)
	// CreateRecipe creates a new recipe authored by the caller
	CreateRecipe(ctx *gin.Context)
	// UpdateRecipe partially updates a recipe owned by the caller
	UpdateRecipe(ctx *gin.Context)
	// DeleteRecipe deletes a recipe owned by the caller
	DeleteRecipe(ctx *gin.Context)
	// DownloadShoppingCart returns the caller's shopping list as a text attachment
	DownloadShoppingCart(ctx *gin.Context)
}

// RecipeRequest is the payload for creating a recipe
type RecipeRequest struct {
	Ingredients []services.IngredientLine `json:"ingredients"`
	Tags        []uint                    `json:"tags"`
	Image       string                    `json:"image" example:"data:image/png;base64,iVBORw0KGgo..."`
	Name        string                    `json:"name" example:"Pancakes"`
	Text        string                    `json:"text" example:"Whisk, rest and fry."`
	CookingTime int                       `json:"cooking_time" example:"20"`
}

// RecipePatchRequest is the payload for a partial update; omitted fields stay unchanged
type RecipePatchRequest struct {
	Ingredients []services.IngredientLine `json:"ingredients"`
	Tags        []uint                    `json:"tags"`
	Image       *string                   `json:"image"`
	Name        *string                   `json:"name"`
	Text        *string                   `json:"text"`
	CookingTime *int                      `json:"cooking_time"`
}

type recipeController struct {
	recipes      services.RecipeService
	shoppingList services.ShoppingListService
	presenter    *Presenter
}

// NewRecipeController creates a new instance of RecipeController
func NewRecipeController(recipes services.RecipeService, shoppingList services.ShoppingListService, presenter *Presenter) *recipeController {
	return &recipeController{recipes: recipes, shoppingList: shoppingList, presenter: presenter}
}

// ListRecipes godoc
// @Summary List recipes
// @Description Newest first. Filters combine; tags match any of the given slugs
// @Tags recipes
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(6)
// @Param tags query []string false "Tag slugs" collectionFormat(multi)
// @Param author query int false "Author ID"
// @Param is_favorited query int false "Only the caller's favorites (1)"
// @Param is_in_shopping_cart query int false "Only recipes in the caller's cart (1)"
// @Success 200 {object} Page[RecipeResponse]
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Router /api/v1/recipes [get]
func (c *recipeController) ListRecipes(ctx *gin.Context) {
	req, err := parsePageRequest(ctx)
	if err != nil {
		respondWithError(ctx, err)
		return
	}

	caller := callerID(ctx)
	filter := services.RecipeFilter{
		TagSlugs: ctx.QueryArray("tags"),
		Limit:    req.limit,
		Offset:   req.offset(),
	}
	if raw := ctx.Query("author"); raw != "" {
		author, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondWithError(ctx, &services.ValidationError{Field: "author", Message: "must be a user id"})
			return
		}
		authorID := uint(author)
		filter.AuthorID = &authorID
	}
	// Relation filters only apply to authenticated callers
	if caller != 0 && queryFlag(ctx, "is_favorited") {
		filter.FavoritedBy = &caller
	}
	if caller != 0 && queryFlag(ctx, "is_in_shopping_cart") {
		filter.InCartOf = &caller
	}

	recipes, total, err := c.recipes.ListRecipes(ctx.Request.Context(), filter)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	if req.outOfRange(total) {
		respondWithError(ctx, invalidPage(req.page))
		return
	}

	results, err := c.presenter.recipes(ctx.Request.Context(), caller, recipes)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newPage(ctx, req, total, results))
}

// GetRecipe godoc
// @Summary Get recipe by ID
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} RecipeResponse
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Router /api/v1/recipes/{id} [get]
func (c *recipeController) GetRecipe(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	recipe, err := c.recipes.GetRecipe(ctx.Request.Context(), id)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	c.respondWithRecipe(ctx, http.StatusOK, recipe)
}

// CreateRecipe godoc
// @Summary Create a new recipe
// @Description The image is a base64 payload, either a data URI or bare base64
// @Tags recipes
// @Accept json
// @Produce json
// @Param recipe body RecipeRequest true "Recipe"
// @Success 201 {object} RecipeResponse
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 503 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/recipes [post]
func (c *recipeController) CreateRecipe(ctx *gin.Context) {
	var req RecipeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, "Invalid request body")
		return
	}

	recipe, err := c.recipes.CreateRecipe(ctx.Request.Context(), callerID(ctx), services.RecipeInput{
		Name:        req.Name,
		Image:       req.Image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
		Ingredients: req.Ingredients,
	})
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	c.respondWithRecipe(ctx, http.StatusCreated, recipe)
}

// UpdateRecipe godoc
// @Summary Update a recipe
// @Description Supplied tags and ingredients replace the current sets
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param recipe body RecipePatchRequest true "Fields to change"
// @Success 200 {object} RecipeResponse
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 503 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/recipes/{id} [patch]
func (c *recipeController) UpdateRecipe(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req RecipePatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, "Invalid request body")
		return
	}

	recipe, err := c.recipes.UpdateRecipe(ctx.Request.Context(), id, callerID(ctx), services.RecipeUpdate{
		Name:        req.Name,
		Image:       req.Image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
		Ingredients: req.Ingredients,
	})
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	c.respondWithRecipe(ctx, http.StatusOK, recipe)
}

// DeleteRecipe godoc
// @Summary Delete a recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/recipes/{id} [delete]
func (c *recipeController) DeleteRecipe(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.recipes.DeleteRecipe(ctx.Request.Context(), id, callerID(ctx)); err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// DownloadShoppingCart godoc
// @Summary Download the shopping list
// @Description Ingredients of every recipe in the cart, summed by name and unit
// @Tags recipes
// @Produce plain
// @Success 200 {string} string "Shopping list"
// @Failure 401 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/recipes/download_shopping_cart [get]
func (c *recipeController) DownloadShoppingCart(ctx *gin.Context) {
	items, err := c.shoppingList.BuildShoppingList(ctx.Request.Context(), callerID(ctx))
	if err != nil {
		respondWithError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	ctx.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(services.RenderShoppingList(items)))
}

func (c *recipeController) respondWithRecipe(ctx *gin.Context, status int, recipe *models.Recipe) {
	out, err := c.presenter.recipe(ctx.Request.Context(), callerID(ctx), recipe)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(status, out)
}
