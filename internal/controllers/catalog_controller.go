package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/gin-gonic/gin"
)

// CatalogController serves the tag and ingredient reference data
type CatalogController interface {
	ListTags(ctx *gin.Context)
	GetTag(ctx *gin.Context)
	ListIngredients(ctx *gin.Context)
	GetIngredient(ctx *gin.Context)
}

type catalogController struct {
	tags        services.TagService
	ingredients services.IngredientService
}

// NewCatalogController creates a new instance of CatalogController
func NewCatalogController(tags services.TagService, ingredients services.IngredientService) *catalogController {
	return &catalogController{tags: tags, ingredients: ingredients}
}

// ListTags godoc
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} models.Tag
// @Router /api/v1/tags [get]
func (c *catalogController) ListTags(ctx *gin.Context) {
	tags, err := c.tags.ListTags(ctx.Request.Context())
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tags)
}

// GetTag godoc
// @Summary Get tag by ID
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} models.Tag
// @Failure 404 {object} models.APIError
// @Router /api/v1/tags/{id} [get]
func (c *catalogController) GetTag(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	tag, err := c.tags.GetTag(ctx.Request.Context(), id)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tag)
}

// ListIngredients godoc
// @Summary Search ingredients
// @Description Case-insensitive name prefix search, ordered by name
// @Tags ingredients
// @Produce json
// @Param name query string false "Name prefix"
// @Success 200 {array} models.Ingredient
// @Failure 503 {object} models.APIError
// @Router /api/v1/ingredients [get]
func (c *catalogController) ListIngredients(ctx *gin.Context) {
	ingredients, err := c.ingredients.Search(ctx.Request.Context(), ctx.Query("name"))
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, ingredients)
}

// GetIngredient godoc
// @Summary Get ingredient by ID
// @Tags ingredients
// @Produce json
// @Param id path int true "Ingredient ID"
// @Success 200 {object} models.Ingredient
// @Failure 404 {object} models.APIError
// @Router /api/v1/ingredients/{id} [get]
func (c *catalogController) GetIngredient(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	ingredient, err := c.ingredients.GetIngredient(ctx.Request.Context(), id)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, ingredient)
}
