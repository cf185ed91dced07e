package controllers

import (
	"github.com/franciscosanchezn/gin-recipes-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Controllers groups every controller mounted under /api/v1
type Controllers struct {
	Catalog    CatalogController
	Recipes    RecipeController
	Membership MembershipController
	Users      UserController
}

// RegisterRoutes mounts the API on v1. Every route resolves the caller from an
// optional bearer token; writes and caller-specific reads require one.
func RegisterRoutes(v1 *gin.RouterGroup, jwtSecret []byte, c Controllers) {
	v1.Use(middleware.BearerIdentity(jwtSecret))
	auth := middleware.RequireAuth()

	// Public reference data
	v1.GET("/tags", c.Catalog.ListTags)
	v1.GET("/tags/:id", c.Catalog.GetTag)
	v1.GET("/ingredients", c.Catalog.ListIngredients)
	v1.GET("/ingredients/:id", c.Catalog.GetIngredient)

	recipes := v1.Group("/recipes")
	{
		recipes.GET("", c.Recipes.ListRecipes)
		recipes.GET("/:id", c.Recipes.GetRecipe)
		recipes.GET("/download_shopping_cart", auth, c.Recipes.DownloadShoppingCart)
		recipes.POST("", auth, c.Recipes.CreateRecipe)
		recipes.PATCH("/:id", auth, c.Recipes.UpdateRecipe)
		recipes.DELETE("/:id", auth, c.Recipes.DeleteRecipe)

		recipes.POST("/:id/favorite", auth, c.Membership.AddFavorite)
		recipes.DELETE("/:id/favorite", auth, c.Membership.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", auth, c.Membership.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart", auth, c.Membership.RemoveFromShoppingCart)
	}

	users := v1.Group("/users")
	{
		users.GET("", c.Users.ListUsers)
		users.GET("/me", auth, c.Users.Me)
		users.GET("/subscriptions", auth, c.Users.ListSubscriptions)
		users.GET("/:id", c.Users.GetUser)
		users.POST("/:id/subscribe", auth, c.Users.Subscribe)
		users.DELETE("/:id/subscribe", auth, c.Users.Unsubscribe)
	}
}
