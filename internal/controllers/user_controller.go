package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/gin-gonic/gin"
)

// UserController handles user profiles and subscriptions
type UserController interface {
	ListUsers(ctx *gin.Context)
	GetUser(ctx *gin.Context)
	Me(ctx *gin.Context)
	ListSubscriptions(ctx *gin.Context)
	Subscribe(ctx *gin.Context)
	Unsubscribe(ctx *gin.Context)
}

type userController struct {
	users         services.UserService
	subscriptions services.SubscriptionService
	presenter     *Presenter
}

// NewUserController creates a new instance of UserController
func NewUserController(users services.UserService, subscriptions services.SubscriptionService, presenter *Presenter) *userController {
	return &userController{users: users, subscriptions: subscriptions, presenter: presenter}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(6)
// @Success 200 {object} Page[UserResponse]
// @Failure 400 {object} models.APIError
// @Router /api/v1/users [get]
func (c *userController) ListUsers(ctx *gin.Context) {
	req, err := parsePageRequest(ctx)
	if err != nil {
		respondWithError(ctx, err)
		return
	}

	users, total, err := c.users.ListUsers(ctx.Request.Context(), req.limit, req.offset())
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	if req.outOfRange(total) {
		respondWithError(ctx, invalidPage(req.page))
		return
	}

	results, err := c.presenter.users(ctx.Request.Context(), callerID(ctx), users)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newPage(ctx, req, total, results))
}

// GetUser godoc
// @Summary Get user profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} models.APIError
// @Router /api/v1/users/{id} [get]
func (c *userController) GetUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	c.respondWithUser(ctx, id)
}

// Me godoc
// @Summary Get the caller's profile
// @Tags users
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/users/me [get]
func (c *userController) Me(ctx *gin.Context) {
	c.respondWithUser(ctx, callerID(ctx))
}

// ListSubscriptions godoc
// @Summary List followed authors
// @Tags subscriptions
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(6)
// @Param recipes_limit query int false "Recipes shown per author"
// @Success 200 {object} Page[SubscriptionResponse]
// @Failure 401 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/users/subscriptions [get]
func (c *userController) ListSubscriptions(ctx *gin.Context) {
	req, err := parsePageRequest(ctx)
	if err != nil {
		respondWithError(ctx, err)
		return
	}

	limit := recipesLimit(ctx)
	followed, total, err := c.subscriptions.ListFollowed(ctx.Request.Context(), callerID(ctx), limit, req.limit, req.offset())
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	if req.outOfRange(total) {
		respondWithError(ctx, invalidPage(req.page))
		return
	}

	results := make([]SubscriptionResponse, len(followed))
	for i, author := range followed {
		results[i] = c.presenter.subscription(author, limit)
	}
	ctx.JSON(http.StatusOK, newPage(ctx, req, total, results))
}

// Subscribe godoc
// @Summary Follow an author
// @Tags subscriptions
// @Produce json
// @Param id path int true "Author ID"
// @Param recipes_limit query int false "Recipes shown"
// @Success 201 {object} SubscriptionResponse
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/users/{id}/subscribe [post]
func (c *userController) Subscribe(ctx *gin.Context) {
	authorID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	followed, err := c.subscriptions.Follow(ctx.Request.Context(), callerID(ctx), authorID)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, c.presenter.subscription(*followed, recipesLimit(ctx)))
}

// Unsubscribe godoc
// @Summary Unfollow an author
// @Tags subscriptions
// @Param id path int true "Author ID"
// @Success 204
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/users/{id}/subscribe [delete]
func (c *userController) Unsubscribe(ctx *gin.Context) {
	authorID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.subscriptions.Unfollow(ctx.Request.Context(), callerID(ctx), authorID); err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *userController) respondWithUser(ctx *gin.Context, id uint) {
	user, err := c.users.GetUserByID(ctx.Request.Context(), id)
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	out, err := c.presenter.users(ctx.Request.Context(), callerID(ctx), []models.User{*user})
	if err != nil {
		respondWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, out[0])
}
