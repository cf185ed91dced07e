package services

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"gorm.io/gorm"
)

// UserService reads the accounts provisioned by the identity provider
type UserService interface {
	// CreateUser stores a new account; email and username must be unique
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByID returns a single account
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	// ListUsers returns a page of accounts ordered by id and the total count
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error)
}

type userService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) UserService {
	return &userService{db: db}
}

func (s *userService) CreateUser(ctx context.Context, user *models.User) error {
	if user.Email == "" {
		return &ValidationError{Field: "email", Message: "is required"}
	}
	if user.Username == "" {
		return &ValidationError{Field: "username", Message: "is required"}
	}
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Entity: "user", Detail: "email or username already taken"}
	}
	return translateStoreError(err, "create user", "user")
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "user", IDs: []uint{id}}
		}
		return nil, translateStoreError(err, "get user", "user")
	}
	return &user, nil
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var total int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, translateStoreError(err, "count users", "user")
	}
	var users []models.User
	if err := db.Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, translateStoreError(err, "list users", "user")
	}
	return users, total, nil
}
