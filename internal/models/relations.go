package models

import (
	"time"
)

// RecipeMember is a (user, recipe) pair of a membership set.
type RecipeMember struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index:,unique,composite:user_recipe"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	RecipeID  uint      `gorm:"not null;index:,unique,composite:user_recipe;index"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// Favorite marks a recipe as favorited by a user.
type Favorite struct {
	RecipeMember
}

func (Favorite) TableName() string {
	return "favorites"
}

// ShoppingCart marks a recipe as being in a user's shopping cart.
type ShoppingCart struct {
	RecipeMember
}

func (ShoppingCart) TableName() string {
	return "shopping_carts"
}

// RecipeRelation is satisfied by every user↔recipe membership table.
type RecipeRelation interface {
	Favorite | ShoppingCart
	TableName() string
}

// Subscription records that UserID follows AuthorID.
type Subscription struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;index:,unique,composite:user_author"`
	User      User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AuthorID  uint `gorm:"not null;index:,unique,composite:user_author;check:chk_subscriptions_not_self,user_id <> author_id"`
	Author    User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}
