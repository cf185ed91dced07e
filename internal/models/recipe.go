package models

import (
	"time"
)

// Recipe is the aggregate root for a recipe together with its tag links and
// ingredient lines. Lines and links are replaced wholesale on update.
type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	AuthorID    uint               `gorm:"not null;index" json:"-"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Image       string             `gorm:"not null" json:"image"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null;check:cooking_time >= 1" json:"cooking_time"`
	Tags        []Tag              `gorm:"many2many:recipe_tags" json:"tags"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
	CreatedAt   time.Time          `gorm:"index" json:"-"`
	UpdatedAt   time.Time          `json:"-"`
}

// RecipeTag is the join row between a recipe and one of its tags.
type RecipeTag struct {
	RecipeID uint `gorm:"primaryKey"`
	TagID    uint `gorm:"primaryKey"`
}

// RecipeIngredient is one ingredient line of a recipe.
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	RecipeID     uint       `gorm:"not null;index:,unique,composite:recipe_ingredient" json:"-"`
	IngredientID uint       `gorm:"not null;index:,unique,composite:recipe_ingredient" json:"id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:RESTRICT" json:"-"`
	Amount       int        `gorm:"not null;check:amount >= 1" json:"amount"`
	Position     int        `gorm:"not null;default:0" json:"-"`
}

// RecipeShort is the minimal projection used in list contexts.
type RecipeShort struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}
