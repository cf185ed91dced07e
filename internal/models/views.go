package models

// ShoppingListItem is one aggregated line of a shopping list.
type ShoppingListItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	TotalAmount     int64  `json:"total_amount"`
}

// FollowedAuthor is an author as seen from a follower's subscription list.
type FollowedAuthor struct {
	Author       User
	Recipes      []RecipeShort
	RecipesCount int64
}
