package services

import (
	"context"
	"strings"
	"testing"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineIDs(recipe *models.Recipe) []uint {
	ids := make([]uint, len(recipe.Ingredients))
	for i, line := range recipe.Ingredients {
		ids[i] = line.IngredientID
	}
	return ids
}

func tagIDs(recipe *models.Recipe) []uint {
	ids := make([]uint, len(recipe.Tags))
	for i, tag := range recipe.Tags {
		ids[i] = tag.ID
	}
	return ids
}

func TestCreateRecipeReturnsHydratedRecipe(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	images := newMemoryImageStore()
	svc := NewRecipeService(db, images)

	recipe, err := svc.CreateRecipe(context.Background(), f.alice.ID, recipeInput(
		"  Pancakes  ",
		[]uint{f.lunch.ID, f.breakfast.ID},
		IngredientLine{IngredientID: f.milk.ID, Amount: 250},
		IngredientLine{IngredientID: f.flour.ID, Amount: 200},
		IngredientLine{IngredientID: f.egg.ID, Amount: 2},
	))
	require.NoError(t, err)

	assert.NotZero(t, recipe.ID)
	assert.Equal(t, "Pancakes", recipe.Name)
	assert.Equal(t, f.alice.ID, recipe.Author.ID)
	assert.Equal(t, "alice", recipe.Author.Username)
	assert.ElementsMatch(t, []uint{f.breakfast.ID, f.lunch.ID}, tagIDs(recipe))
	assert.Equal(t, []uint{f.milk.ID, f.flour.ID, f.egg.ID}, lineIDs(recipe), "lines keep input order")
	assert.Equal(t, "Flour", recipe.Ingredients[1].Ingredient.Name)
	assert.Equal(t, "g", recipe.Ingredients[1].Ingredient.MeasurementUnit)
	assert.Equal(t, 200, recipe.Ingredients[1].Amount)
	assert.True(t, images.has(recipe.Image))
	assert.True(t, strings.HasSuffix(recipe.Image, ".png"))
}

func TestCreateRecipeValidation(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	images := newMemoryImageStore()
	svc := NewRecipeService(db, images)

	valid := func() RecipeInput {
		return recipeInput("Omelette", []uint{f.breakfast.ID}, IngredientLine{IngredientID: f.egg.ID, Amount: 3})
	}

	testCases := []struct {
		name      string
		mutate    func(*RecipeInput)
		wantField string
	}{
		{name: "empty name", mutate: func(in *RecipeInput) { in.Name = "   " }, wantField: "name"},
		{name: "name too long", mutate: func(in *RecipeInput) { in.Name = strings.Repeat("я", MaxRecipeNameLength+1) }, wantField: "name"},
		{name: "empty text", mutate: func(in *RecipeInput) { in.Text = "" }, wantField: "text"},
		{name: "missing image", mutate: func(in *RecipeInput) { in.Image = "" }, wantField: "image"},
		{name: "image is not an image", mutate: func(in *RecipeInput) { in.Image = "aGVsbG8gd29ybGQ=" }, wantField: "image"},
		{name: "zero cooking time", mutate: func(in *RecipeInput) { in.CookingTime = 0 }, wantField: "cooking_time"},
		{name: "no tags", mutate: func(in *RecipeInput) { in.TagIDs = nil }, wantField: "tags"},
		{name: "duplicate tags", mutate: func(in *RecipeInput) { in.TagIDs = []uint{f.lunch.ID, f.lunch.ID} }, wantField: "tags"},
		{name: "no ingredients", mutate: func(in *RecipeInput) { in.Ingredients = []IngredientLine{} }, wantField: "ingredients"},
		{
			name: "duplicate ingredient",
			mutate: func(in *RecipeInput) {
				in.Ingredients = []IngredientLine{{IngredientID: f.egg.ID, Amount: 1}, {IngredientID: f.egg.ID, Amount: 2}}
			},
			wantField: "ingredients",
		},
		{
			name:      "zero amount",
			mutate:    func(in *RecipeInput) { in.Ingredients = []IngredientLine{{IngredientID: f.egg.ID, Amount: 0}} },
			wantField: "ingredients",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid()
			tc.mutate(&input)

			recipe, err := svc.CreateRecipe(context.Background(), f.alice.ID, input)
			require.Error(t, err)
			assert.Nil(t, recipe)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.wantField, validationErr.Field)
		})
	}

	var recipes int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&recipes).Error)
	assert.Zero(t, recipes)
	assert.Zero(t, images.count(), "no image is kept for rejected recipes")
}

func TestCreateRecipeUnknownReferences(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	images := newMemoryImageStore()
	svc := NewRecipeService(db, images)

	_, err := svc.CreateRecipe(context.Background(), f.alice.ID, recipeInput(
		"Mystery", []uint{f.lunch.ID, 999, 998}, IngredientLine{IngredientID: f.egg.ID, Amount: 1},
	))
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "tag", notFound.Entity)
	assert.Equal(t, []uint{998, 999}, notFound.IDs)

	_, err = svc.CreateRecipe(context.Background(), f.alice.ID, recipeInput(
		"Mystery", []uint{f.lunch.ID}, IngredientLine{IngredientID: 4242, Amount: 1},
	))
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ingredient", notFound.Entity)
	assert.Equal(t, []uint{4242}, notFound.IDs)

	var recipes, lines, links int64
	db.Model(&models.Recipe{}).Count(&recipes)
	db.Model(&models.RecipeIngredient{}).Count(&lines)
	db.Model(&models.RecipeTag{}).Count(&links)
	assert.Zero(t, recipes)
	assert.Zero(t, lines)
	assert.Zero(t, links)
	assert.Zero(t, images.count(), "image is removed when the transaction fails")
}

func TestCreateRecipeUnknownAuthor(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := NewRecipeService(db, newMemoryImageStore())

	_, err := svc.CreateRecipe(context.Background(), 777, recipeInput(
		"Ghost", []uint{f.lunch.ID}, IngredientLine{IngredientID: f.egg.ID, Amount: 1},
	))
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "user", notFound.Entity)
}

func TestUpdateRecipeReplacesLinesWholesale(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := NewRecipeService(db, newMemoryImageStore())

	created := mustCreateRecipe(t, svc, f.alice.ID, recipeInput(
		"Cake", []uint{f.dessert.ID},
		IngredientLine{IngredientID: f.flour.ID, Amount: 300},
		IngredientLine{IngredientID: f.egg.ID, Amount: 3},
	))

	updated, err := svc.UpdateRecipe(context.Background(), created.ID, f.alice.ID, RecipeUpdate{
		Ingredients: []IngredientLine{{IngredientID: f.sugar.ID, Amount: 100}},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{f.sugar.ID}, lineIDs(updated))
	assert.Equal(t, 100, updated.Ingredients[0].Amount)
	assert.Equal(t, []uint{f.dessert.ID}, tagIDs(updated), "tags are untouched when not supplied")
	assert.Equal(t, "Cake", updated.Name)

	var lines int64
	require.NoError(t, db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&lines).Error)
	assert.Equal(t, int64(1), lines)
}

func TestUpdateRecipeScalarsAndTags(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := NewRecipeService(db, newMemoryImageStore())

	created := mustCreateRecipe(t, svc, f.alice.ID, recipeInput(
		"Toast", []uint{f.breakfast.ID}, IngredientLine{IngredientID: f.flour.ID, Amount: 100},
	))

	name := "French toast"
	minutes := 12
	updated, err := svc.UpdateRecipe(context.Background(), created.ID, f.alice.ID, RecipeUpdate{
		Name:        &name,
		CookingTime: &minutes,
		TagIDs:      []uint{f.lunch.ID, f.dessert.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, "French toast", updated.Name)
	assert.Equal(t, 12, updated.CookingTime)
	assert.Equal(t, created.Text, updated.Text)
	assert.Equal(t, created.Image, updated.Image)
	assert.ElementsMatch(t, []uint{f.lunch.ID, f.dessert.ID}, tagIDs(updated))
	assert.Equal(t, []uint{f.flour.ID}, lineIDs(updated))
}

func TestUpdateRecipeRejectsEmptySets(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := NewRecipeService(db, newMemoryImageStore())

	created := mustCreateRecipe(t, svc, f.alice.ID, recipeInput(
		"Soup", []uint{f.lunch.ID}, IngredientLine{IngredientID: f.milk.ID, Amount: 500},
	))

	_, err := svc.UpdateRecipe(context.Background(), created.ID, f.alice.ID, RecipeUpdate{TagIDs: []uint{}})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "tags", validationErr.Field)

	_, err = svc.UpdateRecipe(context.Background(), created.ID, f.alice.ID, RecipeUpdate{Ingredients: []IngredientLine{}})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "ingredients", validationErr.Field)
}

func TestUpdateRecipeOwnership(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := NewRecipeService(db, newMemoryImageStore())

	created := mustCreateRecipe(t, svc, f.alice.ID, recipeInput(
		"Salad", []uint{f.lunch.ID}, IngredientLine{IngredientID: f.egg.ID, Amount: 1},
	))

	name := "Stolen salad"
	_, err := svc.UpdateRecipe(context.Background(), created.ID, f.bob.ID, RecipeUpdate{Name: &name})
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, created.ID, authErr.ResourceID)

	_, err = svc.UpdateRecipe(context.Background(), 9999, f.alice.ID, RecipeUpdate{Name: &name})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []uint{9999}, notFound.IDs)

	unchanged, err := svc.GetRecipe(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Salad", unchanged.Name)
}

func TestUpdateRecipeReplacesImage(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	images := newMemoryImageStore()
	svc := NewRecipeService(db, images)

	created := mustCreateRecipe(t, svc, f.alice.ID, recipeInput(
		"Pie", []uint{f.dessert.ID}, IngredientLine{IngredientID: f.flour.ID, Amount: 250},
	))

	payload := pixelPNG
	updated, err := svc.UpdateRecipe(context.Background(), created.ID, f.alice.ID, RecipeUpdate{Image: &payload})
	require.NoError(t, err)

	assert.NotEqual(t, created.Image, updated.Image)
	assert.True(t, images.has(updated.Image))
	assert.False(t, images.has(created.Image), "previous image is removed after commit")
	assert.Equal(t, 1, images.count())
}

func TestUpdateRecipeFailureLeavesRecipeUntouched(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	images := newMemoryImageStore()
	svc := NewRecipeService(db, images)

	created := mustCreateRecipe(t, svc, f.alice.ID, recipeInput(
		"Bread", []uint{f.breakfast.ID}, IngredientLine{IngredientID: f.flour.ID, Amount: 500},
	))

	name := "Better bread"
	payload := pixelPNG
	_, err := svc.UpdateRecipe(context.Background(), created.ID, f.alice.ID, RecipeUpdate{
		Name:        &name,
		Image:       &payload,
		Ingredients: []IngredientLine{{IngredientID: 31337, Amount: 1}},
	})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	current, err := svc.GetRecipe(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bread", current.Name)
	assert.Equal(t, created.Image, current.Image)
	assert.Equal(t, []uint{f.flour.ID}, lineIDs(current))
	assert.Equal(t, 1, images.count(), "the new image is discarded on rollback")
}

func TestDeleteRecipeCascades(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	images := newMemoryImageStore()
	svc := NewRecipeService(db, images)
	favorites := NewFavoriteService(db)
	cart := NewShoppingCartService(db)
	ctx := context.Background()

	recipe := mustCreateRecipe(t, svc, f.alice.ID, recipeInput(
		"Brownies", []uint{f.dessert.ID, f.lunch.ID},
		IngredientLine{IngredientID: f.sugar.ID, Amount: 150},
		IngredientLine{IngredientID: f.egg.ID, Amount: 2},
	))
	other := mustCreateRecipe(t, svc, f.alice.ID, recipeInput(
		"Cookies", []uint{f.dessert.ID}, IngredientLine{IngredientID: f.sugar.ID, Amount: 80},
	))
	_, err := favorites.Add(ctx, f.bob.ID, recipe.ID)
	require.NoError(t, err)
	_, err = cart.Add(ctx, f.bob.ID, recipe.ID)
	require.NoError(t, err)
	_, err = cart.Add(ctx, f.bob.ID, other.ID)
	require.NoError(t, err)

	err = svc.DeleteRecipe(ctx, recipe.ID, f.bob.ID)
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)

	require.NoError(t, svc.DeleteRecipe(ctx, recipe.ID, f.alice.ID))

	for _, model := range []interface{}{&models.RecipeIngredient{}, &models.RecipeTag{}, &models.Favorite{}, &models.ShoppingCart{}} {
		var count int64
		require.NoError(t, db.Model(model).Where("recipe_id = ?", recipe.ID).Count(&count).Error)
		assert.Zero(t, count, "%T rows remain", model)
	}
	assert.False(t, images.has(recipe.Image))
	assert.True(t, images.has(other.Image))

	inCart, err := cart.Contains(ctx, f.bob.ID, []uint{other.ID})
	require.NoError(t, err)
	assert.True(t, inCart[other.ID], "other recipes stay in the cart")

	_, err = svc.GetRecipe(ctx, recipe.ID)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	err = svc.DeleteRecipe(ctx, recipe.ID, f.alice.ID)
	require.ErrorAs(t, err, &notFound)
}

func TestListRecipesFilters(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := NewRecipeService(db, newMemoryImageStore())
	favorites := NewFavoriteService(db)
	cart := NewShoppingCartService(db)
	ctx := context.Background()

	egg := IngredientLine{IngredientID: f.egg.ID, Amount: 1}
	omelette := mustCreateRecipe(t, svc, f.alice.ID, recipeInput("Omelette", []uint{f.breakfast.ID}, egg))
	sandwich := mustCreateRecipe(t, svc, f.alice.ID, recipeInput("Sandwich", []uint{f.lunch.ID}, egg))
	flan := mustCreateRecipe(t, svc, f.bob.ID, recipeInput("Flan", []uint{f.dessert.ID, f.lunch.ID}, egg))

	_, err := favorites.Add(ctx, f.carol.ID, omelette.ID)
	require.NoError(t, err)
	_, err = favorites.Add(ctx, f.carol.ID, flan.ID)
	require.NoError(t, err)
	_, err = cart.Add(ctx, f.carol.ID, flan.ID)
	require.NoError(t, err)

	ids := func(recipes []models.Recipe) []uint {
		out := make([]uint, len(recipes))
		for i, r := range recipes {
			out[i] = r.ID
		}
		return out
	}
	uintPtr := func(v uint) *uint { return &v }

	testCases := []struct {
		name      string
		filter    RecipeFilter
		wantIDs   []uint
		wantTotal int64
	}{
		{name: "all newest first", filter: RecipeFilter{}, wantIDs: []uint{flan.ID, sandwich.ID, omelette.ID}, wantTotal: 3},
		{name: "any of tags", filter: RecipeFilter{TagSlugs: []string{"lunch", "breakfast"}}, wantIDs: []uint{flan.ID, sandwich.ID, omelette.ID}, wantTotal: 3},
		{name: "single tag", filter: RecipeFilter{TagSlugs: []string{"dessert"}}, wantIDs: []uint{flan.ID}, wantTotal: 1},
		{name: "author", filter: RecipeFilter{AuthorID: uintPtr(f.alice.ID)}, wantIDs: []uint{sandwich.ID, omelette.ID}, wantTotal: 2},
		{name: "favorited", filter: RecipeFilter{FavoritedBy: uintPtr(f.carol.ID)}, wantIDs: []uint{flan.ID, omelette.ID}, wantTotal: 2},
		{name: "in cart", filter: RecipeFilter{InCartOf: uintPtr(f.carol.ID)}, wantIDs: []uint{flan.ID}, wantTotal: 1},
		{
			name:      "filters combine",
			filter:    RecipeFilter{FavoritedBy: uintPtr(f.carol.ID), TagSlugs: []string{"breakfast"}},
			wantIDs:   []uint{omelette.ID},
			wantTotal: 1,
		},
		{
			name:      "author and favorited",
			filter:    RecipeFilter{AuthorID: uintPtr(f.bob.ID), FavoritedBy: uintPtr(f.carol.ID), InCartOf: uintPtr(f.carol.ID)},
			wantIDs:   []uint{flan.ID},
			wantTotal: 1,
		},
		{name: "paged", filter: RecipeFilter{Limit: 1, Offset: 1}, wantIDs: []uint{sandwich.ID}, wantTotal: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recipes, total, err := svc.ListRecipes(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.wantTotal, total)
			assert.Equal(t, tc.wantIDs, ids(recipes))
		})
	}

	_, _, err = svc.ListRecipes(ctx, RecipeFilter{TagSlugs: []string{"lunch", "brunch"}})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr, "unknown tag slugs are rejected")
	assert.Equal(t, "tags", validationErr.Field)
	assert.Equal(t, "unknown tags: brunch", validationErr.Message)

	recipes, _, err := svc.ListRecipes(ctx, RecipeFilter{TagSlugs: []string{"lunch"}})
	require.NoError(t, err)
	require.NotEmpty(t, recipes)
	assert.NotEmpty(t, recipes[0].Tags, "list results are hydrated")
	assert.NotEmpty(t, recipes[0].Ingredients)
	assert.NotZero(t, recipes[0].Author.ID)
}
