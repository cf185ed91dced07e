package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-recipes-api/internal/database"
	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/franciscosanchezn/gin-recipes-api/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 1x1 transparent PNG
const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDatabase(database.DatabaseConfig{
		Driver:      "sqlite",
		Path:        ":memory:",
		LockTimeout: time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// memoryImageStore keeps decoded images in a map
type memoryImageStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	serial int
}

func newMemoryImageStore() *memoryImageStore {
	return &memoryImageStore{blobs: map[string][]byte{}}
}

func (m *memoryImageStore) Save(_ context.Context, payload string) (string, error) {
	img, err := storage.DecodeImage(payload)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serial++
	ref := fmt.Sprintf("recipes/images/%d%s", m.serial, img.Extension)
	m.blobs[ref] = img.Data
	return ref, nil
}

func (m *memoryImageStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[ref]; !ok {
		return storage.ErrImageNotFound
	}
	delete(m.blobs, ref)
	return nil
}

func (m *memoryImageStore) URL(ref string) string {
	return "/media/" + ref
}

func (m *memoryImageStore) has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[ref]
	return ok
}

func (m *memoryImageStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

type fixtures struct {
	alice, bob, carol models.User
	breakfast, lunch  models.Tag
	dessert           models.Tag
	flour, egg, sugar models.Ingredient
	milk              models.Ingredient
}

func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()
	f := fixtures{
		alice:     models.User{Email: "alice@example.com", Username: "alice", FirstName: "Alice", LastName: "Smith"},
		bob:       models.User{Email: "bob@example.com", Username: "bob", FirstName: "Bob", LastName: "Jones"},
		carol:     models.User{Email: "carol@example.com", Username: "carol", FirstName: "Carol", LastName: "White"},
		breakfast: models.Tag{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
		lunch:     models.Tag{Name: "Lunch", Color: "#49B64F", Slug: "lunch"},
		dessert:   models.Tag{Name: "Dessert", Color: "#FF69B4", Slug: "dessert"},
		flour:     models.Ingredient{Name: "Flour", MeasurementUnit: "g"},
		egg:       models.Ingredient{Name: "Egg", MeasurementUnit: "pcs"},
		sugar:     models.Ingredient{Name: "Sugar", MeasurementUnit: "g"},
		milk:      models.Ingredient{Name: "Milk", MeasurementUnit: "ml"},
	}
	for _, row := range []interface{}{&f.alice, &f.bob, &f.carol, &f.breakfast, &f.lunch, &f.dessert, &f.flour, &f.egg, &f.sugar, &f.milk} {
		require.NoError(t, db.Create(row).Error)
	}
	return f
}

func recipeInput(name string, tags []uint, lines ...IngredientLine) RecipeInput {
	return RecipeInput{
		Name:        name,
		Image:       "data:image/png;base64," + pixelPNG,
		Text:        "Mix everything and bake.",
		CookingTime: 30,
		TagIDs:      tags,
		Ingredients: lines,
	}
}

func mustCreateRecipe(t *testing.T, svc RecipeService, authorID uint, input RecipeInput) *models.Recipe {
	t.Helper()
	recipe, err := svc.CreateRecipe(context.Background(), authorID, input)
	require.NoError(t, err)
	return recipe
}
