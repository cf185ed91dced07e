package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-recipes-api/internal/database"
	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/franciscosanchezn/gin-recipes-api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

var testSecret = []byte("controller-test-secret")

type memoryImages struct {
	mu    sync.Mutex
	next  int
	blobs map[string]bool
}

func (m *memoryImages) Save(_ context.Context, payload string) (string, error) {
	img, err := storage.DecodeImage(payload)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	ref := fmt.Sprintf("recipes/images/%d%s", m.next, img.Extension)
	m.blobs[ref] = true
	return ref, nil
}

func (m *memoryImages) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.blobs[ref] {
		return storage.ErrImageNotFound
	}
	delete(m.blobs, ref)
	return nil
}

func (m *memoryImages) URL(ref string) string {
	return "http://media.test/" + ref
}

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	alice  models.User
	bob    models.User
	lunch  models.Tag
	dinner models.Tag
	egg    models.Ingredient
	flour  models.Ingredient
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.InitDatabase(database.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LockTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	api := &testAPI{
		db:     db,
		alice:  models.User{Email: "alice@example.com", Username: "alice", FirstName: "Alice"},
		bob:    models.User{Email: "bob@example.com", Username: "bob", FirstName: "Bob"},
		lunch:  models.Tag{Name: "Lunch", Color: "#49B64F", Slug: "lunch"},
		dinner: models.Tag{Name: "Dinner", Color: "#8775D2", Slug: "dinner"},
		egg:    models.Ingredient{Name: "Egg", MeasurementUnit: "pcs"},
		flour:  models.Ingredient{Name: "Flour", MeasurementUnit: "g"},
	}
	for _, row := range []interface{}{&api.alice, &api.bob, &api.lunch, &api.dinner, &api.egg, &api.flour} {
		require.NoError(t, db.Create(row).Error)
	}

	images := &memoryImages{blobs: map[string]bool{}}
	favorites := services.NewFavoriteService(db)
	cart := services.NewShoppingCartService(db)
	subscriptions := services.NewSubscriptionService(db)
	presenter := NewPresenter(favorites, cart, subscriptions, images)

	api.router = gin.New()
	RegisterRoutes(api.router.Group("/api/v1"), testSecret, Controllers{
		Catalog:    NewCatalogController(services.NewTagService(db), services.NewIngredientService(db, nil)),
		Recipes:    NewRecipeController(services.NewRecipeService(db, images), services.NewShoppingListService(db), presenter),
		Membership: NewMembershipController(favorites, cart, presenter),
		Users:      NewUserController(services.NewUserService(db), subscriptions, presenter),
	})
	return api
}

func (api *testAPI) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": user.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

// do sends a request as user; a zero user sends it anonymously
func (api *testAPI) do(t *testing.T, method, path string, user models.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user.ID != 0 {
		req.Header.Set("Authorization", "Bearer "+api.token(t, user))
	}
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	return w
}

func (api *testAPI) createRecipe(t *testing.T, author models.User, name string) RecipeResponse {
	t.Helper()
	w := api.do(t, http.MethodPost, "/api/v1/recipes", author, gin.H{
		"name":         name,
		"text":         "Cook it.",
		"image":        "data:image/png;base64," + pixelPNG,
		"cooking_time": 15,
		"tags":         []uint{api.lunch.ID},
		"ingredients":  []gin.H{{"id": api.egg.ID, "amount": 2}, {"id": api.flour.ID, "amount": 100}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var recipe RecipeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recipe))
	return recipe
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
