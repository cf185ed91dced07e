package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	json "github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const ingredientSearchPrefix = "recipes:ingredients:search:"

// IngredientCache caches ingredient prefix searches
type IngredientCache interface {
	// Get returns the cached search result and whether it was present
	Get(ctx context.Context, prefix string) ([]models.Ingredient, bool)
	// Set stores a search result
	Set(ctx context.Context, prefix string, ingredients []models.Ingredient)
}

type redisIngredientCache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logrus.Entry
}

// NewRedisIngredientCache connects to addr and verifies the connection
func NewRedisIngredientCache(addr string, ttl time.Duration, log *logrus.Logger) (IngredientCache, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisIngredientCache{
		rdb: rdb,
		ttl: ttl,
		log: log.WithField("component", "ingredient_cache"),
	}, nil
}

// searchKey normalises the prefix the same way the catalog matches it
func searchKey(prefix string) string {
	return ingredientSearchPrefix + strings.ToLower(strings.TrimSpace(prefix))
}

func (c *redisIngredientCache) Get(ctx context.Context, prefix string) ([]models.Ingredient, bool) {
	ingredients, hit, err := decodeEntry(c.rdb.Get(ctx, searchKey(prefix)).Bytes())
	if err != nil {
		c.log.WithError(err).Warn("ingredient cache read failed")
	}
	return ingredients, hit
}

func (c *redisIngredientCache) Set(ctx context.Context, prefix string, ingredients []models.Ingredient) {
	raw, err := encodeEntry(ingredients)
	if err != nil {
		c.log.WithError(err).Warn("ingredient cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, searchKey(prefix), raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("ingredient cache write failed")
	}
}

func encodeEntry(ingredients []models.Ingredient) ([]byte, error) {
	if ingredients == nil {
		ingredients = []models.Ingredient{}
	}
	return json.Marshal(ingredients)
}

// decodeEntry turns a redis GET reply into a cache result. A missing key is a
// plain miss; read failures and corrupt entries are misses with an error.
func decodeEntry(raw []byte, readErr error) ([]models.Ingredient, bool, error) {
	if errors.Is(readErr, goredis.Nil) {
		return nil, false, nil
	}
	if readErr != nil {
		return nil, false, readErr
	}
	var ingredients []models.Ingredient
	if err := json.Unmarshal(raw, &ingredients); err != nil {
		return nil, false, fmt.Errorf("corrupt ingredient cache entry: %w", err)
	}
	return ingredients, true, nil
}

// Noop is used when no cache is configured
type Noop struct{}

func (Noop) Get(context.Context, string) ([]models.Ingredient, bool) { return nil, false }
func (Noop) Set(context.Context, string, []models.Ingredient)        {}
