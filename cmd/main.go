package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	_ "github.com/franciscosanchezn/gin-recipes-api/docs" // Import generated docs
	"github.com/franciscosanchezn/gin-recipes-api/internal/cache"
	"github.com/franciscosanchezn/gin-recipes-api/internal/config"
	"github.com/franciscosanchezn/gin-recipes-api/internal/controllers"
	"github.com/franciscosanchezn/gin-recipes-api/internal/database"
	"github.com/franciscosanchezn/gin-recipes-api/internal/middleware"
	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/franciscosanchezn/gin-recipes-api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

var log = logrus.New()

var (
	db            *gorm.DB
	configuration *config.Config
)

// @title Recipes API
// @version 1.0
// @description Recipe sharing backend: recipes, favorites, shopping cart and author subscriptions
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration = loadConfig()

	// Initialize database connection
	db = setupDatabase(configuration)

	images := setupImageStore(configuration)
	ingredientCache := setupIngredientCache(configuration)

	// Initialize services and controllers
	favorites := services.NewFavoriteService(db)
	cart := services.NewShoppingCartService(db)
	subscriptions := services.NewSubscriptionService(db)
	presenter := controllers.NewPresenter(favorites, cart, subscriptions, images)

	apiControllers := controllers.Controllers{
		Catalog:    controllers.NewCatalogController(services.NewTagService(db), services.NewIngredientService(db, ingredientCache)),
		Recipes:    controllers.NewRecipeController(services.NewRecipeService(db, images), services.NewShoppingListService(db), presenter),
		Membership: controllers.NewMembershipController(favorites, cart, presenter),
		Users:      controllers.NewUserController(services.NewUserService(db), subscriptions, presenter),
	}

	// Initialize Gin router
	router := setupRouter(apiControllers, images)

	// Start the server
	log.Infof("Starting server on %s:%d", configuration.Host, configuration.Port)
	checkPanicErr(router.Run(fmt.Sprintf("%v:%d", configuration.Host, configuration.Port)))
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	if level, err := logrus.ParseLevel(config.GetEnvWithDefault("LOG_LEVEL", "")); err == nil {
		log.SetLevel(level)
	}
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	return conf
}

// setupDatabase opens the configured database, migrates the schema and seeds the default tags
func setupDatabase(conf *config.Config) *gorm.DB {
	conn, err := database.InitDatabase(database.DatabaseConfig{
		Driver:          conf.DBDriver,
		URL:             conf.DatabaseURL,
		Host:            conf.DBHost,
		Port:            conf.DBPort,
		User:            conf.DBUser,
		Password:        conf.DBPassword,
		Name:            conf.DBName,
		SSLMode:         conf.DBSSLMode,
		Path:            conf.DBPath,
		LockTimeout:     conf.DBLockTimeout,
		ConnectAttempts: conf.DBAttempts,
		RetryDelay:      conf.DBRetryDelay,
	})
	checkPanicErr(err)
	checkPanicErr(database.Migrate(conn))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = services.NewTagService(conn).SeedDefaultTags(ctx)
	checkPanicErr(err)
	return conn
}

// setupImageStore returns the bucket store for STORAGE_TYPE=s3 and the local media directory otherwise
func setupImageStore(conf *config.Config) storage.ImageStore {
	if conf.StorageType == "s3" {
		store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  conf.S3Endpoint,
			Region:    conf.S3Region,
			Bucket:    conf.S3Bucket,
			KeyID:     conf.S3KeyID,
			AccessKey: conf.S3AccessKey,
			PublicURL: conf.S3PublicURL,
			Timeout:   conf.S3Timeout,
		}, log)
		checkPanicErr(err)
		log.WithField("bucket", conf.S3Bucket).Info("Storing recipe images in S3")
		return store
	}

	store, err := storage.NewFilesystemStore(conf.MediaDir, conf.MediaURL)
	checkPanicErr(err)
	log.WithField("dir", conf.MediaDir).Info("Storing recipe images on disk")
	return store
}

// setupIngredientCache connects the search cache when REDIS_ADDR is set.
// A failing cache is logged and skipped; searches then go to the database.
func setupIngredientCache(conf *config.Config) cache.IngredientCache {
	if conf.RedisAddr == "" {
		return nil
	}
	ingredientCache, err := cache.NewRedisIngredientCache(conf.RedisAddr, conf.RedisCacheTTL, log)
	if err != nil {
		log.WithError(err).Warn("Ingredient cache disabled")
		return nil
	}
	return ingredientCache
}

// setupRouter initializes the Gin router and sets up the routes
// It returns the configured router
func setupRouter(apiControllers controllers.Controllers, images storage.ImageStore) *gin.Engine {
	if configuration.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(configuration.CORSAllowedOrigins))
	if configuration.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(configuration.RateLimitRPS, configuration.RateLimitBurst)
		router.Use(limiter.Middleware())
	}

	// Health check and metrics endpoints
	router.GET("/health", healthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Uploaded images are served by the API when kept on disk
	if fs, ok := images.(*storage.FilesystemStore); ok {
		router.Static(configuration.MediaURL, fs.Dir())
	}

	controllers.RegisterRoutes(router.Group("/api/v1"), []byte(configuration.JWTSecret), apiControllers)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return router
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service and its database are reachable
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "gin-recipes-api",
	})
}
