package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/franciscosanchezn/gin-recipes-api/internal/config"
	"github.com/franciscosanchezn/gin-recipes-api/internal/database"
	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// Creates (or reuses) a local user and prints a bearer token for it
func main() {
	email := flag.String("email", "dev@example.com", "User email")
	username := flag.String("username", "dev", "Username")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.InitDatabase(database.DatabaseConfig{
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
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	var user models.User
	err = db.Where("email = ?", *email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: *email, Username: *username, FirstName: "Dev", LastName: "User"}
		if err := services.NewUserService(db).CreateUser(context.Background(), &user); err != nil {
			log.Fatal("Failed to create user:", err)
		}
		fmt.Printf("Created user %d (%s)\n", user.ID, user.Email)
	case err != nil:
		log.Fatal("Failed to look up user:", err)
	default:
		fmt.Printf("User %d (%s) already exists\n", user.ID, user.Email)
	}

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": user.ID,
		"sub": fmt.Sprint(user.ID),
		"iat": now.Unix(),
		"exp": now.Add(*ttl).Unix(),
	}).SignedString([]byte(conf.JWTSecret))
	if err != nil {
		log.Fatal("Failed to sign token:", err)
	}

	fmt.Println("\nUse it with:")
	fmt.Printf("  curl -H 'Authorization: Bearer %s' http://%s:%d/api/v1/users/me\n", token, conf.Host, conf.Port)
}
