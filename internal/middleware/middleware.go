package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "userID"

// BearerIdentity extracts the caller from a bearer JWT issued by the identity provider.
// Requests without an Authorization header continue anonymously; a header that is
// present but malformed or carries an invalid token is rejected with 401.
func BearerIdentity(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// RFC 6750: Extract Bearer token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		// Validate Bearer scheme format
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondWithAuthError(c, models.ErrInvalidRequest,
				"Authorization header must use Bearer scheme. Format: 'Bearer <token>'")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			respondWithAuthError(c, models.ErrInvalidToken, "Bearer token is empty")
			return
		}

		claims, err := parseAndValidateJWT(tokenString, jwtSecret)
		if err != nil {
			respondWithAuthError(c, models.ErrInvalidToken, err.Error())
			return
		}

		userID, err := extractUserID(claims)
		if err != nil {
			respondWithAuthError(c, models.ErrInvalidToken, err.Error())
			return
		}
		c.Set(UserIDKey, userID)

		c.Next()
	}
}

// UserID returns the authenticated caller, if any
func UserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok && userID != 0
}

// respondWithAuthError responds with RFC 6750 compliant error format
func respondWithAuthError(c *gin.Context, errorCode, description string) {
	c.Header("WWW-Authenticate", fmt.Sprintf(`Bearer error=%q, error_description=%q`, errorCode, description))
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":             errorCode,
		"error_description": description,
	})
	c.Abort()
}

// parseJWTToken validates and parses a JWT token using HMAC signing method
// Returns the claims if valid, error otherwise
func parseJWTToken(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method to prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v. Expected HMAC", token.Header["alg"])
		}
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS512"}))

	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims format")
	}

	return claims, nil
}

// parseAndValidateJWT parses the JWT and performs strict validation
func parseAndValidateJWT(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	claims, err := parseJWTToken(tokenString, jwtSecret)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Validate token expiration (exp claim)
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp != nil && exp.Before(now) {
		return nil, fmt.Errorf("token has expired")
	}

	// Validate issued at (iat claim) - prevents using tokens issued in the future
	iat, err := claims.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("invalid iat claim: %w", err)
	}
	if iat != nil && iat.After(now) {
		return nil, fmt.Errorf("token issued in the future")
	}

	return claims, nil
}

// extractUserID reads the numeric "uid" claim, falling back to "sub"
func extractUserID(claims jwt.MapClaims) (uint, error) {
	for _, name := range []string{"uid", "sub"} {
		value, present := claims[name]
		if !present {
			continue
		}
		userID, err := parseUserID(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s claim: %w", name, err)
		}
		return userID, nil
	}
	return 0, fmt.Errorf("token missing required 'uid' claim. This token is not valid for this API")
}

func parseUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case string:
		parsedID, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("must be a numeric string, got: %s", v)
		}
		if parsedID == 0 {
			return 0, fmt.Errorf("cannot be zero")
		}
		return uint(parsedID), nil
	// JSON numbers are parsed as float64
	case float64:
		if v <= 0 || v != float64(uint32(v)) {
			return 0, fmt.Errorf("must be a positive integer, got: %v", v)
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
