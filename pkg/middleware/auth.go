package middleware

import (
	"strings"

	"github.com/saipul12c/my-portofolio-sub004/pkg/errors"
	"github.com/saipul12c/my-portofolio-sub004/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID = "userId"
	ContextBot    = "isBot"
)

// JWTAuthMiddleware requires a valid bearer token. The token subject is
// stored in the context as the resolved user id.
func JWTAuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := claimsFromHeader(c, jwtService)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		if claims == nil {
			c.Error(errors.NewUnauthorizedError("MISSING_TOKEN", "Missing or invalid Authorization header"))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID())
		c.Set(ContextBot, claims.Bot)
		c.Next()
	}
}

// OptionalJWTAuthMiddleware resolves a bearer token when one is supplied.
// A present-but-invalid token is still rejected; an absent token passes
// through with no identity set, leaving the caller-supplied identity (if
// the route accepts one) in effect.
func OptionalJWTAuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := claimsFromHeader(c, jwtService)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		if claims != nil {
			c.Set(ContextUserID, claims.UserID())
			c.Set(ContextBot, claims.Bot)
		}
		c.Next()
	}
}

func claimsFromHeader(c *gin.Context, jwtService *jwt.Service) (*jwt.Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, nil
	}

	token := strings.TrimPrefix(header, "Bearer ")
	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		return nil, errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired token")
	}
	return claims, nil
}
