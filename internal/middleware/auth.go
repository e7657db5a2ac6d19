package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TokenCookie is the cookie AuthMiddleware falls back to.
const TokenCookie = "club_token"

// CurrentUserKey matches the key handlers read the user from.
const CurrentUserKey = "currentUser"

// AuthMiddleware validates the JWT and stores the current user in the
// context. The token is taken from the Authorization header, then the
// ?token= query parameter (downloads), then the TokenCookie cookie.
func AuthMiddleware(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			if cookie, err := c.Cookie(TokenCookie); err == nil {
				tokenStr = cookie
			}
		}

		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
			c.Abort()
			return
		}

		claims, err := util.ParseToken(jwtSecret, tokenStr)
		if err != nil || claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "session expired, please log in again")
			c.Abort()
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).Preload("Player").First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "user not found")
			} else {
				log.Error().Err(err).Uint("user_id", claims.UserID).Msg("load current user")
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not load user")
			}
			c.Abort()
			return
		}
		if !user.Active {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "account disabled")
			c.Abort()
			return
		}

		c.Set(CurrentUserKey, &user)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AdminOnly rejects requests whose user is not an administrator.
// It must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(CurrentUserKey)
		user, ok := v.(*models.User)
		if !ok || user == nil || !user.IsAdmin() {
			util.Error(c, http.StatusForbidden, util.CodeForbidden, "admin only")
			c.Abort()
			return
		}
		c.Next()
	}
}
